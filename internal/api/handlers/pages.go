package handlers

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/rohits-web03/filepod/internal/logging"
	"github.com/rohits-web03/filepod/internal/sharing"
	"github.com/rohits-web03/filepod/internal/utils"
)

const pageLayout = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}} - FilePod</title>
<style>
body{font-family:system-ui,sans-serif;background:#f4f5f7;margin:0;display:flex;min-height:100vh;align-items:center;justify-content:center}
main{background:#fff;border-radius:12px;box-shadow:0 2px 12px rgba(0,0,0,.08);padding:2rem;max-width:26rem;width:100%}
h1{font-size:1.25rem;margin:0 0 1rem}
dl{display:grid;grid-template-columns:auto 1fr;gap:.25rem 1rem;margin:0 0 1.5rem}
dt{color:#666}
input,button{font:inherit;padding:.6rem .8rem;border-radius:8px;width:100%;box-sizing:border-box}
input{border:1px solid #ccc;margin-bottom:.75rem}
button{border:0;background:#2563eb;color:#fff;cursor:pointer}
.error{color:#b91c1c;margin:0 0 1rem}
</style>
</head>
<body><main>{{template "content" .}}</main></body>
</html>`

var landingPage = template.Must(template.New("landing").
	Funcs(template.FuncMap{"humanSize": humanSize}).
	Parse(pageLayout + `
{{define "content"}}
<h1>{{.Meta.Name}}</h1>
<dl>
<dt>Type</dt><dd>{{.Meta.Type}}</dd>
<dt>Size</dt><dd>{{humanSize .Meta.SizeBytes}}</dd>
{{if eq .Meta.Type "folder"}}<dt>Files</dt><dd>{{.Meta.FileCount}}</dd>{{end}}
<dt>Shared by</dt><dd>{{.Meta.OwnerName}}</dd>
</dl>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
<form method="post" action="{{.Action}}">
<input type="password" name="password" placeholder="Password" required autofocus>
<button type="submit">Download</button>
</form>
{{end}}`))

var errorPage = template.Must(template.New("error").Parse(pageLayout + `
{{define "content"}}
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
{{end}}`))

type landingData struct {
	Title  string
	Meta   *sharing.LinkMeta
	Action string
	Error  string
}

type errorData struct {
	Title   string
	Message string
}

// wantsHTML reports whether the client named text/html in Accept. Wildcards
// such as */* do not count, so curl and other API clients that send */* get
// JSON; pages are only served to clients that explicitly ask for HTML, as
// browsers do on navigation.
func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func renderPage(w http.ResponseWriter, r *http.Request, status int, tmpl *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := tmpl.Execute(w, data); err != nil {
		logging.WithContext(r.Context()).Error("render page", zap.String("template", tmpl.Name()), zap.Error(err))
	}
}

// shareFailure answers a failed share request as an HTML page for browsers
// and as a JSON payload otherwise.
func shareFailure(w http.ResponseWriter, r *http.Request, status int, title, message string) {
	if wantsHTML(r) {
		renderPage(w, r, status, errorPage, errorData{Title: title, Message: message})
		return
	}
	utils.JSONError(w, status, message)
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
