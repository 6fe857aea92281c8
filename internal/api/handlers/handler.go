// Package handlers implements the HTTP endpoints of the storage API.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/rohits-web03/filepod/internal/api/middleware"
	"github.com/rohits-web03/filepod/internal/config"
	"github.com/rohits-web03/filepod/internal/objectstore"
	"github.com/rohits-web03/filepod/internal/repositories"
	"github.com/rohits-web03/filepod/internal/sharing"
	"github.com/rohits-web03/filepod/internal/streaming"
	"github.com/rohits-web03/filepod/internal/utils"
)

// Handler holds the collaborators shared by every endpoint.
type Handler struct {
	cfg       config.Config
	store     *repositories.Store
	objects   objectstore.Store
	collector *sharing.Collector
	resolver  *sharing.Resolver
	composer  *streaming.Composer
	media     *streaming.Media
	google    *oauth2.Config
}

// Deps are the services a Handler is built from.
type Deps struct {
	Config  config.Config
	Store   *repositories.Store
	Objects objectstore.Store
	Google  *oauth2.Config
}

func New(deps Deps) *Handler {
	collector := sharing.NewCollector(deps.Store, deps.Config.MaxFolderDepth)
	return &Handler{
		cfg:       deps.Config,
		store:     deps.Store,
		objects:   deps.Objects,
		collector: collector,
		resolver:  sharing.NewResolver(deps.Store, collector),
		composer:  streaming.NewComposer(deps.Objects),
		media:     streaming.NewMedia(deps.Objects),
		google:    deps.Google,
	}
}

const maxJSONBody = 1 << 20

// decodeJSON reads a single JSON object from the body. An empty body leaves
// dst untouched when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return true
		}
		utils.JSONError(w, http.StatusBadRequest, "Invalid input")
		return false
	}
	return true
}

// currentUser returns the authenticated user id or answers 401.
func currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.UserID(r.Context())
	if !ok {
		utils.JSONError(w, http.StatusUnauthorized, "Unauthorized")
	}
	return id, ok
}

// pathID parses the {id} wildcard or answers 400.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// optionalParent decodes a parent reference: absent means unchanged, JSON null
// means the root, a string is a folder id.
func optionalParent(raw json.RawMessage) (set bool, id *uuid.UUID, err error) {
	if len(raw) == 0 {
		return false, nil, nil
	}
	if string(raw) == "null" {
		return true, nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false, nil, err
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return false, nil, err
	}
	return true, &parsed, nil
}

// cleanName validates a user-supplied file or folder name.
func cleanName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 255 || strings.ContainsAny(name, "/\\\x00") || name == "." || name == ".." {
		return "", false
	}
	return name, true
}

func (h *Handler) shareURL(token string) string {
	return h.cfg.AppURL + "/shared/" + token
}

func (h *Handler) isProd() bool {
	return h.cfg.IsProduction()
}
