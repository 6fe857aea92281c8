package api

import (
	"fmt"
	"net/http"

	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/rohits-web03/filepod/docs"
	"github.com/rohits-web03/filepod/internal/api/handlers"
	"github.com/rohits-web03/filepod/internal/api/middleware"
	"github.com/rohits-web03/filepod/internal/logging"
	"github.com/rohits-web03/filepod/internal/metrics"
)

// SetupRouter builds the full HTTP handler for h.
func SetupRouter(h *handlers.Handler, opts Options) http.Handler {
	mainMux := http.NewServeMux()
	c := cors.New(opts.Cors)
	limiter := middleware.NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst, opts.TrustedProxies)

	// ---------- PUBLIC ROUTES ----------
	mainMux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})
	mainMux.Handle("GET /metrics", metrics.Handler())
	mainMux.HandleFunc("/docs/", httpSwagger.WrapHandler)

	authMux := http.NewServeMux()
	authMux.HandleFunc("POST /sign-up", h.RegisterUser)
	authMux.HandleFunc("POST /login", h.LoginUser)
	authMux.HandleFunc("POST /logout", h.Logout)
	authMux.HandleFunc("GET /google/login", h.HandleGoogleLogin)
	authMux.HandleFunc("GET /google/callback", h.HandleGoogleCallback)

	mainMux.Handle("/api/v1/auth/",
		http.StripPrefix("/api/v1/auth", authMux),
	)

	publicMux := http.NewServeMux()
	publicMux.HandleFunc("GET /shared/{token}", h.GetSharedContent)
	publicMux.HandleFunc("POST /shared/{token}/download", h.DownloadShared)
	publicMux.HandleFunc("GET /shared/{token}/info", h.GetSharedInfo)
	publicMux.HandleFunc("GET /media/{path...}", h.ServeMedia)

	mainMux.Handle("/shared/", limiter.Middleware(publicMux))
	mainMux.Handle("/media/", limiter.Middleware(publicMux))

	// ---------- PROTECTED ROUTES ----------
	protectedMux := http.NewServeMux()

	protectedMux.HandleFunc("GET /my-storage", h.GetMyStorage)
	protectedMux.HandleFunc("GET /my-storage/stats", h.GetStorageStats)
	protectedMux.HandleFunc("GET /my-storage/{id}", h.GetFolderContents)

	protectedMux.HandleFunc("POST /folders", h.CreateFolder)
	protectedMux.HandleFunc("PATCH /folders/{id}", h.UpdateFolder)
	protectedMux.HandleFunc("DELETE /folders/{id}", h.DeleteFolder)
	protectedMux.HandleFunc("POST /folders/{id}/share", h.ShareFolder)

	protectedMux.HandleFunc("POST /files", h.UploadFile)
	protectedMux.HandleFunc("PATCH /files/{id}", h.UpdateFile)
	protectedMux.HandleFunc("DELETE /files/{id}", h.DeleteFile)
	protectedMux.HandleFunc("GET /files/{id}/download", h.DownloadFile)
	protectedMux.HandleFunc("GET /files/{id}/presign", h.PresignFile)
	protectedMux.HandleFunc("POST /files/{id}/share", h.ShareFile)

	protectedMux.HandleFunc("GET /links", h.ListLinks)
	protectedMux.HandleFunc("DELETE /links/{id}", h.DeleteLink)

	mainMux.Handle("/api/v1/",
		http.StripPrefix(
			"/api/v1",
			middleware.Auth(opts.JWTSecret)(protectedMux),
		),
	)

	logging.L().Info("router initialized")
	handler := c.Handler(mainMux)
	handler = metrics.Middleware(handler)
	handler = middleware.Logger(handler)
	return handler
}
