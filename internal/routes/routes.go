package routes

import (
	"net/http"

	"github.com/hkakademi/media/internal/app"
	"github.com/hkakademi/media/internal/handler"
	"github.com/hkakademi/media/internal/middleware"
	"github.com/hkakademi/media/internal/response"
	"github.com/hkakademi/media/internal/storage"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	media := handler.NewMediaHandler(app.MediaService)

	requireAdmin := middleware.RequireAdmin(app.Cfg.JWTSecret)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	// Uploaded files, when backed by local disk
	if local, ok := app.Storage.(*storage.LocalStorage); ok {
		mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(local.BasePath()))))
	}

	mux.HandleFunc("GET /api/media", media.List)

	// ============================================================================
	// ADMIN ROUTES
	// ============================================================================

	mux.Handle("POST /api/upload", requireAdmin(http.HandlerFunc(media.Upload)))
	mux.Handle("DELETE /api/media", requireAdmin(http.HandlerFunc(media.Delete)))
	mux.Handle("PUT /api/media", requireAdmin(http.HandlerFunc(media.Reorder)))

	// ============================================================================
	// FALLBACK
	// ============================================================================

	// 404
	mux.HandleFunc("/{path...}", func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "not found")
	})

	// Global middleware - executed in order (top to bottom)
	handler := middleware.Chain(
		mux,
		middleware.RequestLogging,
		middleware.Recover,
	)

	return handler
}
