package web

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-studio/internal/web/handlers"
	"github.com/kozaktomas/face-studio/internal/web/static"
)

func (s *Server) setupRoutes() {
	// Create handlers
	sourcesHandler := handlers.NewSourcesHandler(s.session, s.provider)
	targetsHandler := handlers.NewTargetsHandler(s.session)
	settingsHandler := handlers.NewSettingsHandler(s.session)
	batchHandler := handlers.NewBatchHandler(s.session, s.runner, s.jobManager)
	imagesHandler := handlers.NewImagesHandler(s.session)
	configHandler := handlers.NewConfigHandler(s.config, s.provider.Name())

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Source identity
		r.Get("/sources", sourcesHandler.List)
		r.Post("/sources", sourcesHandler.Upload)
		r.Post("/sources/analyze", sourcesHandler.Analyze)
		r.Delete("/sources", sourcesHandler.Clear)
		r.Delete("/sources/{index}", sourcesHandler.Remove)

		// Targets
		r.Get("/targets", targetsHandler.List)
		r.Post("/targets", targetsHandler.Upload)
		r.Get("/targets/{id}", targetsHandler.Get)
		r.Delete("/targets/{id}", targetsHandler.Remove)
		r.Get("/targets/{id}/download", imagesHandler.DownloadTarget)

		// Settings
		r.Get("/settings", settingsHandler.Get)
		r.Put("/settings", settingsHandler.Update)

		// Batch swap (long-running operations)
		r.Post("/batch", batchHandler.Start)
		r.Get("/batch/{jobId}", batchHandler.Status)
		r.Get("/batch/{jobId}/events", batchHandler.Events)

		// Stored images and downloads
		r.Get("/images/{ref}", imagesHandler.Serve)
		r.Get("/download/archive", imagesHandler.DownloadArchive)

		// Config
		r.Get("/config", configHandler.Get)
	})

	// Serve static files for frontend (SPA)
	s.router.Get("/*", s.serveSPA)
}

// serveSPA serves the single-page application
func (s *Server) serveSPA(w http.ResponseWriter, r *http.Request) {
	// Check if we have embedded frontend assets
	if static.HasDist() {
		// Try to serve the requested file
		fs := static.GetFileSystem()
		path := r.URL.Path
		if path == "/" {
			path = "/index.html"
		}

		// Try to open the file
		f, err := fs.Open(path)
		if err == nil {
			defer f.Close()

			// Get file info for content type detection
			stat, err := f.Stat()
			if err == nil && !stat.IsDir() {
				// Set content type based on extension
				contentType := "application/octet-stream"
				switch {
				case strings.HasSuffix(path, ".html"):
					contentType = "text/html; charset=utf-8"
				case strings.HasSuffix(path, ".css"):
					contentType = "text/css; charset=utf-8"
				case strings.HasSuffix(path, ".js"):
					contentType = "application/javascript; charset=utf-8"
				case strings.HasSuffix(path, ".json"):
					contentType = "application/json"
				case strings.HasSuffix(path, ".svg"):
					contentType = "image/svg+xml"
				case strings.HasSuffix(path, ".png"):
					contentType = "image/png"
				case strings.HasSuffix(path, ".jpg"), strings.HasSuffix(path, ".jpeg"):
					contentType = "image/jpeg"
				case strings.HasSuffix(path, ".ico"):
					contentType = "image/x-icon"
				case strings.HasSuffix(path, ".woff2"):
					contentType = "font/woff2"
				case strings.HasSuffix(path, ".woff"):
					contentType = "font/woff"
				}

				w.Header().Set("Content-Type", contentType)

				// Add cache headers for static assets
				if strings.HasPrefix(path, "/assets/") {
					w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
				}

				w.WriteHeader(http.StatusOK)
				io.Copy(w, f)
				return
			}
		}

		// For SPA routing, serve index.html for non-asset paths
		if !strings.HasPrefix(path, "/assets/") {
			indexFile, err := fs.Open("/index.html")
			if err == nil {
				defer indexFile.Close()
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(http.StatusOK)
				io.Copy(w, indexFile)
				return
			}
		}
	}

	// Fallback: return placeholder page if no frontend is built
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>Face Studio</title>
    <style>
        body { font-family: system-ui, sans-serif; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0; background: #1a1a2e; color: #eee; }
        .container { text-align: center; }
        h1 { color: #00d9ff; }
        p { color: #aaa; }
        a { color: #00d9ff; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Face Studio Web UI</h1>
        <p>No frontend bundle is embedded in this build.</p>
        <p>API is available at <a href="/api/v1/health">/api/v1/health</a></p>
    </div>
</body>
</html>`))
}
