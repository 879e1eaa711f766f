package pdfx

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Run starts the HTTP server backing the PDF annotation plugin.
//
// # API Endpoints
//
// Health check:
//
//	GET  /health                                      - Service health status
//	GET  /api/health                                  - Same, under the API prefix
//
// Authentication (stand-in for the course platform's session layer):
//
//	POST /api/auth/signup                             - Register new account
//	POST /api/auth/signin                             - Authenticate existing user
//	POST /api/auth/signout                            - End session
//	GET  /api/auth/me                                 - Current authenticated user
//	POST /api/auth/refresh                            - Rotate session token
//
// Documents (write operations require staff):
//
//	POST   /api/documents                             - Register a document
//	GET    /api/documents/{id}                        - Get document metadata
//	PUT    /api/documents/{id}                        - Update metadata and permissions
//	DELETE /api/documents/{id}                        - Delete document
//	GET    /api/courses/{courseId}/documents          - List course documents
//
// Document content:
//
//	POST /api/documents/{id}/file                     - Upload the PDF (staff)
//	GET  /api/documents/{id}/file                     - Stream uploaded bytes
//	GET  /api/documents/{id}/source                   - Viewer bootstrap (URL + permissions)
//	GET  /api/documents/{id}/download                 - Download as attachment
//	POST /api/documents/{id}/thumbnail                - Set preview image (staff)
//	GET  /api/documents/{id}/thumbnail                - Get preview image
//
// Annotations (the plugin protocol):
//
//	POST   /api/documents/{id}/annotations            - Save annotation payload
//	GET    /api/documents/{id}/annotations            - Load caller's view (?aggregate=1 for staff)
//	DELETE /api/documents/{id}/annotations            - Clear caller's document annotations
//	DELETE /api/documents/{id}/annotations/pages/{page} - Clear caller's page annotations
//
// Administration (staff):
//
//	GET  /api/admin/readonly                          - Current maintenance state
//	POST /api/admin/readonly                          - Toggle maintenance mode
//
// The server runs until ctx is cancelled or a fatal error occurs. On
// cancellation it allows up to 5 seconds for in-flight requests to finish.
func (a *App) Run(ctx context.Context, cmd *RunCommand) error {
	router := a.router()

	addr := fmt.Sprintf(":%s", a.config.ServerPort)
	a.log.Info().
		Str("addr", addr).
		Str("backend", a.config.Backend).
		Bool("read_only", a.IsReadOnly()).
		Msg("starting pdfx server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}

// statusWriter captures the response status for the request log line.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// requestLogger emits one debug line per request with method, path, status,
// and duration.
func (a *App) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		a.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// router builds the full route table. Split from Run so tests can mount the
// handlers on httptest servers without binding the configured port.
func (a *App) router() *mux.Router {
	router := mux.NewRouter()
	router.Use(a.requestLogger)

	api := router.PathPrefix("/api").Subrouter()

	// Health check
	api.HandleFunc("/health", a.handleHealth).Methods("GET")

	// Auth routes
	api.HandleFunc("/auth/signup", a.handleSignUp).Methods("POST")
	api.HandleFunc("/auth/signin", a.handleSignIn).Methods("POST")
	api.HandleFunc("/auth/signout", a.handleSignOut).Methods("POST")
	api.HandleFunc("/auth/me", a.handleGetCurrentUser).Methods("GET")
	api.HandleFunc("/auth/refresh", a.handleRefreshToken).Methods("POST")

	// Document routes
	api.HandleFunc("/documents", a.handleCreateDocument).Methods("POST")
	api.HandleFunc("/documents/{id}", a.handleGetDocument).Methods("GET")
	api.HandleFunc("/documents/{id}", a.handleUpdateDocument).Methods("PUT")
	api.HandleFunc("/documents/{id}", a.handleDeleteDocument).Methods("DELETE")
	api.HandleFunc("/courses/{courseId}/documents", a.handleListDocuments).Methods("GET")

	// Document content routes
	api.HandleFunc("/documents/{id}/file", a.handleUploadFile).Methods("POST")
	api.HandleFunc("/documents/{id}/file", a.handleServeFile).Methods("GET")
	api.HandleFunc("/documents/{id}/source", a.handleGetSource).Methods("GET")
	api.HandleFunc("/documents/{id}/download", a.handleDownload).Methods("GET")
	api.HandleFunc("/documents/{id}/thumbnail", a.handleSetThumbnail).Methods("POST")
	api.HandleFunc("/documents/{id}/thumbnail", a.handleGetThumbnail).Methods("GET")

	// Annotation routes
	api.HandleFunc("/documents/{id}/annotations", a.handleSaveAnnotations).Methods("POST")
	api.HandleFunc("/documents/{id}/annotations", a.handleLoadAnnotations).Methods("GET")
	api.HandleFunc("/documents/{id}/annotations", a.handleClearAll).Methods("DELETE")
	api.HandleFunc("/documents/{id}/annotations/pages/{page}", a.handleClearPage).Methods("DELETE")

	// Admin routes
	api.HandleFunc("/admin/readonly", a.handleGetReadOnly).Methods("GET")
	api.HandleFunc("/admin/readonly", a.handleSetReadOnly).Methods("POST")

	// Health check route (outside of /api prefix)
	router.HandleFunc("/health", a.handleHealth).Methods("GET")

	return router
}
