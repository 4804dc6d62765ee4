package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/calebds/userapi/auth"
	rh "github.com/calebds/userapi/route-handlers"
	"github.com/calebds/userapi/webutil"
)

const (
	apiBasePath   = "/api"
	usersBasePath = "/users"
)

const (
	paramID = "id" // General parameter name for resource IDs
)

func SetupRoutes(userHandler *rh.UserHandler, tokens *auth.TokenIssuer) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)                    // Log every request
	r.Use(middleware.Recoverer)                 // Recover from panics
	r.Use(middleware.Timeout(60 * time.Second)) // Set a timeout context for requests

	r.Route(apiBasePath, func(r chi.Router) {
		r.Post("/signup", webutil.MakeHandler(userHandler.HandleSignup))
		r.Post("/login", webutil.MakeHandler(userHandler.HandleLogin))

		// The dashboard is the only token-gated surface.
		r.With(RequireToken(tokens)).
			Get("/dashboard", webutil.MakeHandler(userHandler.HandleDashboard))

		r.Post("/upload-excel", webutil.MakeHandler(userHandler.HandleUploadExcel))
		r.Post("/upload-csv", webutil.MakeHandler(userHandler.HandleUploadCSV))

		configureUserRoutes(r, userHandler)
	})

	// Health check endpoint
	r.Get("/healthz", handleHealthCheck)

	return r
}

// Helper for constructing paths with a parameter
func pathWithParam(basePath string, paramName string) string {
	if basePath == "" {
		return "/{" + paramName + "}"
	}
	return basePath + "/{" + paramName + "}"
}

// --- User CRUD Routes ---
func configureUserRoutes(r chi.Router, userHandler *rh.UserHandler) {
	userSpecificPath := pathWithParam("", paramID) // e.g., "/{id}"

	r.Route(usersBasePath, func(r chi.Router) {
		r.Route(userSpecificPath, func(r chi.Router) {
			r.Get("/", webutil.MakeHandler(userHandler.HandleGetUser))
			r.Put("/", webutil.MakeHandler(userHandler.HandleEditUser))
			r.Patch("/", webutil.MakeHandler(userHandler.HandlePatchUser))
			r.Delete("/", webutil.MakeHandler(userHandler.HandleDeleteUser))
		})
	})
}

// handleHealthCheck responds to a health check request.
func handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(webutil.HeaderContentType, webutil.ContentTypeTextPlainUTF8)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
