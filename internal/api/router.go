package api

import (
	"github.com/gorilla/mux"

	"github.com/standuphq/standup-engine/internal/api/recovery"
	"github.com/standuphq/standup-engine/internal/auth"
	"github.com/standuphq/standup-engine/internal/services"
)

// NewRouter wires all API routes. serviceHealthy reports cached dependency
// health; pass nil to report healthy unconditionally.
func NewRouter(standups *services.StandupService, integrations *services.IntegrationService, authorizer auth.Authorizer, serviceHealthy func() bool) *mux.Router {
	router := mux.NewRouter()
	router.Use(recovery.Middleware)

	healthHandler := NewHealthHandler(serviceHealthy)
	router.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")

	standupHandler := NewStandupHandler(standups)
	integrationHandler := NewIntegrationHandler(integrations)

	// Everything under /api/users requires a token that may act as {userId}.
	users := router.PathPrefix("/api/users/{userId}").Subrouter()
	users.Use(AuthMiddleware(authorizer))

	users.HandleFunc("/standups/generate", standupHandler.Generate).Methods("POST")
	users.HandleFunc("/standups", standupHandler.List).Methods("GET")
	users.HandleFunc("/standups/date/{date}", standupHandler.GetByDate).Methods("GET")
	users.HandleFunc("/standups/{standupId}/regenerate", standupHandler.Regenerate).Methods("POST")
	users.HandleFunc("/standups/{standupId}", standupHandler.Get).Methods("GET")
	users.HandleFunc("/standups/{standupId}", standupHandler.Delete).Methods("DELETE")

	users.HandleFunc("/integrations", integrationHandler.Connect).Methods("POST")
	users.HandleFunc("/integrations", integrationHandler.List).Methods("GET")
	users.HandleFunc("/integrations/{provider}/verify", integrationHandler.Verify).Methods("POST")
	users.HandleFunc("/integrations/{provider}", integrationHandler.Disconnect).Methods("DELETE")

	return router
}
