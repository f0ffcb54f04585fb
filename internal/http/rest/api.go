package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/planetcalm/petmap/config"
	deps "github.com/planetcalm/petmap/internal/debs"
	"github.com/planetcalm/petmap/internal/geo"
	"github.com/planetcalm/petmap/internal/model"
	"github.com/planetcalm/petmap/util/values"
	"github.com/planetcalm/petmap/util/websockets"
	"github.com/rs/zerolog"
)

const (
	defaultIdleTimeout    = time.Minute
	defaultReadTimeout    = 5 * time.Second
	defaultWriteTimeout   = 10 * time.Second
	defaultShutdownPeriod = 30 * time.Second
)

type Handler func(w http.ResponseWriter, r *http.Request) *ServerResponse

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := h(w, r)
	respByte, err := json.Marshal(resp)
	if err != nil {
		writeErrorResponse(w, err, values.Error, "unable to marshal server response")
		return
	}
	writeJSONResponse(w, respByte, resp.StatusCode)
}

// Broadcaster pushes events to connected viewers. Satisfied by the
// websockets manager; faked in handler tests.
type Broadcaster interface {
	BroadcastNewPin(pin websockets.NewPinEvent)
	BroadcastMemberCount(count int64)
}

// MemberForwarder is the downstream CRM integration. Its error is logged
// and discarded at the one call site; it never fails a request.
type MemberForwarder interface {
	ForwardMember(ctx context.Context, member model.Member) error
}

type API struct {
	Server *http.Server
	Config *config.Config
	Deps   *deps.Dependencies
	Log    zerolog.Logger

	Members     MemberStore
	Subscribers SubscriberStore
	Resolver    *geo.Resolver
	Broadcast   Broadcaster
	CRM         MemberForwarder

	startedAt time.Time
}

// Init wires the store, resolver and fan-out targets from the dependency
// container. Tests skip it and set the fields directly.
func (api *API) Init() {
	api.Log = api.Deps.Log
	api.Members = NewMemberRepo(api.Deps.Pool())
	api.Subscribers = NewSubscriberRepo(api.Deps.DB)
	api.Resolver = geo.NewResolver(api.Deps.Mapbox, geo.NewJitterer(), api.Config.GeocodeTimeout, api.Deps.Log)
	api.Broadcast = api.Deps.WebSocket
	api.CRM = api.Deps.HighLevel
	api.Deps.WebSocket.CountFunc = api.Members.CountMembers
	api.startedAt = time.Now()
}

func (api *API) Serve() error {
	api.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", api.Config.Port),
		IdleTimeout:  defaultIdleTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		Handler:      api.setUpServerHandler(),
	}
	return api.Server.ListenAndServe()
}

func (api *API) setUpServerHandler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{api.Config.FrontendURL, "https://*.gohighlevel.com", "https://*.highlevel.io"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", values.HeaderWebhookSecret, values.HeaderRequestID, values.HeaderRequestSource},
		AllowCredentials: true,
	}))
	mux.Use(RequestTracing)

	mux.Get("/health", api.healthCheck)
	mux.Get("/api", api.apiInfo)
	mux.Get("/ws", api.Deps.WebSocket.HandleConnections)

	mux.Mount("/api/members", api.MemberRoutes())
	mux.Mount("/api/subscribers", api.SubscriberRoutes())

	return mux
}

func (api *API) healthCheck(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(api.startedAt).Seconds(),
	}
	body, _ := json.Marshal(resp)
	writeJSONResponse(w, body, http.StatusOK)
}

func (api *API) apiInfo(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]interface{}{
		"name":    "Planet Calm API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"members":     "/api/members",
			"memberCount": "/api/members/count",
			"webhook":     "/api/members/webhook",
			"webhookTest": "/api/members/webhook/test",
			"subscribers": "/api/subscribers",
			"live":        "/ws",
			"health":      "/health",
		},
	}
	body, _ := json.Marshal(resp)
	writeJSONResponse(w, body, http.StatusOK)
}

func (a *API) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownPeriod)
	defer cancel()

	return a.Server.Shutdown(ctx)
}
