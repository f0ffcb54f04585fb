package rest

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/planetcalm/petmap/internal/model"
	"github.com/planetcalm/petmap/util"
	"github.com/planetcalm/petmap/util/tracing"
	"github.com/planetcalm/petmap/util/values"
)

func (api *API) SubscriberRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Group(func(r chi.Router) {
		r.Use(apiRateLimit())
		r.Method(http.MethodGet, "/count", Handler(api.GetSubscriberCount))
	})

	mux.Group(func(r chi.Router) {
		r.Use(formRateLimit())
		r.Method(http.MethodPost, "/", Handler(api.CreateSubscriber))
		r.Method(http.MethodPost, "/unsubscribe", Handler(api.Unsubscribe))
	})

	return mux
}

// CreateSubscriber signs an email up for the newsletter. The operation is
// idempotent: already-active emails get a success-shaped response and
// previously unsubscribed ones are reactivated.
func (api *API) CreateSubscriber(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	var req model.CreateSubscriberRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}

	if err := util.ValidateStruct(req); err != nil {
		return respondWithFieldErrors(util.FieldErrors(err), "Validation failed", &tc)
	}

	subscriber, outcome, err := api.Subscribers.Subscribe(r.Context(), req.FirstName, req.Email)
	if err != nil {
		return respondWithError(err, "Error subscribing", values.Error, &tc)
	}

	switch outcome {
	case SubscribeReactivated:
		return &ServerResponse{
			Message:    "Welcome back! Your subscription has been reactivated.",
			Status:     values.Success,
			StatusCode: util.StatusCode(values.Success),
			Data:       map[string]bool{"isReactivated": true},
		}
	case SubscribeExisting:
		return &ServerResponse{
			Message:    "You're already subscribed! Check your inbox for Whispers.",
			Status:     values.Success,
			StatusCode: util.StatusCode(values.Success),
			Data:       map[string]bool{"isExisting": true},
		}
	default:
		return &ServerResponse{
			Message:    "Your first Whisper is on its way...",
			Status:     values.Created,
			StatusCode: util.StatusCode(values.Created),
			Data: map[string]interface{}{
				"id":        subscriber.ID,
				"firstName": subscriber.FirstName,
			},
		}
	}
}

func (api *API) Unsubscribe(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	var req model.UnsubscribeRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}

	if err := util.ValidateStruct(req); err != nil {
		return respondWithFieldErrors(util.FieldErrors(err), "Validation failed", &tc)
	}

	if err := api.Subscribers.Unsubscribe(r.Context(), req.Email); err != nil {
		if errors.Is(err, ErrSubscriberNotFound) {
			return respondWithError(err, "Email not found in our records", values.NotFound, &tc)
		}
		return respondWithError(err, "Error processing unsubscribe request", values.Error, &tc)
	}

	return &ServerResponse{
		Message:    "You have been unsubscribed. We'll miss you.",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
	}
}

func (api *API) GetSubscriberCount(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	count, err := api.Subscribers.ActiveSubscriberCount(r.Context())
	if err != nil {
		return respondWithError(err, "Error getting subscriber count", values.Error, &tc)
	}

	return &ServerResponse{
		Message:    "Subscriber count fetched successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       map[string]int64{"count": count},
	}
}
