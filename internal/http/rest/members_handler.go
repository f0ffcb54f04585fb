package rest

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/planetcalm/petmap/internal/geo"
	"github.com/planetcalm/petmap/internal/model"
	"github.com/planetcalm/petmap/util"
	"github.com/planetcalm/petmap/util/tracing"
	"github.com/planetcalm/petmap/util/values"
)

func (api *API) MemberRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Group(func(r chi.Router) {
		r.Use(apiRateLimit())
		r.Method(http.MethodGet, "/", Handler(api.GetMembers))
		r.Method(http.MethodGet, "/count", Handler(api.GetMemberCount))
		r.Method(http.MethodGet, "/recent", Handler(api.GetRecentMembers))
		r.Method(http.MethodGet, "/{memberID}", Handler(api.GetMember))
	})

	mux.Group(func(r chi.Router) {
		r.Use(formRateLimit())
		r.Method(http.MethodPost, "/", Handler(api.CreateMember))
	})

	mux.Group(func(r chi.Router) {
		r.Use(api.webhookRateLimit(), api.VerifyWebhookSecret)
		// Alternative webhook paths, all behaviorally identical, so each
		// automation tool can use the alias it expects.
		r.Method(http.MethodPost, "/webhook", Handler(api.WebhookCreateMember))
		r.Method(http.MethodPost, "/hook", Handler(api.WebhookCreateMember))
		r.Method(http.MethodPost, "/gohighlevel", Handler(api.WebhookCreateMember))
		r.Method(http.MethodPost, "/make", Handler(api.WebhookCreateMember))
		r.Method(http.MethodPost, "/zapier", Handler(api.WebhookCreateMember))
	})

	mux.With(strictRateLimit()).Method(http.MethodPost, "/webhook/test", Handler(api.TestWebhook))

	return mux
}

// CreateMember handles direct pin submissions from the website form.
// Location mode is selected by useCoordinates: either an explicit point
// (GPS or manual entry) or a city/state/country query for the resolver.
func (api *API) CreateMember(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	var req model.CreateMemberRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}

	if err := util.ValidateStruct(req); err != nil {
		return respondWithFieldErrors(util.FieldErrors(err), "Validation failed", &tc)
	}

	var query geo.Query
	if req.UseCoordinates {
		if req.Latitude == nil || req.Longitude == nil {
			return respondWithError(nil, "Latitude and longitude are required when using coordinates mode", values.BadRequestBody, &tc)
		}
		query = geo.Query{Latitude: req.Latitude, Longitude: req.Longitude}
	} else {
		if req.City == "" {
			return respondWithError(nil, "City is required", values.BadRequestBody, &tc)
		}
		if req.Country == "" {
			return respondWithError(nil, "Country is required", values.BadRequestBody, &tc)
		}
		query = geo.Query{City: req.City, State: req.State, Country: req.Country}
	}

	resolved, err := api.Resolver.Resolve(r.Context(), query, true)
	if err != nil {
		if errors.Is(err, geo.ErrCoordinatesOutOfRange) {
			return respondWithError(err, "Coordinates out of valid range", values.BadRequestBody, &tc)
		}
		return respondWithError(err, "Could not resolve the provided location", values.BadRequestBody, &tc)
	}

	member := model.Member{
		PetName:     req.PetName,
		PetType:     req.PetType,
		PetStatus:   defaultPetStatus(req.PetStatus),
		Location:    locationFor(req, resolved),
		Longitude:   resolved.Longitude,
		Latitude:    resolved.Latitude,
		FirstName:   req.FirstName,
		Email:       util.NormalizeEmail(req.Email),
		Source:      model.SourceWebsite,
		AffiliateID: req.AffiliateID,
		IsVerified:  true,
		IsActive:    true,
	}

	created, status, message, err := api.CreateMemberHelper(r.Context(), member)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	api.afterCreate(created)

	return &ServerResponse{
		Message:    "Welcome to Planet Calm! Your pin has been placed.",
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data: model.CreateMemberResponse{
			ID:          created.ID,
			PetName:     created.PetName,
			PetType:     created.PetType,
			Location:    created.Location,
			Coordinates: model.Coordinates{Lat: created.Latitude, Lng: created.Longitude},
		},
	}
}

// locationFor picks the display location: coordinate submissions get a
// synthesized city line since there is no geocoded place name.
func locationFor(req model.CreateMemberRequest, resolved geo.Resolved) model.Location {
	if !req.UseCoordinates {
		return model.Location{City: req.City, State: req.State, Country: req.Country}
	}

	city := req.LocationName
	if city == "" {
		city = fmt.Sprintf("%.4f, %.4f", *req.Latitude, *req.Longitude)
	}
	return model.Location{City: city, Country: "GPS Location"}
}

func defaultPetStatus(status string) string {
	if status == "" {
		return model.PetStatusWithYou
	}
	return status
}

// GetMembers returns every visible pin as a GeoJSON feature collection the
// map can render directly.
func (api *API) GetMembers(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	members, err := api.Members.ListActiveMembers(r.Context())
	if err != nil {
		return respondWithError(err, "Error fetching members", values.Error, &tc)
	}

	return &ServerResponse{
		Message:    "Members fetched successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       model.MembersToGeoJSON(members),
	}
}

func (api *API) GetMemberCount(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	count, err := api.Members.CountMembers(r.Context())
	if err != nil {
		return respondWithError(err, "Error getting member count", values.Error, &tc)
	}

	return &ServerResponse{
		Message:    "Member count fetched successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       map[string]int64{"count": count},
	}
}

func (api *API) GetRecentMembers(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	limit := 10
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			return respondWithError(err, "Invalid 'limit' parameter", values.BadRequestBody, &tc)
		}
		limit = parsed
	}
	if limit > MaxRecentMembers {
		limit = MaxRecentMembers
	}

	members, err := api.Members.RecentMembers(r.Context(), limit)
	if err != nil {
		return respondWithError(err, "Error getting recent members", values.Error, &tc)
	}

	return &ServerResponse{
		Message:    "Recent members fetched successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       members,
	}
}

func (api *API) GetMember(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	id, err := uuid.Parse(chi.URLParam(r, "memberID"))
	if err != nil {
		return respondWithError(err, "Invalid member id", values.BadRequestBody, &tc)
	}

	member, err := api.Members.GetMemberByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return respondWithError(err, "Member not found", values.NotFound, &tc)
		}
		return respondWithError(err, "Error fetching member", values.Error, &tc)
	}

	return &ServerResponse{
		Message:    "Member fetched successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data:       member,
	}
}
