package rest

import (
	"fmt"
	"net/http"

	"github.com/planetcalm/petmap/internal/geo"
	"github.com/planetcalm/petmap/internal/model"
	"github.com/planetcalm/petmap/util"
	"github.com/planetcalm/petmap/util/tracing"
	"github.com/planetcalm/petmap/util/values"
)

// WebhookCreateMember accepts loosely-structured submissions from
// automation tools (GoHighLevel, Make.com, Zapier). Field names are
// normalized first; coordinates take priority when present and valid,
// otherwise city+country go through the resolver. Semantics match the
// direct submission path.
func (api *API) WebhookCreateMember(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	var raw map[string]interface{}
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &raw); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode webhook payload", values.BadRequestBody, &tc)
	}

	data := normalizeWebhookPayload(raw)

	if data.PetName == "" {
		return respondWithError(nil, "Missing required field: petName", values.BadRequestBody, &tc)
	}
	if len(data.PetName) > 100 {
		return respondWithError(nil, "Pet name must be less than 100 characters", values.BadRequestBody, &tc)
	}
	if !validPetType(data.PetType) {
		data.PetType = "Other"
	}
	if data.PetStatus != model.PetStatusWithYou && data.PetStatus != model.PetStatusInHeart {
		data.PetStatus = model.PetStatusWithYou
	}

	var resolved geo.Resolved
	var location model.Location
	resolvedOK := false

	// Direct coordinates win when they are present and in range; invalid
	// coordinates fall through to the city/country requirement.
	if lat, lng, ok := webhookCoordinates(raw); ok {
		result, err := api.Resolver.Resolve(r.Context(), geo.Query{Latitude: &lat, Longitude: &lng}, true)
		if err == nil {
			resolved = result
			resolvedOK = true
			location = webhookCoordinateLocation(data, lat, lng)
		} else {
			api.Log.Warn().Float64("lat", lat).Float64("lng", lng).Msg("webhook coordinates out of range, trying city/country")
		}
	}

	if !resolvedOK {
		if data.City == "" || data.Country == "" {
			return respondWithError(nil, "Missing required fields: either (latitude, longitude) or (city, country) required", values.BadRequestBody, &tc)
		}

		result, err := api.Resolver.Resolve(r.Context(), geo.Query{City: data.City, State: data.State, Country: data.Country}, true)
		if err != nil {
			return respondWithError(err, "Could not geocode location", values.BadRequestBody, &tc)
		}
		resolved = result
		location = model.Location{City: data.City, State: data.State, Country: data.Country}
	}

	member := model.Member{
		PetName:    data.PetName,
		PetType:    data.PetType,
		PetStatus:  data.PetStatus,
		Location:   location,
		Longitude:  resolved.Longitude,
		Latitude:   resolved.Latitude,
		Email:      util.NormalizeEmail(data.Email),
		Source:     model.SourceWebhook,
		IsVerified: true,
		IsActive:   true,
	}

	created, status, message, err := api.CreateMemberHelper(r.Context(), member)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	api.afterCreate(created)

	return &ServerResponse{
		Message:    "Pin placed successfully",
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data: map[string]interface{}{
			"id":       created.ID,
			"petName":  created.PetName,
			"petType":  created.PetType,
			"location": created.Location.Formatted,
			"coordinates": model.Coordinates{
				Lat: created.Latitude,
				Lng: created.Longitude,
			},
		},
	}
}

// TestWebhook echoes the received and normalized payloads so integrators
// can check their field mapping without creating a pin.
func (api *API) TestWebhook(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	var raw map[string]interface{}
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &raw); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode webhook payload", values.BadRequestBody, &tc)
	}

	secretProvided := "not provided"
	if r.Header.Get(values.HeaderWebhookSecret) != "" {
		secretProvided = "provided"
	}

	return &ServerResponse{
		Message:    "Test webhook received successfully",
		Status:     values.Success,
		StatusCode: util.StatusCode(values.Success),
		Data: map[string]interface{}{
			"receivedData":   raw,
			"normalizedData": normalizeWebhookPayload(raw),
			"headers": map[string]string{
				"contentType":   r.Header.Get("Content-Type"),
				"webhookSecret": secretProvided,
			},
		},
	}
}

// webhookCoordinateLocation builds the display location for a
// coordinate-carrying webhook. City/country from the payload are kept
// when present.
func webhookCoordinateLocation(data CanonicalPayload, lat, lng float64) model.Location {
	loc := model.Location{City: data.City, State: data.State, Country: data.Country}
	if loc.City == "" {
		loc.City = fmt.Sprintf("%.4f, %.4f", lat, lng)
	}
	if loc.Country == "" {
		loc.Country = "GPS Location"
	}
	return loc
}

func validPetType(petType string) bool {
	for _, t := range model.PetTypes {
		if petType == t {
			return true
		}
	}
	return false
}
