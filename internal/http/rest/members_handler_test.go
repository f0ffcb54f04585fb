package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/planetcalm/petmap/config"
	"github.com/planetcalm/petmap/internal/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// A city submission with the geocoder down must still succeed: the pin
// lands near the country's fallback center, one new-pin event goes out
// and the count rises by one.
func TestCreateMemberGeocodingDownFallsBack(t *testing.T) {
	env := newTestEnv(nil)
	env.geocoder.err = errors.New("connection refused")
	handler := env.api.setUpServerHandler()

	rec := doJSON(t, handler, http.MethodPost, "/api/members", map[string]interface{}{
		"petName": "Luna",
		"petType": "Cat",
		"city":    "Paris",
		"country": "France",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decodeResponse(t, rec)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "Luna", data["petName"])
	assert.Equal(t, "Cat", data["petType"])

	coords := data["coordinates"].(map[string]interface{})
	center, ok := geo.CountryCenter("France")
	require.True(t, ok)
	assert.InDelta(t, center.Longitude, coords["lng"].(float64), 2.5)
	assert.InDelta(t, center.Latitude, coords["lat"].(float64), 2.5)

	pins := env.broadcast.pinEvents()
	require.Len(t, pins, 1, "exactly one new-pin event")
	assert.Equal(t, "Luna", pins[0].PetName)
	assert.Equal(t, "with-you", pins[0].PetStatus)
	assert.Equal(t, "Paris, France", pins[0].Location.Formatted)

	counts := env.broadcast.countEvents()
	require.Len(t, counts, 1)
	assert.Equal(t, int64(1), counts[0])

	select {
	case forwarded := <-env.crm.forwards:
		assert.Equal(t, "Luna", forwarded.PetName)
	case <-time.After(time.Second):
		t.Fatal("CRM forward never fired")
	}
}

func TestCreateMemberGeocodedPath(t *testing.T) {
	env := newTestEnv(nil)
	env.geocoder.match = &geo.Match{Longitude: 2.3522, Latitude: 48.8566, Relevance: 0.9}
	handler := env.api.setUpServerHandler()

	rec := doJSON(t, handler, http.MethodPost, "/api/members", map[string]interface{}{
		"firstName": "Amélie",
		"email":     "Amelie@Example.com",
		"petName":   "Luna",
		"petType":   "Cat",
		"city":      "Paris",
		"country":   "France",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.Len(t, env.members.members, 1)
	created := env.members.members[0]
	assert.Equal(t, "amelie@example.com", created.Email, "email stored lowercased")
	assert.Equal(t, "website", created.Source)
	assert.InDelta(t, 2.3522, created.Longitude, geo.GeocodedJitter)
	assert.InDelta(t, 48.8566, created.Latitude, geo.GeocodedJitter)
}

func TestCreateMemberCoordinatesMode(t *testing.T) {
	env := newTestEnv(nil)
	handler := env.api.setUpServerHandler()

	rec := doJSON(t, handler, http.MethodPost, "/api/members", map[string]interface{}{
		"petName":        "Rex",
		"petType":        "Dog",
		"useCoordinates": true,
		"latitude":       40.7128,
		"longitude":      -74.0060,
		"locationName":   "Brooklyn rooftop",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, 0, env.geocoder.calls, "coordinate mode must not geocode")

	require.Len(t, env.members.members, 1)
	created := env.members.members[0]
	assert.Equal(t, "Brooklyn rooftop", created.Location.City)
	assert.Equal(t, "GPS Location", created.Location.Country)
	assert.InDelta(t, -74.0060, created.Longitude, geo.CoordinateJitter)
	assert.InDelta(t, 40.7128, created.Latitude, geo.CoordinateJitter)
}

func TestCreateMemberCoordinatesOutOfRange(t *testing.T) {
	env := newTestEnv(nil)
	handler := env.api.setUpServerHandler()

	rec := doJSON(t, handler, http.MethodPost, "/api/members", map[string]interface{}{
		"petName":        "Rex",
		"petType":        "Dog",
		"useCoordinates": true,
		"latitude":       95.0,
		"longitude":      10.0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, env.members.members)
	assert.Empty(t, env.broadcast.pinEvents())
}

func TestCreateMemberMissingCityOrCountry(t *testing.T) {
	env := newTestEnv(nil)
	handler := env.api.setUpServerHandler()

	for _, body := range []map[string]interface{}{
		{"petName": "Luna", "petType": "Cat", "country": "France"},
		{"petName": "Luna", "petType": "Cat", "city": "Paris"},
	} {
		rec := doJSON(t, handler, http.MethodPost, "/api/members", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
	assert.Empty(t, env.members.members)
}

func TestCreateMemberInvalidPetType(t *testing.T) {
	env := newTestEnv(nil)
	handler := env.api.setUpServerHandler()

	rec := doJSON(t, handler, http.MethodPost, "/api/members", map[string]interface{}{
		"petName": "Ziggy",
		"petType": "Dinosaur",
		"city":    "Paris",
		"country": "France",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeResponse(t, rec)
	require.NotNil(t, resp["errors"], "validation failures carry field detail")
}

// An invalid webhook latitude falls through to the city/country
// requirement; with neither present the request fails and nothing is
// created or broadcast.
func TestWebhookInvalidCoordinatesNoLocation(t *testing.T) {
	env := newTestEnv(nil)
	handler := env.api.setUpServerHandler()

	rec := doJSON(t, handler, http.MethodPost, "/api/members/webhook", map[string]interface{}{
		"data": map[string]interface{}{
			"pet_name": "Rex",
			"lat":      "91",
			"lng":      "10",
		},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, env.members.members)
	assert.Empty(t, env.broadcast.pinEvents())
	assert.Empty(t, env.broadcast.countEvents())
}

func TestWebhookCreatesFromNormalizedFields(t *testing.T) {
	env := newTestEnv(nil)
	env.geocoder.match = &geo.Match{Longitude: 13.4050, Latitude: 52.5200, Relevance: 0.8}
	handler := env.api.setUpServerHandler()

	rec := doJSON(t, handler, http.MethodPost, "/api/members/webhook", map[string]interface{}{
		"fields": map[string]interface{}{
			"Pet Name": "Fido",
			"pet_type": "Dog",
			"city":     "Berlin",
			"country":  "Germany",
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.Len(t, env.members.members, 1)
	created := env.members.members[0]
	assert.Equal(t, "Fido", created.PetName)
	assert.Equal(t, "Dog", created.PetType)
	assert.Equal(t, "webhook", created.Source)
	assert.Equal(t, "Berlin, Germany", created.Location.Formatted)
}

func TestWebhookAliasesBehaveIdentically(t *testing.T) {
	env := newTestEnv(nil)
	env.geocoder.match = &geo.Match{Longitude: 13.4050, Latitude: 52.5200, Relevance: 0.8}
	handler := env.api.setUpServerHandler()

	for i, path := range []string{"/api/members/webhook", "/api/members/hook", "/api/members/gohighlevel", "/api/members/make", "/api/members/zapier"} {
		rec := doJSON(t, handler, http.MethodPost, path, map[string]interface{}{
			"pet_name": fmt.Sprintf("Pet%d", i),
			"city":     "Berlin",
			"country":  "Germany",
		})
		assert.Equal(t, http.StatusCreated, rec.Code, "path %s: %s", path, rec.Body.String())
	}
	assert.Len(t, env.members.members, 5)
}

func TestWebhookDirectCoordinates(t *testing.T) {
	env := newTestEnv(nil)
	handler := env.api.setUpServerHandler()

	rec := doJSON(t, handler, http.MethodPost, "/api/members/webhook", map[string]interface{}{
		"pet_name": "Rex",
		"lat":      "40.7128",
		"lng":      "-74.0060",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, 0, env.geocoder.calls)
	require.Len(t, env.members.members, 1)
	assert.Equal(t, "GPS Location", env.members.members[0].Location.Country)
}

func TestWebhookSecret(t *testing.T) {
	cfg := &config.Config{FrontendURL: "http://localhost:3000", WebhookSecret: "s3cret"}
	env := newTestEnv(cfg)
	handler := env.api.setUpServerHandler()

	body := map[string]interface{}{"pet_name": "Rex", "lat": 1.0, "lng": 1.0}

	// Missing secret rejected.
	rec := doJSON(t, handler, http.MethodPost, "/api/members/webhook", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Header secret accepted.
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, "/api/members/webhook", &buf)
	req.Header.Set("X-Webhook-Secret", "s3cret")
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusCreated, rec2.Code, rec2.Body.String())

	// Query parameter secret accepted.
	buf.Reset()
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req = httptest.NewRequest(http.MethodPost, "/api/members/webhook?secret=s3cret", &buf)
	rec3 := httptest.NewRecorder()
	handler.ServeHTTP(rec3, req)
	assert.Equal(t, http.StatusCreated, rec3.Code, rec3.Body.String())
}

func TestGetMembersGeoJSON(t *testing.T) {
	env := newTestEnv(nil)
	env.geocoder.match = &geo.Match{Longitude: 2.3522, Latitude: 48.8566, Relevance: 1}
	handler := env.api.setUpServerHandler()

	doJSON(t, handler, http.MethodPost, "/api/members", map[string]interface{}{
		"petName": "Luna", "petType": "Cat", "city": "Paris", "country": "France",
	})

	rec := doJSON(t, handler, http.MethodGet, "/api/members", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "FeatureCollection", data["type"])

	features := data["features"].([]interface{})
	require.Len(t, features, 1)
	feature := features[0].(map[string]interface{})
	assert.Equal(t, "Feature", feature["type"])
	geom := feature["geometry"].(map[string]interface{})
	assert.Equal(t, "Point", geom["type"])
	props := feature["properties"].(map[string]interface{})
	assert.Equal(t, "Luna", props["petName"])
	assert.Equal(t, "Paris, France", props["location"])
}

func TestGetMemberCountAndRecent(t *testing.T) {
	env := newTestEnv(nil)
	env.geocoder.match = &geo.Match{Longitude: 1, Latitude: 1, Relevance: 1}
	handler := env.api.setUpServerHandler()

	for _, name := range []string{"Luna", "Milo", "Rex"} {
		doJSON(t, handler, http.MethodPost, "/api/members", map[string]interface{}{
			"petName": name, "petType": "Cat", "city": "Paris", "country": "France",
		})
	}

	rec := doJSON(t, handler, http.MethodGet, "/api/members/count", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, float64(3), resp["data"].(map[string]interface{})["count"])

	rec = doJSON(t, handler, http.MethodGet, "/api/members/recent?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeResponse(t, rec)
	recent := resp["data"].([]interface{})
	require.Len(t, recent, 2)
	assert.Equal(t, "Rex", recent[0].(map[string]interface{})["petName"], "newest first")
}

func TestGetMemberNotFound(t *testing.T) {
	env := newTestEnv(nil)
	handler := env.api.setUpServerHandler()

	rec := doJSON(t, handler, http.MethodGet, "/api/members/00000000-0000-0000-0000-000000000001", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateMemberDuplicateConflict(t *testing.T) {
	env := newTestEnv(nil)
	env.members.createErr = ErrDuplicateMember
	env.geocoder.match = &geo.Match{Longitude: 1, Latitude: 1, Relevance: 1}
	handler := env.api.setUpServerHandler()

	rec := doJSON(t, handler, http.MethodPost, "/api/members", map[string]interface{}{
		"petName": "Luna", "petType": "Cat", "city": "Paris", "country": "France",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, env.broadcast.pinEvents())
}
