package rest

import (
	"strconv"
	"strings"
)

// CanonicalPayload is the flat member-creation payload after resolving the
// field-naming conventions of the various automation tools. Missing
// required fields stay empty; the handler validates afterward.
type CanonicalPayload struct {
	PetName   string
	PetType   string
	PetStatus string
	City      string
	State     string
	Country   string
	Email     string
	Source    string
}

// Candidate key lists per canonical field, in priority order. Automation
// tools variously emit camelCase, snake_case, "Title Case" and hyphenated
// keys; first non-empty wins.
var (
	petNameKeys   = []string{"petName", "pet_name", "Pet Name", "pet-name"}
	petTypeKeys   = []string{"petType", "pet_type", "Pet Type", "pet-type"}
	petStatusKeys = []string{"petStatus", "pet_status", "Pet Status", "pet-status"}
	cityKeys      = []string{"city", "City"}
	stateKeys     = []string{"state", "State", "province", "Province"}
	countryKeys   = []string{"country", "Country"}
	emailKeys     = []string{"email", "Email"}

	latitudeKeys  = []string{"latitude", "lat"}
	longitudeKeys = []string{"longitude", "lng", "lon"}
)

// normalizeWebhookPayload maps a raw webhook body to the canonical shape.
// Some tools nest the real fields under "data" or "fields"; one level of
// unwrapping is applied first.
func normalizeWebhookPayload(raw map[string]interface{}) CanonicalPayload {
	flat := unwrapPayload(raw)

	out := CanonicalPayload{
		PetName:   firstNonEmpty(flat, petNameKeys),
		PetType:   firstNonEmpty(flat, petTypeKeys),
		PetStatus: firstNonEmpty(flat, petStatusKeys),
		City:      firstNonEmpty(flat, cityKeys),
		State:     firstNonEmpty(flat, stateKeys),
		Country:   firstNonEmpty(flat, countryKeys),
		Email:     firstNonEmpty(flat, emailKeys),
		Source:    "webhook",
	}

	if out.PetType == "" {
		out.PetType = "Other"
	}
	if out.PetStatus == "" {
		out.PetStatus = "with-you"
	}
	if s, ok := raw["source"].(string); ok && s != "" {
		out.Source = s
	}

	return out
}

// webhookCoordinates reads lat/lng from the raw (unwrapped) payload.
// Coordinates follow their own key set and may arrive as numbers or
// strings depending on the tool.
func webhookCoordinates(raw map[string]interface{}) (lat, lng float64, ok bool) {
	flat := unwrapPayload(raw)

	latVal, latOK := firstNumeric(flat, latitudeKeys)
	lngVal, lngOK := firstNumeric(flat, longitudeKeys)
	if !latOK || !lngOK {
		return 0, 0, false
	}
	return latVal, lngVal, true
}

func unwrapPayload(raw map[string]interface{}) map[string]interface{} {
	if nested, ok := raw["data"].(map[string]interface{}); ok {
		return nested
	}
	if nested, ok := raw["fields"].(map[string]interface{}); ok {
		return nested
	}
	return raw
}

func firstNonEmpty(data map[string]interface{}, keys []string) string {
	for _, key := range keys {
		if v, ok := data[key]; ok {
			if s, ok := v.(string); ok {
				if trimmed := strings.TrimSpace(s); trimmed != "" {
					return trimmed
				}
			}
		}
	}
	return ""
}

func firstNumeric(data map[string]interface{}, keys []string) (float64, bool) {
	for _, key := range keys {
		v, ok := data[key]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n, true
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}
