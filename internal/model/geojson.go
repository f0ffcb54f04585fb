package model

import "time"

// GeoJSON shapes for the map snapshot endpoint. Coordinates are
// [longitude, latitude] per the GeoJSON spec.

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

type Feature struct {
	Type       string            `json:"type"`
	Geometry   PointGeometry     `json:"geometry"`
	Properties FeatureProperties `json:"properties"`
}

type PointGeometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

type FeatureProperties struct {
	ID        string    `json:"id"`
	PetName   string    `json:"petName"`
	PetType   string    `json:"petType"`
	PetStatus string    `json:"petStatus"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"createdAt"`
}

// MembersToGeoJSON builds the feature collection the map renders directly.
func MembersToGeoJSON(members []Member) FeatureCollection {
	features := make([]Feature, 0, len(members))
	for _, m := range members {
		location := m.Location.Formatted
		if location == "" {
			location = m.Location.City
		}
		features = append(features, Feature{
			Type: "Feature",
			Geometry: PointGeometry{
				Type:        "Point",
				Coordinates: [2]float64{m.Longitude, m.Latitude},
			},
			Properties: FeatureProperties{
				ID:        m.ID.String(),
				PetName:   m.PetName,
				PetType:   m.PetType,
				PetStatus: m.PetStatus,
				Location:  location,
				CreatedAt: m.CreatedAt,
			},
		})
	}
	return FeatureCollection{Type: "FeatureCollection", Features: features}
}
