package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Pet types accepted on a pin.
var PetTypes = []string{"Dog", "Cat", "Bird", "Fish", "Rabbit", "Hamster", "Horse", "Reptile", "Other"}

const (
	PetStatusWithYou = "with-you"
	PetStatusInHeart = "in-heart"
)

const (
	SourceWebsite = "website"
	SourceWebhook = "webhook"
	SourceManual  = "manual"
)

// Location holds the display fields for a pin. Formatted is derived
// from city/state/country at write time.
type Location struct {
	City      string `json:"city"`
	State     string `json:"state,omitempty"`
	Country   string `json:"country"`
	Formatted string `json:"formatted,omitempty"`
}

// Format builds the display string "city[, state], country".
func (l Location) Format() string {
	parts := make([]string, 0, 3)
	if l.City != "" {
		parts = append(parts, l.City)
	}
	if l.State != "" {
		parts = append(parts, l.State)
	}
	if l.Country != "" {
		parts = append(parts, l.Country)
	}
	return strings.Join(parts, ", ")
}

// Member is one map pin: a pet, its owner and a jittered coordinate pair.
type Member struct {
	ID          uuid.UUID `json:"id"`
	PetName     string    `json:"petName" validate:"required,max=100"`
	PetType     string    `json:"petType" validate:"required,oneof=Dog Cat Bird Fish Rabbit Hamster Horse Reptile Other"`
	PetStatus   string    `json:"petStatus" validate:"required,oneof=with-you in-heart"`
	Location    Location  `json:"location"`
	Longitude   float64   `json:"longitude" validate:"longitude"`
	Latitude    float64   `json:"latitude" validate:"latitude"`
	FirstName   string    `json:"firstName,omitempty" validate:"omitempty,max=100"`
	Email       string    `json:"email,omitempty" validate:"omitempty,email"`
	Source      string    `json:"source" validate:"required,oneof=website webhook manual"`
	AffiliateID string    `json:"affiliateId,omitempty"`
	IsVerified  bool      `json:"isVerified"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CreateMemberRequest is the direct-submission payload. Location mode is
// selected by UseCoordinates: city/country are required without it,
// latitude/longitude with it.
type CreateMemberRequest struct {
	FirstName      string   `json:"firstName" validate:"omitempty,max=100"`
	Email          string   `json:"email" validate:"omitempty,email"`
	PetName        string   `json:"petName" validate:"required,max=100"`
	PetType        string   `json:"petType" validate:"required,oneof=Dog Cat Bird Fish Rabbit Hamster Horse Reptile Other"`
	PetStatus      string   `json:"petStatus" validate:"omitempty,oneof=with-you in-heart"`
	City           string   `json:"city" validate:"omitempty,max=200"`
	State          string   `json:"state" validate:"omitempty,max=200"`
	Country        string   `json:"country" validate:"omitempty,max=200"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	LocationName   string   `json:"locationName" validate:"omitempty,max=500"`
	UseCoordinates bool     `json:"useCoordinates"`
	AffiliateID    string   `json:"am_id"`
}

// CreateMemberResponse is returned on every successful pin creation.
type CreateMemberResponse struct {
	ID          uuid.UUID   `json:"id"`
	PetName     string      `json:"petName"`
	PetType     string      `json:"petType"`
	Location    Location    `json:"location"`
	Coordinates Coordinates `json:"coordinates"`
}

// Coordinates is the lat/lng pair as clients expect it.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
