package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	SubscriberActive       = "active"
	SubscriberUnsubscribed = "unsubscribed"
	SubscriberBounced      = "bounced"
)

// Preferences are the mailing flags, both on by default.
type Preferences struct {
	Whispers bool `json:"whispers"`
	Updates  bool `json:"updates"`
}

// Subscriber is one newsletter signup. Email is stored lowercased and is
// unique at the store.
type Subscriber struct {
	ID          uuid.UUID   `json:"id"`
	FirstName   string      `json:"firstName"`
	Email       string      `json:"email"`
	MemberID    *uuid.UUID  `json:"memberId,omitempty"`
	Preferences Preferences `json:"preferences"`
	Source      string      `json:"source"`
	Status      string      `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

type CreateSubscriberRequest struct {
	FirstName string `json:"firstName" validate:"omitempty,max=100"`
	Email     string `json:"email" validate:"required,email"`
}

type UnsubscribeRequest struct {
	Email string `json:"email" validate:"required,email"`
}
