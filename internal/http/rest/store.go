package rest

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/planetcalm/petmap/internal/model"
)

// Store-level error kinds. Duplicate and not-found are recoverable and map
// to friendly responses rather than 500s.
var (
	ErrDuplicateMember    = errors.New("member already exists")
	ErrMemberNotFound     = errors.New("member not found")
	ErrSubscriberNotFound = errors.New("subscriber not found")
)

// MaxRecentMembers caps the recent-members query.
const MaxRecentMembers = 50

// MemberStore owns canonical pin state. Only pins with both moderation
// flags set are visible through the read operations.
type MemberStore interface {
	CreateMember(ctx context.Context, member model.Member) (model.Member, error)
	ListActiveMembers(ctx context.Context) ([]model.Member, error)
	CountMembers(ctx context.Context) (int64, error)
	RecentMembers(ctx context.Context, limit int) ([]model.Member, error)
	GetMemberByID(ctx context.Context, id uuid.UUID) (model.Member, error)
}

// SubscribeOutcome distinguishes the three idempotent subscribe results.
type SubscribeOutcome int

const (
	SubscribeCreated SubscribeOutcome = iota
	SubscribeExisting
	SubscribeReactivated
)

// SubscriberStore owns newsletter signups. Email uniqueness is enforced by
// the store; re-subscribing an unsubscribed email reactivates it.
type SubscriberStore interface {
	Subscribe(ctx context.Context, firstName, email string) (model.Subscriber, SubscribeOutcome, error)
	Unsubscribe(ctx context.Context, email string) error
	ActiveSubscriberCount(ctx context.Context) (int64, error)
}
