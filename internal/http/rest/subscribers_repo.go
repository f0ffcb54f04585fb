package rest

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/planetcalm/petmap/internal/db"
	"github.com/planetcalm/petmap/internal/model"
	"github.com/planetcalm/petmap/util"
)

// SubscriberRepo is the Postgres SubscriberStore.
type SubscriberRepo struct {
	DB *db.DB
}

func NewSubscriberRepo(database *db.DB) *SubscriberRepo {
	return &SubscriberRepo{DB: database}
}

const subscriberColumns = `
    id, first_name, email, member_id, pref_whispers, pref_updates,
    source, status, created_at, updated_at`

func scanSubscriber(row pgx.Row) (model.Subscriber, error) {
	var s model.Subscriber
	err := row.Scan(
		&s.ID, &s.FirstName, &s.Email, &s.MemberID,
		&s.Preferences.Whispers, &s.Preferences.Updates,
		&s.Source, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

// Subscribe is idempotent: an active email is a no-op, an unsubscribed one
// is reactivated, anything else is inserted. The row lock keeps two
// concurrent signups for the same email from racing past the select.
func (r *SubscriberRepo) Subscribe(ctx context.Context, firstName, email string) (model.Subscriber, SubscribeOutcome, error) {
	email = util.NormalizeEmail(email)

	var subscriber model.Subscriber
	var outcome SubscribeOutcome

	err := r.DB.RunInTx(ctx, func(tx pgx.Tx) error {
		existing, err := scanSubscriber(tx.QueryRow(ctx,
			`SELECT`+subscriberColumns+` FROM subscribers WHERE email = $1 FOR UPDATE`, email))
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		if err == nil {
			if existing.Status == model.SubscriberUnsubscribed {
				reactivated, err := scanSubscriber(tx.QueryRow(ctx, `
                    UPDATE subscribers
                    SET status = $2, first_name = $3, updated_at = NOW()
                    WHERE id = $1
                    RETURNING`+subscriberColumns,
					existing.ID, model.SubscriberActive, firstName))
				if err != nil {
					return err
				}
				subscriber = reactivated
				outcome = SubscribeReactivated
				return nil
			}

			subscriber = existing
			outcome = SubscribeExisting
			return nil
		}

		created, err := scanSubscriber(tx.QueryRow(ctx, `
            INSERT INTO subscribers (first_name, email, source, status)
            VALUES ($1, $2, $3, $4)
            RETURNING`+subscriberColumns,
			firstName, email, model.SourceWebsite, model.SubscriberActive))
		if err != nil {
			return err
		}
		subscriber = created
		outcome = SubscribeCreated
		return nil
	})

	if err != nil {
		// A concurrent insert can still slip past the select; the unique
		// index turns that into an already-subscribed outcome.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.Subscriber{}, SubscribeExisting, nil
		}
		return model.Subscriber{}, 0, err
	}

	return subscriber, outcome, nil
}

func (r *SubscriberRepo) Unsubscribe(ctx context.Context, email string) error {
	tag, err := r.DB.Pool().Exec(ctx, `
        UPDATE subscribers
        SET status = $2, updated_at = NOW()
        WHERE email = $1`,
		util.NormalizeEmail(email), model.SubscriberUnsubscribed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSubscriberNotFound
	}
	return nil
}

func (r *SubscriberRepo) ActiveSubscriberCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB.Pool().QueryRow(ctx,
		`SELECT COUNT(*) FROM subscribers WHERE status = $1`, model.SubscriberActive,
	).Scan(&count)
	return count, err
}
