package rest

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/planetcalm/petmap/internal/model"
)

// MemberRepo is the Postgres MemberStore.
type MemberRepo struct {
	DB *pgxpool.Pool
}

func NewMemberRepo(pool *pgxpool.Pool) *MemberRepo {
	return &MemberRepo{DB: pool}
}

const memberColumns = `
    id, pet_name, pet_type, pet_status, city, state, country, formatted,
    longitude, latitude, first_name, email, source, affiliate_id,
    is_verified, is_active, created_at`

func scanMember(row pgx.Row) (model.Member, error) {
	var m model.Member
	err := row.Scan(
		&m.ID, &m.PetName, &m.PetType, &m.PetStatus,
		&m.Location.City, &m.Location.State, &m.Location.Country, &m.Location.Formatted,
		&m.Longitude, &m.Latitude, &m.FirstName, &m.Email, &m.Source, &m.AffiliateID,
		&m.IsVerified, &m.IsActive, &m.CreatedAt,
	)
	return m, err
}

// CreateMember inserts a new pin. A uniqueness collision surfaces as
// ErrDuplicateMember so the handler can answer with a friendly conflict.
func (r *MemberRepo) CreateMember(ctx context.Context, member model.Member) (model.Member, error) {
	query := `
        INSERT INTO members (
            pet_name, pet_type, pet_status, city, state, country, formatted,
            longitude, latitude, first_name, email, source, affiliate_id
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
        ) RETURNING` + memberColumns

	created, err := scanMember(r.DB.QueryRow(ctx, query,
		member.PetName, member.PetType, member.PetStatus,
		member.Location.City, member.Location.State, member.Location.Country, member.Location.Formatted,
		member.Longitude, member.Latitude, member.FirstName, member.Email,
		member.Source, member.AffiliateID,
	))
	if err != nil {
		// Check for unique violation (Postgres error code "23505")
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.Member{}, ErrDuplicateMember
		}
		return model.Member{}, err
	}
	return created, nil
}

// ListActiveMembers returns every visible pin, newest first.
func (r *MemberRepo) ListActiveMembers(ctx context.Context) ([]model.Member, error) {
	query := `
        SELECT` + memberColumns + `
        FROM members
        WHERE is_active = TRUE AND is_verified = TRUE
        ORDER BY created_at DESC`

	rows, err := r.DB.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *MemberRepo) CountMembers(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM members WHERE is_active = TRUE AND is_verified = TRUE`,
	).Scan(&count)
	return count, err
}

func (r *MemberRepo) RecentMembers(ctx context.Context, limit int) ([]model.Member, error) {
	if limit <= 0 || limit > MaxRecentMembers {
		limit = MaxRecentMembers
	}

	query := `
        SELECT` + memberColumns + `
        FROM members
        WHERE is_active = TRUE AND is_verified = TRUE
        ORDER BY created_at DESC
        LIMIT $1`

	rows, err := r.DB.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *MemberRepo) GetMemberByID(ctx context.Context, id uuid.UUID) (model.Member, error) {
	query := `SELECT` + memberColumns + ` FROM members WHERE id = $1`

	m, err := scanMember(r.DB.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Member{}, ErrMemberNotFound
	}
	return m, err
}
