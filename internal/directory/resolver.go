// Package directory resolves which devices should be notified for an event
// by querying the profiles token directory.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prophive/push-dispatcher/internal/domain"
)

// ErrUnavailable marks a directory query failure. It aborts the dispatch
// before any send attempt; an empty result set is not an error.
var ErrUnavailable = errors.New("recipient directory unavailable")

// Selector identifies the set of recipients for one dispatch: every profile
// in an organization, or a single user. Exactly one field is set.
type Selector struct {
	OrganizationID string
	UserID         string
}

// Resolver returns the delivery targets for a selector. Implementations must
// filter out profiles without a device token at the query layer and return an
// empty slice, not an error, when nothing matches.
type Resolver interface {
	Resolve(ctx context.Context, sel Selector) ([]domain.Recipient, error)
}

// PostgresResolver resolves recipients from the profiles table.
type PostgresResolver struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to the directory database.
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresResolver, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	return &PostgresResolver{pool: pool}, nil
}

func (r *PostgresResolver) Close() {
	r.pool.Close()
}

// Resolve queries profiles by organization or user id, keeping only rows with
// a non-empty fcm_token.
func (r *PostgresResolver) Resolve(ctx context.Context, sel Selector) ([]domain.Recipient, error) {
	query := `
		SELECT id, fcm_token
		FROM profiles
		WHERE organization_id = $1 AND fcm_token IS NOT NULL AND fcm_token <> ''
		ORDER BY id
	`
	arg := sel.OrganizationID

	if sel.UserID != "" {
		query = `
			SELECT id, fcm_token
			FROM profiles
			WHERE id = $1 AND fcm_token IS NOT NULL AND fcm_token <> ''
		`
		arg = sel.UserID
	} else if sel.OrganizationID == "" {
		return nil, errors.New("directory: empty selector")
	}

	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("%w: querying profiles: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var recipients []domain.Recipient
	for rows.Next() {
		var rec domain.Recipient
		if err := rows.Scan(&rec.ID, &rec.Token); err != nil {
			return nil, fmt.Errorf("%w: scanning profile: %v", ErrUnavailable, err)
		}
		recipients = append(recipients, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading profiles: %v", ErrUnavailable, err)
	}

	if recipients == nil {
		recipients = []domain.Recipient{}
	}

	return recipients, nil
}
