package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jumpseat/jumpseat-api/internal/data/pgxutil"
	"github.com/jumpseat/jumpseat-api/internal/domain/model"
)

const clientColumns = `id, name, email, status, created_at, updated_at`

// ClientRepo provides read access to clients.
type ClientRepo struct {
	DB *sql.DB
}

// NewClientRepo creates a new ClientRepo instance with the given database connection.
func NewClientRepo(db *sql.DB) *ClientRepo {
	return &ClientRepo{DB: db}
}

// List returns all clients ordered by creation time. Status filtering is left to callers.
func (r *ClientRepo) List(ctx context.Context) ([]*model.Client, error) {
	clients, err := pgxutil.CollectStructs[model.Client](ctx, r.DB,
		`SELECT `+clientColumns+` FROM clients ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", mapRepoErr(err, nil))
	}
	return clients, nil
}

// GetByID retrieves a client by ID, or ErrClientNotFound.
func (r *ClientRepo) GetByID(ctx context.Context, id string) (*model.Client, error) {
	if id == "" {
		return nil, ErrClientIDRequired
	}
	client, err := pgxutil.CollectOneStruct[model.Client](ctx, r.DB,
		`SELECT `+clientColumns+` FROM clients WHERE id = $1`, id)
	if err != nil {
		return nil, mapRepoErr(err, ErrClientNotFound)
	}
	return client, nil
}
