package testutil

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Fixtures inserts rows directly for integration tests that need pre-existing state.
type Fixtures struct {
	t  TestingTB
	db *sql.DB
}

// NewFixtures binds fixture helpers to db.
func NewFixtures(t TestingTB, db *sql.DB) *Fixtures {
	return &Fixtures{t: t, db: db}
}

func (f *Fixtures) exec(query string, args ...any) {
	f.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := f.db.ExecContext(ctx, query, args...); err != nil {
		f.t.Fatalf("fixture insert failed: %v", err)
	}
}

// Client inserts a client with the given status and returns its ID.
func (f *Fixtures) Client(status string) string {
	f.t.Helper()
	id := uuid.NewString()
	f.exec(`INSERT INTO clients (id, name, email, status) VALUES ($1, $2, $3, $4)`,
		id, "client "+id[:8], id+"@clients.test", status)
	return id
}

// Applier inserts an applier with the given status and returns its ID.
func (f *Fixtures) Applier(status string) string {
	f.t.Helper()
	id := uuid.NewString()
	f.exec(`INSERT INTO appliers (id, name, email, status) VALUES ($1, $2, $3, $4)`,
		id, "applier "+id[:8], id+"@appliers.test", status)
	return id
}

// Job inserts a feed job for clientID and returns its ID.
func (f *Fixtures) Job(clientID, feedJobID string) string {
	f.t.Helper()
	id := uuid.NewString()
	f.exec(`INSERT INTO jobs (id, client_id, feed_job_id, title, company, apply_url)
		VALUES ($1, $2, $3, 'Engineer', 'Acme', 'https://jobs.acme.test/apply')`,
		id, clientID, feedJobID)
	return id
}

// Application records that applierID applied to jobID for clientID.
func (f *Fixtures) Application(jobID, applierID, clientID string) {
	f.t.Helper()
	f.exec(`INSERT INTO applications (job_id, applier_id, client_id) VALUES ($1, $2, $3)`,
		jobID, applierID, clientID)
}

// Session records an applier job session in the given status.
func (f *Fixtures) Session(applierID, jobID, status string) {
	f.t.Helper()
	f.exec(`INSERT INTO applier_job_sessions (applier_id, job_id, status) VALUES ($1, $2, $3)`,
		applierID, jobID, status)
}
