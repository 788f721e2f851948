package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapDBError_NilError(t *testing.T) {
	if err := MapDBError(nil); err != nil {
		t.Errorf("MapDBError(nil) = %v, want nil", err)
	}
}

func TestMapDBError_ContextAndNoRows(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode ErrorCode
	}{
		{name: "deadline exceeded", err: context.DeadlineExceeded, wantCode: ErrCodeTimeout},
		{name: "canceled", err: context.Canceled, wantCode: ErrCodeCanceled},
		{name: "wrapped canceled", err: fmt.Errorf("query: %w", context.Canceled), wantCode: ErrCodeCanceled},
		{name: "no rows", err: pgx.ErrNoRows, wantCode: ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapDBError(tt.err)
			if !Is(err, tt.wantCode) {
				t.Errorf("MapDBError() code = %v, want %v", GetCode(err), tt.wantCode)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("MapDBError() should preserve cause %v", tt.err)
			}
		})
	}
}

func TestMapDBError_UniqueViolation(t *testing.T) {
	tests := []struct {
		name      string
		pgErr     *pgconn.PgError
		wantField string
	}{
		{
			name: "column name metadata",
			pgErr: &pgconn.PgError{
				Code:       pgerrcode.UniqueViolation,
				ColumnName: "email",
			},
			wantField: "email",
		},
		{
			name: "multi-column detail",
			pgErr: &pgconn.PgError{
				Code:           pgerrcode.UniqueViolation,
				ConstraintName: "jobs_client_id_feed_job_id_key",
				Detail:         `Key (client_id, feed_job_id)=(c1, f1) already exists.`,
			},
			wantField: "client_id, feed_job_id",
		},
		{
			name: "constraint name fallback",
			pgErr: &pgconn.PgError{
				Code:           pgerrcode.UniqueViolation,
				ConstraintName: "clients_email_key",
			},
			wantField: "email",
		},
		{
			name: "ambiguous constraint",
			pgErr: &pgconn.PgError{
				Code:           pgerrcode.UniqueViolation,
				ConstraintName: "jobs_client_id_feed_job_id_key",
			},
			wantField: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapDBError(tt.pgErr)
			if !IsConflict(err) {
				t.Fatalf("expected conflict, got %v", GetCode(err))
			}
			if got := GetField(err); got != tt.wantField {
				t.Errorf("GetField() = %q, want %q", got, tt.wantField)
			}
		})
	}
}

func TestMapDBError_ForeignKeyViolation(t *testing.T) {
	tests := []struct {
		name         string
		pgErr        *pgconn.PgError
		wantContains string
	}{
		{
			name: "parent delete",
			pgErr: &pgconn.PgError{
				Code:   pgerrcode.ForeignKeyViolation,
				Detail: `Key (id)=(c1) is still referenced from table "jobs".`,
			},
			wantContains: "referenced by Job",
		},
		{
			name: "missing parent",
			pgErr: &pgconn.PgError{
				Code:   pgerrcode.ForeignKeyViolation,
				Detail: `Key (client_id)=(c1) is not present in table "clients".`,
			},
			wantContains: "Client does not exist",
		},
		{
			name: "table name fallback",
			pgErr: &pgconn.PgError{
				Code:      pgerrcode.ForeignKeyViolation,
				TableName: "applier_job_sessions",
			},
			wantContains: "Applier Job Session",
		},
		{
			name: "constraint fallback",
			pgErr: &pgconn.PgError{
				Code:           pgerrcode.ForeignKeyViolation,
				ConstraintName: "applications_client_id_fkey",
			},
			wantContains: "Client",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapDBError(tt.pgErr)
			if !IsForeignKey(err) {
				t.Fatalf("expected foreign key error, got %v", GetCode(err))
			}
			if !strings.Contains(err.Error(), tt.wantContains) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantContains)
			}
		})
	}
}

func TestMapDBError_ValidationViolations(t *testing.T) {
	for _, code := range []string{pgerrcode.NotNullViolation, pgerrcode.CheckViolation} {
		err := MapDBError(&pgconn.PgError{Code: code, ColumnName: "status"})
		if !IsValidation(err) {
			t.Errorf("code %s: expected validation, got %v", code, GetCode(err))
		}
		if GetField(err) != "status" {
			t.Errorf("code %s: expected field status, got %q", code, GetField(err))
		}
	}
}

func TestMapDBError_Passthrough(t *testing.T) {
	unknown := MapDBError(&pgconn.PgError{Code: pgerrcode.SerializationFailure})
	if GetCode(unknown) != ErrCodeInternal {
		t.Errorf("unknown pg error should map to internal, got %v", GetCode(unknown))
	}

	plain := errors.New("boom")
	if got := MapDBError(plain); got != plain {
		t.Errorf("non-database errors should pass through unchanged")
	}
}

func TestMapTableToDomain(t *testing.T) {
	tests := map[string]string{
		"jobs":                 "Job",
		"  CLIENTS ":           "Client",
		"applier_job_sessions": "Applier Job Session",
		"feed_cursors":         "Feed Cursors",
	}
	for in, want := range tests {
		if got := mapTableToDomain(in); got != want {
			t.Errorf("mapTableToDomain(%q) = %q, want %q", in, got, want)
		}
	}
}
