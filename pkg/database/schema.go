package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// SchemaSQL creates every table the API reads and writes. Statements are idempotent.
const SchemaSQL = `
CREATE TABLE IF NOT EXISTS hazard_classes (
	id UUID PRIMARY KEY,
	code TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	logo_path TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL DEFAULT '',
	full_name TEXT NOT NULL,
	department TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL CHECK (role IN ('user', 'admin', 'hod')),
	active BOOLEAN NOT NULL DEFAULT TRUE,
	last_login TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS containers (
	id UUID PRIMARY KEY,
	department TEXT NOT NULL,
	location TEXT NOT NULL,
	submitted_by TEXT NOT NULL,
	submitter_id UUID NOT NULL REFERENCES users(id),
	container_code TEXT NOT NULL,
	container_type TEXT NOT NULL,
	status TEXT NOT NULL CHECK (status IN ('pending_review', 'pending', 'rework_requested', 'approved', 'rejected')),
	submitted_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	admin_reviewed_by TEXT,
	admin_reviewed_at TIMESTAMPTZ,
	admin_comment TEXT,
	rework_requested_by TEXT,
	rework_requested_at TIMESTAMPTZ,
	rework_comment TEXT,
	hod_decided_by TEXT,
	hod_decided_at TIMESTAMPTZ,
	hod_comment TEXT
);
CREATE INDEX IF NOT EXISTS idx_containers_status ON containers(status);
CREATE INDEX IF NOT EXISTS idx_containers_submitter ON containers(submitter_id);

CREATE TABLE IF NOT EXISTS container_hazards (
	container_id UUID NOT NULL REFERENCES containers(id) ON DELETE CASCADE,
	hazard_class_id UUID NOT NULL REFERENCES hazard_classes(id),
	PRIMARY KEY (container_id, hazard_class_id)
);

CREATE TABLE IF NOT EXISTS hazard_pairs (
	id UUID PRIMARY KEY,
	container_id UUID NOT NULL REFERENCES containers(id) ON DELETE CASCADE,
	hazard_class_a_id UUID NOT NULL REFERENCES hazard_classes(id),
	hazard_class_b_id UUID NOT NULL REFERENCES hazard_classes(id),
	distance DOUBLE PRECISION NOT NULL CHECK (distance >= 0),
	is_isolated BOOLEAN NOT NULL,
	min_required_distance DOUBLE PRECISION,
	status TEXT NOT NULL CHECK (status IN ('safe', 'caution', 'danger')),
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS container_attachments (
	id UUID PRIMARY KEY,
	container_id UUID NOT NULL REFERENCES containers(id) ON DELETE CASCADE,
	file_name TEXT NOT NULL,
	file_path TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	size_bytes BIGINT NOT NULL,
	uploaded_by TEXT NOT NULL,
	uploaded_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS deletion_requests (
	id UUID PRIMARY KEY,
	container_id UUID NOT NULL,
	container_code TEXT NOT NULL,
	requested_by UUID NOT NULL REFERENCES users(id),
	requester_name TEXT NOT NULL,
	reason TEXT NOT NULL,
	status TEXT NOT NULL CHECK (status IN ('pending', 'admin_reviewed', 'approved', 'rejected')),
	admin_recommendation TEXT,
	admin_comment TEXT,
	admin_reviewed_by TEXT,
	admin_reviewed_at TIMESTAMPTZ,
	hod_comment TEXT,
	hod_decided_by TEXT,
	hod_decided_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL
);
DROP INDEX IF EXISTS idx_deletion_requests_open;
CREATE UNIQUE INDEX IF NOT EXISTS idx_deletion_requests_pending
	ON deletion_requests(container_id) WHERE status = 'pending';

CREATE TABLE IF NOT EXISTS audit_logs (
	id UUID PRIMARY KEY,
	user_id UUID,
	action TEXT NOT NULL,
	resource TEXT NOT NULL,
	resource_id TEXT,
	old_values JSONB,
	new_values JSONB,
	ip_address TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// EnsureSchema applies SchemaSQL in one transaction.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, SchemaSQL); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("apply schema: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}
