package repo

import (
	"context"
	"fmt"
)

// schema is applied in order by Migrate. Every statement must be safe to
// re-run.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS clinics (
		id uuid PRIMARY KEY,
		name text NOT NULL,
		email text NOT NULL,
		phone text NOT NULL DEFAULT '',
		address text NOT NULL DEFAULT '',
		details text NOT NULL DEFAULT '',
		status text NOT NULL DEFAULT 'active',
		created_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL,
		CONSTRAINT clinics_email_key UNIQUE (email)
	)`,
	`CREATE TABLE IF NOT EXISTS labs (
		id uuid PRIMARY KEY,
		name text NOT NULL,
		email text NOT NULL,
		phone text NOT NULL DEFAULT '',
		address text NOT NULL DEFAULT '',
		details text NOT NULL DEFAULT '',
		status text NOT NULL DEFAULT 'active',
		created_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL,
		CONSTRAINT labs_email_key UNIQUE (email)
	)`,
	`CREATE TABLE IF NOT EXISTS admins (
		id uuid PRIMARY KEY,
		name text NOT NULL,
		email text NOT NULL,
		phone text NOT NULL DEFAULT '',
		password_hash text NOT NULL,
		role text NOT NULL,
		images jsonb NOT NULL DEFAULT '[]',
		created_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL,
		CONSTRAINT admins_email_key UNIQUE (email)
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id uuid PRIMARY KEY,
		name text NOT NULL,
		email text NOT NULL,
		phone text NOT NULL DEFAULT '',
		password_hash text NOT NULL,
		role text NOT NULL,
		status text NOT NULL DEFAULT 'active',
		images jsonb NOT NULL DEFAULT '[]',
		clinic_id uuid REFERENCES clinics (id) ON DELETE SET NULL,
		lab_id uuid REFERENCES labs (id) ON DELETE SET NULL,
		country text NOT NULL DEFAULT '',
		date_of_birth timestamptz,
		case_list_access boolean NOT NULL DEFAULT false,
		archives_access boolean NOT NULL DEFAULT false,
		send_messages_to_doctors boolean NOT NULL DEFAULT false,
		quality_check_permission boolean NOT NULL DEFAULT false,
		created_by uuid,
		created_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL,
		CONSTRAINT users_email_key UNIQUE (email)
	)`,
	`CREATE INDEX IF NOT EXISTS users_role_idx ON users (role)`,
	`CREATE INDEX IF NOT EXISTS users_clinic_idx ON users (clinic_id)`,
	`CREATE TABLE IF NOT EXISTS products (
		id uuid PRIMARY KEY,
		name text NOT NULL,
		price numeric(12,2) NOT NULL CHECK (price >= 0),
		description text NOT NULL DEFAULT '',
		stock integer NOT NULL DEFAULT 0 CHECK (stock >= 0),
		category text NOT NULL DEFAULT '',
		product_type text NOT NULL DEFAULT '',
		product_tier text NOT NULL DEFAULT '',
		images jsonb NOT NULL DEFAULT '[]',
		created_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cases (
		id uuid PRIMARY KEY,
		case_number text NOT NULL DEFAULT '',
		patient_id text,
		case_type text NOT NULL DEFAULT '',
		gender text NOT NULL,
		age integer NOT NULL,
		scan_number text NOT NULL DEFAULT '',
		selected_tier text NOT NULL DEFAULT '',
		standard jsonb,
		premium jsonb,
		description text NOT NULL DEFAULT '',
		global_attachments jsonb NOT NULL DEFAULT '[]',
		notes jsonb NOT NULL DEFAULT '[]',
		clinic_id uuid REFERENCES clinics (id) ON DELETE SET NULL,
		product_id uuid REFERENCES products (id) ON DELETE SET NULL,
		created_by uuid,
		created_by_role text NOT NULL DEFAULT '',
		assigned_technician uuid,
		status text NOT NULL,
		approval_status text NOT NULL,
		approved_by uuid,
		approved_at timestamptz,
		rejection_reason text NOT NULL DEFAULT '',
		lab_assigned_by uuid,
		lab_assigned_at timestamptz,
		is_in_progress boolean NOT NULL DEFAULT false,
		is_completed boolean NOT NULL DEFAULT false,
		is_archived boolean NOT NULL DEFAULT false,
		completed_at timestamptz,
		archive_date timestamptz,
		created_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL,
		CONSTRAINT cases_patient_id_key UNIQUE (patient_id)
	)`,
	`CREATE INDEX IF NOT EXISTS cases_case_number_idx ON cases (case_number)`,
	`CREATE INDEX IF NOT EXISTS cases_status_idx ON cases (status)`,
	`CREATE INDEX IF NOT EXISTS cases_selected_tier_idx ON cases (selected_tier)`,
	`CREATE INDEX IF NOT EXISTS cases_created_at_idx ON cases (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS cases_clinic_idx ON cases (clinic_id)`,
	`CREATE INDEX IF NOT EXISTS cases_technician_idx ON cases (assigned_technician)`,
	`CREATE INDEX IF NOT EXISTS cases_sweep_idx ON cases (is_archived, status)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id uuid PRIMARY KEY,
		type text NOT NULL,
		title text NOT NULL DEFAULT '',
		message text NOT NULL DEFAULT '',
		case_id uuid REFERENCES cases (id) ON DELETE SET NULL,
		created_by uuid,
		receiver_role text NOT NULL DEFAULT 'admin',
		receiver_id uuid,
		is_read boolean NOT NULL DEFAULT false,
		created_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS notifications_inbox_idx ON notifications (receiver_role, receiver_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS conversations (
		id uuid PRIMARY KEY,
		participant_a uuid NOT NULL,
		participant_a_kind text NOT NULL,
		participant_b uuid NOT NULL,
		participant_b_kind text NOT NULL,
		case_id uuid REFERENCES cases (id) ON DELETE CASCADE,
		last_message_id uuid,
		created_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS conversations_pair_key ON conversations
		(participant_a, participant_b, COALESCE(case_id, '00000000-0000-0000-0000-000000000000'::uuid))`,
	`CREATE TABLE IF NOT EXISTS messages (
		id uuid PRIMARY KEY,
		conversation_id uuid NOT NULL REFERENCES conversations (id) ON DELETE CASCADE,
		sender_id uuid NOT NULL,
		sender_kind text NOT NULL,
		receiver_id uuid NOT NULL,
		receiver_kind text NOT NULL,
		case_id uuid,
		text text NOT NULL DEFAULT '',
		images jsonb NOT NULL DEFAULT '[]',
		audio jsonb NOT NULL DEFAULT '[]',
		video jsonb NOT NULL DEFAULT '[]',
		seen boolean NOT NULL DEFAULT false,
		edited boolean NOT NULL DEFAULT false,
		created_at timestamptz NOT NULL,
		updated_at timestamptz NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS messages_conversation_idx ON messages (conversation_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS messages_unseen_idx ON messages (receiver_id) WHERE NOT seen`,
	`CREATE TABLE IF NOT EXISTS settings (
		kind text PRIMARY KEY,
		description text NOT NULL DEFAULT '',
		images jsonb NOT NULL DEFAULT '[]',
		updated_at timestamptz NOT NULL
	)`,
}

// Migrate creates missing tables and indexes.
func (c *Client) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := exec(ctx, c.drv, stmt, []any{}); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
