package db

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS farms (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'ACTIVE'
	)`,
	`CREATE TABLE IF NOT EXISTS investors (
		mobile TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		kyc_status TEXT NOT NULL DEFAULT 'PENDING',
		pan_doc_ref TEXT,
		aadhar_doc_ref TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		farm_id TEXT NOT NULL REFERENCES farms(id),
		farm_location TEXT NOT NULL DEFAULT '',
		investor_mobile TEXT NOT NULL,
		placed_at TIMESTAMPTZ NOT NULL,
		units INT NOT NULL,
		buffalo_count INT NOT NULL DEFAULT 0,
		calf_count INT NOT NULL DEFAULT 0,
		unit_cost BIGINT NOT NULL,
		total_cost BIGINT NOT NULL,
		coins_redeemed BIGINT NOT NULL DEFAULT 0,
		payment_status TEXT NOT NULL,
		rejected_reason TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_payment_status ON orders (payment_status)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_farm_id ON orders (farm_id)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id BIGSERIAL PRIMARY KEY,
		order_id TEXT NOT NULL UNIQUE REFERENCES orders(id),
		payment_type TEXT NOT NULL,
		transfer_mode TEXT,
		amount BIGINT NOT NULL,
		proof_front TEXT,
		proof_back TEXT,
		proof_cheque TEXT,
		proof_screenshot TEXT,
		utr TEXT,
		cheque_number TEXT,
		cashier_name TEXT,
		transacted_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_history (
		id BIGSERIAL PRIMARY KEY,
		order_id TEXT NOT NULL REFERENCES orders(id),
		action TEXT NOT NULL,
		actor_role TEXT NOT NULL,
		actor_name TEXT NOT NULL DEFAULT '',
		actor_mobile TEXT NOT NULL,
		comments TEXT NOT NULL DEFAULT '',
		units_checked BOOLEAN,
		payment_proof BOOLEAN,
		payment_received BOOLEAN,
		coins_checked BOOLEAN,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS admins (
		mobile TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		password TEXT NOT NULL,
		roles TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_tasks (
		id UUID PRIMARY KEY,
		status TEXT NOT NULL,
		payload JSONB NOT NULL,
		topic TEXT NOT NULL,
		attempts INT NOT NULL DEFAULT 0,
		last_error TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ
	)`,
}

// Bootstrap creates the schema if it does not exist yet.
func Bootstrap(ctx context.Context, database DB) error {
	for _, stmt := range schemaStatements {
		if _, err := database.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema bootstrap failed: %w", err)
		}
	}
	return nil
}
