package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto";`,
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		cpf VARCHAR(11),
		password_hash TEXT NOT NULL,
		role VARCHAR(32) NOT NULL CHECK (role IN ('ADMIN', 'PUBLIC_ENTITY', 'SUPPLIER', 'AUDITOR', 'CITIZEN')),
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		last_login_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_users_email ON users (LOWER(email));`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_users_cpf ON users (cpf) WHERE cpf IS NOT NULL;`,
	`CREATE INDEX IF NOT EXISTS idx_users_role ON users (role);`,
	`CREATE TABLE IF NOT EXISTS suppliers (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		company_name VARCHAR(255) NOT NULL,
		trade_name VARCHAR(255) NOT NULL DEFAULT '',
		cnpj VARCHAR(14) NOT NULL UNIQUE,
		phone VARCHAR(32) NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		city VARCHAR(128) NOT NULL DEFAULT '',
		state CHAR(2) NOT NULL DEFAULT '',
		is_verified BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS public_entities (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		cnpj VARCHAR(14) NOT NULL UNIQUE,
		sphere VARCHAR(16) NOT NULL CHECK (sphere IN ('MUNICIPAL', 'STATE', 'FEDERAL')),
		city VARCHAR(128) NOT NULL DEFAULT '',
		state CHAR(2) NOT NULL DEFAULT '',
		phone VARCHAR(32) NOT NULL DEFAULT '',
		is_verified BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS biddings (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		public_entity_id UUID NOT NULL REFERENCES public_entities(id),
		number VARCHAR(32) NOT NULL UNIQUE,
		title VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		modality VARCHAR(32) NOT NULL CHECK (modality IN ('PREGAO_ELETRONICO', 'CONCORRENCIA', 'TOMADA_DE_PRECOS', 'CONVITE', 'DISPENSA')),
		category VARCHAR(128) NOT NULL DEFAULT '',
		estimated_value NUMERIC(18,2) NOT NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'DRAFT' CHECK (status IN ('DRAFT', 'PUBLISHED', 'OPEN', 'CLOSED', 'AWARDED', 'SUSPENDED', 'CANCELLED')),
		opening_date TIMESTAMPTZ NOT NULL,
		closing_date TIMESTAMPTZ NOT NULL,
		published_at TIMESTAMPTZ,
		document_key TEXT,
		document_name TEXT,
		created_by UUID NOT NULL REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_biddings_status ON biddings (status);`,
	`CREATE INDEX IF NOT EXISTS idx_biddings_entity ON biddings (public_entity_id);`,
	`CREATE INDEX IF NOT EXISTS idx_biddings_dates ON biddings (opening_date, closing_date);`,
	`CREATE TABLE IF NOT EXISTS proposals (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		bidding_id UUID NOT NULL REFERENCES biddings(id) ON DELETE CASCADE,
		supplier_id UUID NOT NULL REFERENCES suppliers(id),
		amount NUMERIC(18,2) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		delivery_days INTEGER NOT NULL DEFAULT 0,
		status VARCHAR(16) NOT NULL DEFAULT 'SUBMITTED' CHECK (status IN ('SUBMITTED', 'UNDER_REVIEW', 'ACCEPTED', 'REJECTED', 'WINNER', 'WITHDRAWN')),
		rejection_reason TEXT,
		submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_proposals_live ON proposals (bidding_id, supplier_id) WHERE status <> 'WITHDRAWN';`,
	`CREATE INDEX IF NOT EXISTS idx_proposals_supplier ON proposals (supplier_id);`,
	`CREATE TABLE IF NOT EXISTS contracts (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		number VARCHAR(32) NOT NULL UNIQUE,
		bidding_id UUID NOT NULL UNIQUE REFERENCES biddings(id),
		proposal_id UUID NOT NULL REFERENCES proposals(id),
		supplier_id UUID NOT NULL REFERENCES suppliers(id),
		public_entity_id UUID NOT NULL REFERENCES public_entities(id),
		value NUMERIC(18,2) NOT NULL,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'ACTIVE' CHECK (status IN ('ACTIVE', 'COMPLETED', 'TERMINATED')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		type VARCHAR(32) NOT NULL,
		title VARCHAR(255) NOT NULL,
		message TEXT NOT NULL,
		data JSONB NOT NULL DEFAULT '{}'::jsonb,
		priority VARCHAR(8) NOT NULL DEFAULT 'MEDIUM' CHECK (priority IN ('LOW', 'MEDIUM', 'HIGH', 'URGENT')),
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		read_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications (user_id, created_at DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_unread ON notifications (user_id) WHERE is_read = FALSE;`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID REFERENCES users(id) ON DELETE SET NULL,
		action VARCHAR(64) NOT NULL,
		entity VARCHAR(64) NOT NULL,
		entity_id UUID,
		details JSONB NOT NULL DEFAULT '{}'::jsonb,
		ip_address VARCHAR(64) NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs (created_at DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_entity ON audit_logs (entity, entity_id);`,
	`CREATE TABLE IF NOT EXISTS settings (
		key VARCHAR(64) PRIMARY KEY,
		value TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		updated_by UUID REFERENCES users(id) ON DELETE SET NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`INSERT INTO settings (key, value, description) VALUES
		('platform_name', 'LicitaBrasil', 'Nome exibido na plataforma'),
		('support_email', 'suporte@licitabrasil.gov.br', 'E-mail de suporte'),
		('maintenance_mode', 'false', 'Bloqueia novas propostas quando ativo'),
		('proposal_min_days', '8', 'Dias mínimos entre abertura e encerramento'),
		('max_upload_mb', '20', 'Tamanho máximo de edital em MB')
	ON CONFLICT (key) DO NOTHING;`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
