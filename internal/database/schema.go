package database

import (
	"context"
	"database/sql"
)

// The booked count per pool is derived from ACTIVE tickets, so there is no
// counter column anywhere; reservations serialize on the events /
// ticket_types row lock instead. References are one-directional foreign
// keys; no table links back.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		name          VARCHAR(190)    NOT NULL,
		email         VARCHAR(190)    NOT NULL,
		password_hash VARCHAR(100)    NOT NULL,
		role          ENUM('CUSTOMER','ORGANIZER') NOT NULL DEFAULT 'CUSTOMER',
		created_at    DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS events (
		id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		title        VARCHAR(190)    NOT NULL,
		location     VARCHAR(190)    NOT NULL,
		starts_at    DATETIME        NOT NULL,
		capacity     INT             NOT NULL,
		price_cents  INT UNSIGNED    NOT NULL DEFAULT 0,
		organizer_id BIGINT UNSIGNED NOT NULL,
		created_at   DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_events_organizer (organizer_id),
		CONSTRAINT fk_events_organizer FOREIGN KEY (organizer_id) REFERENCES users (id),
		CONSTRAINT chk_events_capacity CHECK (capacity >= 0)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS ticket_types (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		event_id    BIGINT UNSIGNED NOT NULL,
		name        VARCHAR(100)    NOT NULL,
		capacity    INT             NOT NULL,
		price_cents INT UNSIGNED    NOT NULL DEFAULT 0,
		PRIMARY KEY (id),
		KEY idx_ticket_types_event (event_id),
		CONSTRAINT fk_ticket_types_event FOREIGN KEY (event_id) REFERENCES events (id),
		CONSTRAINT chk_ticket_types_capacity CHECK (capacity >= 0)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS tickets (
		id               BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		code             VARCHAR(20)     NOT NULL,
		user_id          BIGINT UNSIGNED NOT NULL,
		event_id         BIGINT UNSIGNED NOT NULL,
		ticket_type_id   BIGINT UNSIGNED NULL,
		quantity         INT             NOT NULL,
		unit_price_cents INT UNSIGNED    NOT NULL DEFAULT 0,
		status           ENUM('ACTIVE','CANCELLED') NOT NULL DEFAULT 'ACTIVE',
		purchased_at     DATETIME        NOT NULL,
		cancelled_at     DATETIME        NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_tickets_code (code),
		KEY idx_tickets_user (user_id),
		KEY idx_tickets_event_status (event_id, status),
		KEY idx_tickets_type_status (ticket_type_id, status),
		CONSTRAINT fk_tickets_user FOREIGN KEY (user_id) REFERENCES users (id),
		CONSTRAINT fk_tickets_event FOREIGN KEY (event_id) REFERENCES events (id),
		CONSTRAINT fk_tickets_type FOREIGN KEY (ticket_type_id) REFERENCES ticket_types (id),
		CONSTRAINT chk_tickets_quantity CHECK (quantity >= 1)
	) ENGINE=InnoDB`,
}

// EnsureSchema creates the engine's tables when they do not exist yet.
// Statements are idempotent, so running it on every boot is safe.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
