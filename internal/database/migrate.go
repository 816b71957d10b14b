package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order.  Every statement is idempotent so Migrate
// can run on every start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS rooms (
		id           VARCHAR(32)  NOT NULL PRIMARY KEY,
		display_name VARCHAR(128) NOT NULL,
		tier         ENUM('small','large') NOT NULL,
		bed_count    INT UNSIGNED NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id              BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		edit_token_hash CHAR(64)     NOT NULL,
		contact_name    VARCHAR(255) NOT NULL,
		contact_email   VARCHAR(255) NOT NULL,
		contact_phone   VARCHAR(64)  NOT NULL DEFAULT '',
		contact_notes   TEXT         NOT NULL,
		start_date      DATE         NOT NULL,
		end_date        DATE         NOT NULL,
		total_cents     BIGINT       NOT NULL,
		price_locked    BOOLEAN      NOT NULL DEFAULT TRUE,
		session_id      VARCHAR(64)  NULL,
		created_at      DATETIME(6)  NOT NULL,
		updated_at      DATETIME(6)  NOT NULL,
		UNIQUE KEY uq_bookings_edit_token (edit_token_hash),
		KEY idx_bookings_range (start_date, end_date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS room_assignments (
		booking_id  BIGINT UNSIGNED NOT NULL,
		room_id     VARCHAR(32)  NOT NULL,
		start_date  DATE         NOT NULL,
		end_date    DATE         NOT NULL,
		guest_mode  ENUM('uniform','per_guest') NOT NULL,
		guest_class ENUM('subsidized','external') NULL,
		adults      INT UNSIGNED NOT NULL DEFAULT 0,
		children    INT UNSIGNED NOT NULL DEFAULT 0,
		toddlers    INT UNSIGNED NOT NULL DEFAULT 0,
		PRIMARY KEY (booking_id, room_id),
		KEY idx_assignments_room_range (room_id, start_date, end_date),
		CONSTRAINT fk_assignments_booking FOREIGN KEY (booking_id) REFERENCES bookings (id) ON DELETE CASCADE,
		CONSTRAINT fk_assignments_room FOREIGN KEY (room_id) REFERENCES rooms (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS guest_records (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		booking_id  BIGINT UNSIGNED NOT NULL,
		person_type ENUM('adult','child','toddler') NOT NULL,
		first_name  VARCHAR(128) NOT NULL,
		last_name   VARCHAR(128) NOT NULL,
		order_index INT          NOT NULL,
		room_id     VARCHAR(32)  NULL,
		guest_class ENUM('subsidized','external') NULL,
		KEY idx_guest_records_booking (booking_id),
		CONSTRAINT fk_guest_records_booking FOREIGN KEY (booking_id) REFERENCES bookings (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS blockages (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		start_date DATE         NOT NULL,
		end_date   DATE         NOT NULL,
		reason     VARCHAR(512) NOT NULL DEFAULT '',
		created_at DATETIME(6)  NOT NULL,
		KEY idx_blockages_range (start_date, end_date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS blockage_rooms (
		blockage_id BIGINT UNSIGNED NOT NULL,
		room_id     VARCHAR(32) NOT NULL,
		PRIMARY KEY (blockage_id, room_id),
		CONSTRAINT fk_blockage_rooms_blockage FOREIGN KEY (blockage_id) REFERENCES blockages (id) ON DELETE CASCADE,
		CONSTRAINT fk_blockage_rooms_room FOREIGN KEY (room_id) REFERENCES rooms (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS proposed_bookings (
		id          CHAR(36)     NOT NULL PRIMARY KEY,
		session_id  VARCHAR(64)  NOT NULL,
		start_date  DATE         NOT NULL,
		end_date    DATE         NOT NULL,
		guest_mode  ENUM('uniform','per_guest') NULL,
		guest_class ENUM('subsidized','external') NULL,
		adults      INT UNSIGNED NOT NULL DEFAULT 0,
		children    INT UNSIGNED NOT NULL DEFAULT 0,
		toddlers    INT UNSIGNED NOT NULL DEFAULT 0,
		total_cents BIGINT       NULL,
		created_at  DATETIME(6)  NOT NULL,
		expires_at  DATETIME(6)  NOT NULL,
		KEY idx_proposals_session (session_id),
		KEY idx_proposals_expiry (expires_at),
		KEY idx_proposals_range (start_date, end_date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS proposed_booking_rooms (
		proposal_id CHAR(36)    NOT NULL,
		room_id     VARCHAR(32) NOT NULL,
		PRIMARY KEY (proposal_id, room_id),
		CONSTRAINT fk_proposal_rooms_proposal FOREIGN KEY (proposal_id) REFERENCES proposed_bookings (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS proposed_booking_guests (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		proposal_id CHAR(36)     NOT NULL,
		person_type ENUM('adult','child','toddler') NOT NULL,
		first_name  VARCHAR(128) NOT NULL,
		last_name   VARCHAR(128) NOT NULL,
		order_index INT          NOT NULL,
		room_id     VARCHAR(32)  NULL,
		guest_class ENUM('subsidized','external') NULL,
		CONSTRAINT fk_proposal_guests_proposal FOREIGN KEY (proposal_id) REFERENCES proposed_bookings (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS room_rates (
		guest_class      ENUM('subsidized','external') NOT NULL,
		tier             ENUM('small','large') NOT NULL,
		empty_room_cents BIGINT NOT NULL,
		adult_cents      BIGINT NOT NULL,
		child_cents      BIGINT NOT NULL,
		PRIMARY KEY (guest_class, tier)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS bulk_rates (
		id         TINYINT UNSIGNED NOT NULL PRIMARY KEY,
		base_cents BIGINT NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS bulk_guest_rates (
		guest_class ENUM('subsidized','external') NOT NULL PRIMARY KEY,
		adult_cents BIGINT NOT NULL,
		child_cents BIGINT NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing table.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
