package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates the tables the dispatch core reads and writes.  Bookings
// and pilots are owned by other processes but are created here so a fresh
// environment is usable.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS pilots (
		id                 BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name               VARCHAR(120) NOT NULL,
		status             ENUM('active','inactive') NOT NULL DEFAULT 'active',
		weight_limit_min   DECIMAL(5,1) NOT NULL,
		weight_limit_max   DECIMAL(5,1) NOT NULL,
		daily_flight_count INT NOT NULL DEFAULT 0,
		skills             VARCHAR(255) NOT NULL DEFAULT '',
		created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT chk_pilot_weight CHECK (weight_limit_min <= weight_limit_max),
		INDEX idx_pilots_status_count (status, daily_flight_count, id)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id              BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		customer_name   VARCHAR(120) NOT NULL,
		customer_weight DECIMAL(5,1) NULL,
		booking_date    DATE NOT NULL,
		booking_time    CHAR(5) NOT NULL,
		adults          INT NOT NULL DEFAULT 1,
		children        INT NOT NULL DEFAULT 0,
		status          ENUM('pending','confirmed','completed','cancelled') NOT NULL DEFAULT 'pending',
		created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_bookings_slot (booking_date, booking_time)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS shuttles (
		id             BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		departure_time DATETIME NOT NULL,
		capacity       INT NOT NULL,
		status         VARCHAR(20) NOT NULL DEFAULT 'pending',
		created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS assignments (
		id          BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		booking_id  BIGINT UNSIGNED NOT NULL,
		pilot_id    BIGINT UNSIGNED NOT NULL,
		status      ENUM('assigned','accepted','completed','cancelled') NOT NULL DEFAULT 'assigned',
		shuttle_id  BIGINT UNSIGNED NULL,
		assigned_at DATETIME(6) NOT NULL,
		CONSTRAINT fk_assign_booking FOREIGN KEY (booking_id) REFERENCES bookings(id) ON DELETE CASCADE,
		CONSTRAINT fk_assign_pilot FOREIGN KEY (pilot_id) REFERENCES pilots(id),
		CONSTRAINT fk_assign_shuttle FOREIGN KEY (shuttle_id) REFERENCES shuttles(id) ON DELETE SET NULL,
		INDEX idx_assign_booking (booking_id, status),
		INDEX idx_assign_pending (shuttle_id, status, assigned_at)
	) ENGINE=InnoDB`,
}

// Migrate creates any missing tables.  Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
