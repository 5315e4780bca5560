package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates the tables used by the repositories.  Orders along a route
// are stored next to each hold and ticket so that segment overlap can be
// answered by an index range scan.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS routes (
		id   BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(120) NOT NULL
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS stops (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		route_id   BIGINT UNSIGNED NOT NULL,
		name       VARCHAR(120) NOT NULL,
		stop_order INT NOT NULL,
		UNIQUE KEY uq_stops_route_order (route_id, stop_order),
		CONSTRAINT fk_stops_route FOREIGN KEY (route_id) REFERENCES routes(id)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS buses (
		id       BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		plate    VARCHAR(32) NOT NULL UNIQUE,
		capacity INT NOT NULL
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS seats (
		id          BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		bus_id      BIGINT UNSIGNED NOT NULL,
		seat_number VARCHAR(8) NOT NULL,
		seat_type   ENUM('STANDARD','PREMIUM','ACCESSIBLE') NOT NULL DEFAULT 'STANDARD',
		UNIQUE KEY uq_seats_bus_number (bus_id, seat_number),
		CONSTRAINT fk_seats_bus FOREIGN KEY (bus_id) REFERENCES buses(id)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS trips (
		id                  BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		bus_id              BIGINT UNSIGNED NOT NULL,
		route_id            BIGINT UNSIGNED NOT NULL,
		status              ENUM('SCHEDULED','BOARDING','DEPARTED','ARRIVED','CANCELLED') NOT NULL,
		overbooking_percent INT NOT NULL DEFAULT 0,
		capacity            INT NOT NULL,
		departs_at          DATETIME NOT NULL,
		arrives_at          DATETIME NOT NULL,
		created_at          DATETIME NOT NULL,
		updated_at          DATETIME NOT NULL,
		CONSTRAINT fk_trips_bus FOREIGN KEY (bus_id) REFERENCES buses(id),
		CONSTRAINT fk_trips_route FOREIGN KEY (route_id) REFERENCES routes(id)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS holds (
		id           BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		trip_id      BIGINT UNSIGNED NOT NULL,
		seat_number  VARCHAR(8) NOT NULL,
		holder_id    BIGINT UNSIGNED NOT NULL,
		from_stop_id BIGINT UNSIGNED NOT NULL,
		to_stop_id   BIGINT UNSIGNED NOT NULL,
		from_order   INT NOT NULL,
		to_order     INT NOT NULL,
		status       ENUM('HOLD','EXPIRED') NOT NULL,
		expires_at   DATETIME NOT NULL,
		created_at   DATETIME NOT NULL,
		KEY ix_holds_seat (trip_id, seat_number, status, from_order),
		KEY ix_holds_holder (trip_id, holder_id, status),
		KEY ix_holds_expiry (status, expires_at),
		CONSTRAINT fk_holds_trip FOREIGN KEY (trip_id) REFERENCES trips(id)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS purchases (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		trip_id    BIGINT UNSIGNED NOT NULL,
		holder_id  BIGINT UNSIGNED NOT NULL,
		status     ENUM('PENDING','CONFIRMED','CANCELLED') NOT NULL,
		total      DECIMAL(12,2) NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		KEY ix_purchases_holder (holder_id),
		CONSTRAINT fk_purchases_trip FOREIGN KEY (trip_id) REFERENCES trips(id)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS tickets (
		id           BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		purchase_id  BIGINT UNSIGNED NOT NULL,
		trip_id      BIGINT UNSIGNED NOT NULL,
		seat_number  VARCHAR(8) NOT NULL,
		holder_id    BIGINT UNSIGNED NOT NULL,
		from_stop_id BIGINT UNSIGNED NOT NULL,
		to_stop_id   BIGINT UNSIGNED NOT NULL,
		from_order   INT NOT NULL,
		to_order     INT NOT NULL,
		status       ENUM('PENDING','SOLD','CANCELLED') NOT NULL,
		price        DECIMAL(10,2) NOT NULL,
		created_at   DATETIME NOT NULL,
		updated_at   DATETIME NOT NULL,
		KEY ix_tickets_seat (trip_id, seat_number, status, from_order),
		KEY ix_tickets_purchase (purchase_id),
		CONSTRAINT fk_tickets_purchase FOREIGN KEY (purchase_id) REFERENCES purchases(id),
		CONSTRAINT fk_tickets_trip FOREIGN KEY (trip_id) REFERENCES trips(id)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS settings (
		name       VARCHAR(64) PRIMARY KEY,
		value      VARCHAR(255) NOT NULL,
		updated_at DATETIME NOT NULL
	) ENGINE=InnoDB`,
}

// Migrate creates any missing table.  It is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	return nil
}
