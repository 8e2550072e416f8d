package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
)

// NormalizeDSN forces the driver options the repositories rely on: time
// columns scan into time.Time, and UPDATE reports matched rather than changed
// rows so an idempotent update is not mistaken for a missing row.
func NormalizeDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid DB_URL: %w", err)
	}
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

func InitDB(dbURL string, logger zerolog.Logger) (*sql.DB, error) {
	dsn, err := NormalizeDSN(dbURL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database not responding: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	logger.Info().Msg("Connected to database")
	return db, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id CHAR(36) PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		role VARCHAR(20) NOT NULL,
		wallet_balance DECIMAL(14,2) NOT NULL DEFAULT 0,
		agency_profile JSON NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		INDEX idx_users_role (role)
	);`,
	`CREATE TABLE IF NOT EXISTS travel_requests (
		id CHAR(36) PRIMARY KEY,
		client_id CHAR(36) NOT NULL,
		departure_city VARCHAR(100) NOT NULL,
		destination_city VARCHAR(100) NOT NULL,
		departure_date DATETIME(6) NOT NULL,
		return_date DATETIME(6) NULL,
		transport_type VARCHAR(20) NOT NULL,
		preferences JSON NOT NULL,
		additional_notes TEXT NOT NULL,
		status VARCHAR(20) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		INDEX idx_requests_client (client_id),
		INDEX idx_requests_status (status)
	);`,
	`CREATE TABLE IF NOT EXISTS travel_offers (
		id CHAR(36) PRIMARY KEY,
		request_id CHAR(36) NOT NULL,
		agency_id CHAR(36) NOT NULL,
		agency_name VARCHAR(100) NOT NULL,
		price DECIMAL(14,2) NOT NULL,
		currency CHAR(3) NOT NULL,
		description TEXT NOT NULL,
		departure_time DATETIME(6) NULL,
		return_time DATETIME(6) NULL,
		preferences_match JSON NULL,
		status VARCHAR(20) NOT NULL,
		ticket_url VARCHAR(2048) NULL,
		payment_reference VARCHAR(32) NULL UNIQUE,
		created_at DATETIME(6) NOT NULL,
		INDEX idx_offers_request (request_id),
		INDEX idx_offers_agency (agency_id),
		FOREIGN KEY (request_id) REFERENCES travel_requests(id)
	);`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id CHAR(36) PRIMARY KEY,
		user_id CHAR(36) NOT NULL,
		type VARCHAR(20) NOT NULL,
		amount DECIMAL(14,2) NOT NULL,
		currency CHAR(3) NOT NULL,
		description VARCHAR(500) NOT NULL,
		related_offer_id CHAR(36) NULL,
		created_at DATETIME(6) NOT NULL,
		INDEX idx_transactions_user (user_id, created_at),
		INDEX idx_transactions_offer (related_offer_id)
	);`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id CHAR(36) PRIMARY KEY,
		user_id CHAR(36) NOT NULL,
		title VARCHAR(200) NOT NULL,
		message TEXT NOT NULL,
		type VARCHAR(20) NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		related_request_id CHAR(36) NULL,
		related_offer_id CHAR(36) NULL,
		created_at DATETIME(6) NOT NULL,
		INDEX idx_notifications_user (user_id)
	);`,
	`CREATE TABLE IF NOT EXISTS conversations (
		id CHAR(36) PRIMARY KEY,
		participant_a CHAR(36) NOT NULL,
		participant_b CHAR(36) NOT NULL,
		last_message_id CHAR(36) NULL,
		last_message_content TEXT NOT NULL,
		last_message_time DATETIME(6) NULL,
		unread_count INT NOT NULL DEFAULT 0,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		UNIQUE KEY uq_conversation_pair (participant_a, participant_b)
	);`,
	`CREATE TABLE IF NOT EXISTS messages (
		id CHAR(36) PRIMARY KEY,
		conversation_id CHAR(36) NOT NULL,
		sender_id CHAR(36) NOT NULL,
		recipient_id CHAR(36) NOT NULL,
		content TEXT NOT NULL,
		attachment_url VARCHAR(2048) NULL,
		status VARCHAR(10) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		read_at DATETIME(6) NULL,
		INDEX idx_messages_conversation (conversation_id, created_at),
		FOREIGN KEY (conversation_id) REFERENCES conversations(id)
	);`,
}

func RunMigrations(db *sql.DB, logger zerolog.Logger) error {
	for i, q := range migrations {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	logger.Info().Int("count", len(migrations)).Msg("Migrations completed")
	return nil
}
