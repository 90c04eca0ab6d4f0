package main

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

var db *sql.DB

// normalizeDatabaseURL rewrites postgresql:// to postgres:// and ensures an
// sslmode is present so the URL works with pgx out of the box.
func normalizeDatabaseURL(databaseURL string) string {
	if len(databaseURL) > 11 && databaseURL[:11] == "postgresql:" {
		databaseURL = "postgres" + databaseURL[10:]
	}
	if !strings.Contains(databaseURL, "sslmode=") {
		separator := "?"
		if strings.Contains(databaseURL, "?") {
			separator = "&"
		}
		databaseURL = databaseURL + separator + "sslmode=disable"
	}
	return databaseURL
}

// openDatabase connects to PostgreSQL, waiting for the database to come up.
func openDatabase(databaseURL string) (*sql.DB, error) {
	config, err := pgx.ParseConfig(normalizeDatabaseURL(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	maxRetries := 60
	retryDelay := 2 * time.Second

	var conn *sql.DB
	for i := 0; i < maxRetries; i++ {
		conn = stdlib.OpenDB(*config)
		if err := conn.Ping(); err != nil {
			conn.Close()
			if i < maxRetries-1 {
				if i%10 == 0 || i < 5 {
					log.Printf("Database not ready, retrying in %v... (attempt %d/%d) Error: %v", retryDelay, i+1, maxRetries, err)
				} else {
					log.Printf("Database not ready, retrying in %v... (attempt %d/%d)", retryDelay, i+1, maxRetries)
				}
				time.Sleep(retryDelay)
				continue
			}
			return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
		}
		log.Println("Database connection established")
		break
	}
	return conn, nil
}

// initDB initializes the PostgreSQL connection and schema.
func initDB(databaseURL string) error {
	conn, err := openDatabase(databaseURL)
	if err != nil {
		return err
	}
	if err := ensureSchema(conn); err != nil {
		conn.Close()
		return err
	}
	db = conn
	return nil
}
