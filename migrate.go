package main

import (
	"fmt"
	"log"
)

// setupDatabase creates the schema as a standalone migration run.
func setupDatabase(databaseURL string) error {
	conn, err := openDatabase(databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	log.Println("Creating database schema...")
	if err := ensureSchema(conn); err != nil {
		return err
	}
	log.Println("Schema created successfully")
	return nil
}

// verifyDatabaseConnection tests the database connection.
func verifyDatabaseConnection(databaseURL string) error {
	conn, err := openDatabase(databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("Database connection verified")
	return nil
}
