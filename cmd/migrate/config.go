package main

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

var errMissingDSN = errors.New("DB_DSN is not set")

func loadEnvFiles() {
	// Do not override environment provided by the runtime (e.g. Docker).
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

func migrationsDir() string {
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return "db/migrations"
}

func databaseDSN() (string, error) {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		return "", errMissingDSN
	}
	return dsn, nil
}
