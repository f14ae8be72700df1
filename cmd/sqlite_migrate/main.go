package main

import (
	"context"
	"os"

	"github.com/hetulpatel/arbscanner/internal/logging"
	"github.com/hetulpatel/arbscanner/internal/storage/sqlite"
)

func main() {
	logging.InitFromEnv()
	defer logging.Sync()

	store, err := sqlite.Open(os.Getenv("SQLITE_PATH"))
	if err != nil {
		logging.Fatalf("open sqlite: %v", err)
	}
	defer store.Close()

	version, err := store.MigrateSchema(context.Background())
	if err != nil {
		logging.Fatalf("migrate: %v", err)
	}
	logging.Infof("SQLite schema at version %d in %s", version, store.Path())
}
