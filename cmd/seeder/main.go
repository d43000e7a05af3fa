// cmd/seeder/main.go
package main

import (
	"log"
	"os"

	_ "github.com/lib/pq"

	"github.com/relaycrm/dispatch-backend/internal/config"
	"github.com/relaycrm/dispatch-backend/internal/db"
)

// Seeds a development database with a minimal fixture set: contacts with
// subscriptions, one composition with items per channel, channel settings and
// placeholder credentials.
func main() {
	cfg := config.LoadServer()

	database, err := db.Open(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close()

	seedFiles := []string{
		"seed/contacts.sql",
		"seed/compositions.sql",
		"seed/channel_settings.sql",
		"seed/credentials.sql",
	}

	for _, file := range seedFiles {
		content, err := os.ReadFile(file)
		if err != nil {
			log.Fatalf("failed to read %s: %v", file, err)
		}
		if _, err := database.Exec(string(content)); err != nil {
			log.Fatalf("failed to apply %s: %v", file, err)
		}
		log.Printf("applied %s", file)
	}
}
