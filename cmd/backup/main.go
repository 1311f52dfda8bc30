// Command backup snapshots the members and events collections into a
// dated SQLite file. Each collection becomes a two-column table of
// document id and canonical JSON, which keeps restores trivial and the
// snapshot greppable.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	_ "modernc.org/sqlite"

	"mms/internal/adapters/storage"
	eventStore "mms/internal/adapters/storage/event"
	memberStore "mms/internal/adapters/storage/member"
)

type config struct {
	MongoURI  string `env:"MMS_MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDB   string `env:"MMS_MONGO_DB" envDefault:"mms"`
	BackupDir string `env:"MMS_BACKUP_DIR" envDefault:"backups"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	client, err := storage.Connect(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatalf("failed to connect to document store: %v", err)
	}
	defer client.Disconnect(context.Background())

	mongoDB := client.Database(cfg.MongoDB)
	path := filepath.Join(cfg.BackupDir, fmt.Sprintf("mms-%s.db", time.Now().Format("2006-01-02-150405")))

	db, err := sql.Open("sqlite", path)
	if err != nil {
		log.Fatalf("failed to open snapshot file: %v", err)
	}
	defer db.Close()

	members, err := memberStore.NewMongoStore(mongoDB).List(ctx)
	if err != nil {
		log.Fatalf("failed to read members: %v", err)
	}
	memberRows := make([]row, 0, len(members))
	for i := range members {
		memberRows = append(memberRows, row{id: members[i].ID, doc: members[i]})
	}
	if err := writeTable(db, memberStore.CollectionName, memberRows); err != nil {
		log.Fatalf("failed to snapshot members: %v", err)
	}

	events, err := eventStore.NewMongoStore(mongoDB).List(ctx)
	if err != nil {
		log.Fatalf("failed to read events: %v", err)
	}
	eventRows := make([]row, 0, len(events))
	for i := range events {
		eventRows = append(eventRows, row{id: events[i].ID, doc: events[i]})
	}
	if err := writeTable(db, eventStore.CollectionName, eventRows); err != nil {
		log.Fatalf("failed to snapshot events: %v", err)
	}

	log.Printf("Snapshot written to %s (%d members, %d events)", path, len(members), len(events))
}

type row struct {
	id  string
	doc any
}

// writeTable creates the named table and inserts every row in one
// transaction, so a failed snapshot never leaves a half-written table.
func writeTable(db *sql.DB, name string, rows []row) error {
	if _, err := db.Exec(fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, doc TEXT NOT NULL)", name)); err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(fmt.Sprintf("INSERT OR REPLACE INTO %s (id, doc) VALUES (?, ?)", name))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		doc, err := json.Marshal(r.doc)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(r.id, string(doc)); err != nil {
			return err
		}
	}
	return tx.Commit()
}
