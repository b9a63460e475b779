// Command seedops seeds a demo operator into the local replica so a
// fresh terminal can be logged into before it has ever synced.
// Usage: go run ./cmd/seedops
package main

import (
	"context"
	"fmt"
	stdlog "log"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"tillsync/internal/infra"
	"tillsync/internal/model"
	"tillsync/internal/replica"
)

func main() {
	dbPath := os.Getenv("LOCAL_DB_PATH")
	if dbPath == "" {
		dbPath = "tillsync.db"
	}
	pin := os.Getenv("SEED_PIN")
	if pin == "" {
		pin = "1234"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), 12)
	if err != nil {
		stdlog.Fatalf("bcrypt error: %v", err)
	}

	db, err := infra.NewLocalDB(dbPath)
	if err != nil {
		stdlog.Fatalf("db open error: %v", err)
	}

	now := time.Now().UTC()
	op := model.Operator{
		ID:        uuid.NewString(),
		Name:      "Demo Admin",
		PINHash:   string(hash),
		Role:      model.RoleAdmin,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	rec, err := model.ToRecord(op)
	if err != nil {
		stdlog.Fatalf("encode error: %v", err)
	}

	store := replica.NewStore(db)
	if err := store.UpsertMany(context.Background(), model.CollectionUsers, []model.Record{rec}); err != nil {
		stdlog.Fatalf("insert error: %v", err)
	}
	fmt.Printf("operator %q seeded with PIN %s\n", op.Name, pin)
}
