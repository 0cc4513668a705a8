package learner_test

import (
	"errors"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cyber-sensei/backend/internal/learner"
	"github.com/cyber-sensei/backend/internal/platform/database"
)

func startPostgres(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := t.Context()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("sensei"),
		tcpostgres.WithUsername("sensei"),
		tcpostgres.WithPassword("sensei"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	testcontainers.CleanupContainer(t, container)
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	db, err := database.New(ctx, url, database.Options{})
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func TestPostgresStore_CreateAndLookup(t *testing.T) {
	db := startPostgres(t)

	store, err := learner.NewPostgresStore(t.Context(), db.Pool)
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}

	created, err := store.Create(t.Context(), "alice", "Alice", "hunter22")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID == 0 {
		t.Error("Create() returned zero id")
	}
	if !created.VerifyPassword("hunter22") {
		t.Error("stored hash does not verify the password")
	}

	byName, err := store.ByUsername(t.Context(), "alice")
	if err != nil {
		t.Fatalf("ByUsername() error = %v", err)
	}
	if byName.ID != created.ID || byName.DisplayName != "Alice" {
		t.Errorf("learner = %+v", byName)
	}

	if _, err := store.Create(t.Context(), "alice", "Other", "secret"); err == nil {
		t.Error("Create() with duplicate username should fail")
	}

	if _, err := store.ByID(t.Context(), created.ID+1000); !errors.Is(err, learner.ErrNotFound) {
		t.Errorf("ByID() error = %v, want ErrNotFound", err)
	}
}
