package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/zacleo008/AI-AR-GirlFriend/internal/store"
	"github.com/zacleo008/AI-AR-GirlFriend/internal/store/storetest"
)

// postgresDSN returns COMPANION_TEST_POSTGRES_DSN, or starts a throwaway
// container when COMPANION_TEST_CONTAINERS=1. Otherwise the test is skipped.
func postgresDSN(t *testing.T) string {
	t.Helper()
	if dsn := os.Getenv("COMPANION_TEST_POSTGRES_DSN"); dsn != "" {
		return dsn
	}
	if os.Getenv("COMPANION_TEST_CONTAINERS") != "1" {
		t.Skip("COMPANION_TEST_POSTGRES_DSN not set and COMPANION_TEST_CONTAINERS!=1; skipping postgres store integration test")
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "companion",
			"POSTGRES_PASSWORD": "companion",
			"POSTGRES_DB":       "companion",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}
	return fmt.Sprintf("postgres://companion:companion@%s:%s/companion?sslmode=disable", host, port.Port())
}

func makePGStore(t *testing.T) store.Store {
	t.Helper()
	s, err := New(context.Background(), postgresDSN(t), zerolog.Nop())
	if err != nil {
		t.Fatalf("postgres open: %v", err)
	}
	return s
}

func TestPostgresStore_Compliance(t *testing.T) {
	storetest.Run(t, makePGStore)
}

func TestOpen_EmptyDSN(t *testing.T) {
	if _, err := Open(context.Background(), "", zerolog.Nop()); err == nil {
		t.Fatalf("expected error for empty DSN")
	}
}

func TestKeywordClause_Numbering(t *testing.T) {
	clause, args := keywordClause([]string{"user_text", "ai_text"}, []string{"movies", "50%"}, 2)
	want := `(lower(user_text) LIKE $2 ESCAPE '\' OR lower(ai_text) LIKE $3 ESCAPE '\') OR ` +
		`(lower(user_text) LIKE $4 ESCAPE '\' OR lower(ai_text) LIKE $5 ESCAPE '\')`
	if clause != want {
		t.Fatalf("unexpected clause:\n got %s\nwant %s", clause, want)
	}
	if len(args) != 4 || args[0] != "%movies%" || args[2] != `%50\%%` {
		t.Fatalf("unexpected args: %v", args)
	}
}
