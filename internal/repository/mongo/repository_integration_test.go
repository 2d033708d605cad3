package mongo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bayuairbender2950/youtube-to-url/internal/domain"
)

// testMongoURI returns the MongoDB connection URI for integration tests.
// Defaults to localhost:27017. Set MONGO_TEST_URI to override.
func testMongoURI() string {
	if uri := os.Getenv("MONGO_TEST_URI"); uri != "" {
		return uri
	}
	return "mongodb://localhost:27017"
}

// setupTestRepo connects to MongoDB and returns a Repository using a unique
// test database. The cleanup function drops the database and disconnects.
// Calls t.Skip if MongoDB is unreachable.
func setupTestRepo(t *testing.T) (*Repository, func()) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	uri := testMongoURI()
	client, err := Connect(ctx, uri, options.Client().SetConnectTimeout(3*time.Second))
	if err != nil {
		t.Skipf("MongoDB not available at %s: %v", uri, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		t.Skipf("MongoDB ping failed at %s: %v", uri, err)
	}

	dbName := fmt.Sprintf("ytstream_test_%d", time.Now().UnixNano())
	repo := NewRepository(client, dbName, "history")

	if err := repo.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		t.Fatalf("EnsureIndexes: %v", err)
	}

	cleanup := func() {
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = client.Database(dbName).Drop(ctx2)
		_ = client.Disconnect(ctx2)
	}
	return repo, cleanup
}

func sampleRecord(id string, at time.Time) domain.StreamRecord {
	return domain.StreamRecord{
		ContentID: id,
		Title:     "Clip " + id,
		Quality:   domain.Quality1080p,
		Mode:      domain.ModePassthrough,
		BytesSent: 1024,
		StartedAt: at,
		UpdatedAt: at,
	}
}

func TestIntegrationUpsertGet(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	rec := sampleRecord("vid-1", now)
	if err := repo.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := repo.Get(ctx, "vid-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != rec.Title || got.Quality != rec.Quality {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}

	// Second upsert for the same content replaces, not duplicates.
	rec.BytesSent = 2048
	rec.Quality = domain.Quality2160p
	if err := repo.Upsert(ctx, rec); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	got, err = repo.Get(ctx, "vid-1")
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	if got.BytesSent != 2048 || got.Quality != domain.Quality2160p {
		t.Fatalf("upsert did not replace: %+v", got)
	}
}

func TestIntegrationGetMissing(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	if _, err := repo.Get(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIntegrationListRecentOrderAndLimit(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		rec := sampleRecord(fmt.Sprintf("vid-%d", i), base.Add(time.Duration(i)*time.Minute))
		if err := repo.Upsert(ctx, rec); err != nil {
			t.Fatalf("Upsert %d: %v", i, err)
		}
	}

	records, err := repo.ListRecent(ctx, 3)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	// Most recently updated first.
	if records[0].ContentID != "vid-4" || records[2].ContentID != "vid-2" {
		t.Fatalf("unexpected order: %s, %s, %s",
			records[0].ContentID, records[1].ContentID, records[2].ContentID)
	}
}

func TestIntegrationDelete(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()

	rec := sampleRecord("vid-del", time.Now().UTC())
	if err := repo.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := repo.Delete(ctx, "vid-del"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, "vid-del"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
