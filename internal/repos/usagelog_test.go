package repos

import (
	"context"
	"testing"
	"time"

	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/repos/testutil"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/types"
)

func TestUsageLogRepoCounts(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewUsageLogRepo(db, testutil.Logger(t))
	ctx := context.Background()

	user := testutil.SeedUser(t, ctx, tx, "usagelog@example.com")

	entries := []*types.UsageLog{
		{ServiceName: "upload-service", Endpoint: "POST /api/photos", UserID: &user.ID},
		{ServiceName: "upload-service", Endpoint: "POST /api/photos", UserID: &user.ID},
		{ServiceName: "emotion-service", Endpoint: "tag", UserID: &user.ID},
		{ServiceName: "search-service", Endpoint: "GET /api/search"},
	}
	if _, err := repo.Create(ctx, tx, entries); err != nil {
		t.Fatalf("Create: %v", err)
	}

	from := time.Now().Add(-time.Hour)
	to := time.Now().Add(time.Hour)
	counts, err := repo.CountByServiceAndEndpoint(ctx, tx, from, to)
	if err != nil {
		t.Fatalf("CountByServiceAndEndpoint: %v", err)
	}

	byKey := make(map[string]int64, len(counts))
	for _, c := range counts {
		byKey[c.ServiceName+" "+c.Endpoint] = c.Count
	}
	if byKey["upload-service POST /api/photos"] != 2 {
		t.Fatalf("upload count = %d, want 2", byKey["upload-service POST /api/photos"])
	}
	if byKey["emotion-service tag"] != 1 {
		t.Fatalf("tag count = %d, want 1", byKey["emotion-service tag"])
	}
	if byKey["search-service GET /api/search"] != 1 {
		t.Fatalf("search count = %d, want 1", byKey["search-service GET /api/search"])
	}

	// Rows outside the window stay out of the aggregate.
	counts, err = repo.CountByServiceAndEndpoint(ctx, tx, from.Add(-48*time.Hour), from)
	if err != nil {
		t.Fatalf("CountByServiceAndEndpoint (past window): %v", err)
	}
	if len(counts) != 0 {
		t.Fatalf("expected no counts in past window, got %+v", counts)
	}
}
