package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/types"
)

func TestFormatPeriod(t *testing.T) {
	tests := []struct {
		name   string
		t      time.Time
		bucket string
		want   string
	}{
		{"month", time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC), TimelineBucketMonth, "2025-03"},
		{"day", time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC), TimelineBucketDay, "2025-03-15"},
		{"week", time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC), TimelineBucketWeek, "2025-W11"},
		{"week pads single digit", time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), TimelineBucketWeek, "2025-W02"},
		// Jan 1 2027 falls in the last ISO week of 2026.
		{"week crosses year boundary", time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), TimelineBucketWeek, "2026-W53"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := formatPeriod(tc.t, tc.bucket); got != tc.want {
				t.Fatalf("formatPeriod(%v, %s) = %q, want %q", tc.t, tc.bucket, got, tc.want)
			}
		})
	}
}

func seedFakeTagged(repo *fakePhotoRepo, userID uuid.UUID, emotions []string, createdAt time.Time) {
	emotionsJSON, _ := json.Marshal(emotions)
	caption := "a photo"
	confidence := 0.8
	repo.add(&types.Photo{
		ID:         uuid.New(),
		UserID:     userID,
		StorageKey: "k",
		Status:     types.PhotoStatusTagged,
		Caption:    &caption,
		Emotions:   datatypes.JSON(emotionsJSON),
		Confidence: &confidence,
		CreatedAt:  createdAt,
	})
}

func TestTimelineAggregation(t *testing.T) {
	log := testLogger(t)
	repo := newFakePhotoRepo()
	usage := &fakeUsage{}
	svc, err := NewTimelineService(log, repo, usage)
	if err != nil {
		t.Fatalf("NewTimelineService: %v", err)
	}

	userID := uuid.New()
	march := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	april := time.Date(2025, 4, 2, 12, 0, 0, 0, time.UTC)

	seedFakeTagged(repo, userID, []string{"joyful", "calm"}, march)
	seedFakeTagged(repo, userID, []string{"joyful"}, march.Add(48*time.Hour))
	seedFakeTagged(repo, userID, []string{"sad"}, april)

	// Unprocessed photos carry no annotations and never count.
	repo.add(&types.Photo{
		ID:         uuid.New(),
		UserID:     userID,
		StorageKey: "k",
		Status:     types.PhotoStatusUnprocessed,
		CreatedAt:  march,
	})
	// Another user's photos stay out of this user's timeline.
	seedFakeTagged(repo, uuid.New(), []string{"angry"}, march)

	got, err := svc.Timeline(context.Background(), userID, TimelineBucketMonth)
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	if got.UserID != userID {
		t.Fatalf("user id = %v", got.UserID)
	}
	if len(got.Data) != 2 {
		t.Fatalf("expected 2 periods, got %d: %+v", len(got.Data), got.Data)
	}
	if got.Data[0].Period != "2025-03" || got.Data[1].Period != "2025-04" {
		t.Fatalf("periods out of order: %+v", got.Data)
	}
	marchCounts := got.Data[0].Emotions
	if marchCounts["joyful"] != 2 || marchCounts["calm"] != 1 {
		t.Fatalf("unexpected march counts: %v", marchCounts)
	}
	if got.Data[1].Emotions["sad"] != 1 {
		t.Fatalf("unexpected april counts: %v", got.Data[1].Emotions)
	}
}

func TestTimelineRejectsUnknownBucket(t *testing.T) {
	svc, err := NewTimelineService(testLogger(t), newFakePhotoRepo(), &fakeUsage{})
	if err != nil {
		t.Fatalf("NewTimelineService: %v", err)
	}
	if _, err := svc.Timeline(context.Background(), uuid.New(), "year"); err == nil {
		t.Fatalf("expected error for unknown bucket")
	}
}

func TestTimelineDefaultsToMonth(t *testing.T) {
	repo := newFakePhotoRepo()
	svc, err := NewTimelineService(testLogger(t), repo, &fakeUsage{})
	if err != nil {
		t.Fatalf("NewTimelineService: %v", err)
	}
	userID := uuid.New()
	seedFakeTagged(repo, userID, []string{"calm"}, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	got, err := svc.Timeline(context.Background(), userID, "")
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	if len(got.Data) != 1 || got.Data[0].Period != "2025-06" {
		t.Fatalf("expected month bucketing by default: %+v", got.Data)
	}
}
