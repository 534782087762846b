package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/types"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:        uuid.New(),
		Email:     email,
		Password:  "pw",
		FirstName: "A",
		LastName:  "B",
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedPhoto(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, status string) *types.Photo {
	tb.Helper()
	id := uuid.New()
	p := &types.Photo{
		ID:         id,
		UserID:     userID,
		StorageKey: userID.String() + "/" + id.String() + ".jpg",
		MimeType:   "image/jpeg",
		SizeBytes:  1024,
		Status:     status,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed photo: %v", err)
	}
	return p
}

// SeedTaggedPhoto creates a photo already in the tagged state with the given
// emotions, uploaded at a fixed point in time.
func SeedTaggedPhoto(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, emotions []string, createdAt time.Time) *types.Photo {
	tb.Helper()
	emotionsJSON, err := json.Marshal(emotions)
	if err != nil {
		tb.Fatalf("marshal emotions: %v", err)
	}
	emojis := make(map[string]string, len(emotions))
	for _, e := range emotions {
		emojis[e] = "😐"
	}
	emojisJSON, err := json.Marshal(emojis)
	if err != nil {
		tb.Fatalf("marshal emojis: %v", err)
	}

	id := uuid.New()
	caption := "a photo"
	confidence := 0.9
	p := &types.Photo{
		ID:            id,
		UserID:        userID,
		StorageKey:    userID.String() + "/" + id.String() + ".jpg",
		MimeType:      "image/jpeg",
		SizeBytes:     1024,
		Status:        types.PhotoStatusTagged,
		Caption:       &caption,
		Emotions:      datatypes.JSON(emotionsJSON),
		EmotionEmojis: datatypes.JSON(emojisJSON),
		Confidence:    &confidence,
		CreatedAt:     createdAt,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed tagged photo: %v", err)
	}
	return p
}
