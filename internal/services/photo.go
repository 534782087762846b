package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/logger"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/media"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/repos"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/sse"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/types"
)

const photoServiceName = "upload-service"

var allowedPhotoExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

type UploadPhotoInput struct {
	Filename string
	MimeType string
	Size     int64
	File     io.Reader
}

// EmotionEntry pairs an emotion name with its display emoji.
type EmotionEntry struct {
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
}

type EmotionsResult struct {
	Emotions          []string          `json:"emotions"`
	EmotionsWithEmoji []EmotionEntry    `json:"emotions_with_emoji"`
	EmojiMap          map[string]string `json:"emoji_map"`
}

type PhotoService interface {
	UploadPhoto(ctx context.Context, userID uuid.UUID, input UploadPhotoInput) (*types.Photo, error)
	ListPhotos(ctx context.Context, userID uuid.UUID) ([]*types.Photo, error)
	GetPhoto(ctx context.Context, userID, photoID uuid.UUID) (*types.Photo, error)
	DeletePhoto(ctx context.Context, userID, photoID uuid.UUID) error
	RetryTagging(ctx context.Context, userID, photoID uuid.UUID) (*types.Photo, error)
	ListEmotions(ctx context.Context, userID uuid.UUID) (*EmotionsResult, error)
}

type photoService struct {
	log       *logger.Logger
	photoRepo repos.PhotoRepo
	usage     UsageService
	store     media.Store
	tagging   TaggingService
	emojis    *EmojiMap
	hub       *sse.SSEHub

	tagTimeout time.Duration
}

func NewPhotoService(
	log *logger.Logger,
	photoRepo repos.PhotoRepo,
	usage UsageService,
	store media.Store,
	tagging TaggingService,
	emojis *EmojiMap,
	hub *sse.SSEHub,
) (PhotoService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if photoRepo == nil || usage == nil {
		return nil, fmt.Errorf("repos required")
	}
	if store == nil {
		return nil, fmt.Errorf("media store required")
	}
	if tagging == nil {
		return nil, fmt.Errorf("tagging service required")
	}
	if emojis == nil {
		return nil, fmt.Errorf("emoji map required")
	}
	return &photoService{
		log:        log.With("service", "PhotoService"),
		photoRepo:  photoRepo,
		usage:      usage,
		store:      store,
		tagging:    tagging,
		emojis:     emojis,
		hub:        hub,
		tagTimeout: 3 * time.Minute,
	}, nil
}

func (s *photoService) UploadPhoto(ctx context.Context, userID uuid.UUID, input UploadPhotoInput) (*types.Photo, error) {
	s.usage.Log(ctx, photoServiceName, "POST /api/photos", &userID)

	ext := strings.ToLower(filepath.Ext(input.Filename))
	mimeFromExt, ok := allowedPhotoExtensions[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}
	mime := strings.TrimSpace(input.MimeType)
	if mime == "" || mime == "application/octet-stream" {
		mime = mimeFromExt
	}

	photoID := uuid.New()
	storageKey := fmt.Sprintf("%s/%s%s", userID, photoID, ext)

	if err := s.store.Save(ctx, storageKey, input.File); err != nil {
		return nil, fmt.Errorf("failed to store photo: %w", err)
	}

	photo := &types.Photo{
		ID:         photoID,
		UserID:     userID,
		StorageKey: storageKey,
		FileURL:    s.store.PublicURL(storageKey),
		MimeType:   mime,
		SizeBytes:  input.Size,
		Status:     types.PhotoStatusUnprocessed,
	}
	created, err := s.photoRepo.Create(ctx, nil, []*types.Photo{photo})
	if err != nil {
		// Roll back the stored object so no orphan remains on disk.
		if dErr := s.store.Delete(ctx, storageKey); dErr != nil {
			s.log.Warn("Failed to clean up stored object after create failure", "storage_key", storageKey, "error", dErr)
		}
		return nil, fmt.Errorf("failed to create photo record: %w", err)
	}
	photo = created[0]

	s.log.Info("Photo uploaded", "photo_id", photo.ID, "user_id", userID, "size_bytes", input.Size)
	if s.hub != nil {
		s.hub.BroadcastToUser(userID, sse.SSEEventPhotoUploaded, photo)
	}

	// Tagging runs detached from the request. The upload response always shows
	// the photo as unprocessed; clients observe the outcome via SSE or reads.
	go func(photoID uuid.UUID) {
		tagCtx, cancel := context.WithTimeout(context.Background(), s.tagTimeout)
		defer cancel()
		if _, tgErr := s.tagging.Tag(tagCtx, photoID); tgErr != nil {
			s.log.Warn("Background tagging did not complete", "photo_id", photoID, "error", tgErr)
		}
	}(photo.ID)

	return photo, nil
}

func (s *photoService) ListPhotos(ctx context.Context, userID uuid.UUID) ([]*types.Photo, error) {
	s.usage.Log(ctx, photoServiceName, "GET /api/photos", &userID)
	return s.photoRepo.GetByUserID(ctx, nil, userID)
}

func (s *photoService) GetPhoto(ctx context.Context, userID, photoID uuid.UUID) (*types.Photo, error) {
	s.usage.Log(ctx, photoServiceName, "GET /api/photos/:id", &userID)
	return s.photoRepo.GetByIDForUser(ctx, nil, photoID, userID)
}

func (s *photoService) DeletePhoto(ctx context.Context, userID, photoID uuid.UUID) error {
	s.usage.Log(ctx, photoServiceName, "DELETE /api/photos/:id", &userID)

	photo, err := s.photoRepo.GetByIDForUser(ctx, nil, photoID, userID)
	if err != nil {
		return err
	}
	if err := s.photoRepo.FullDeleteByID(ctx, nil, photo.ID); err != nil {
		return fmt.Errorf("failed to delete photo record: %w", err)
	}
	// The record is gone; a leftover object only wastes space.
	if dErr := s.store.Delete(ctx, photo.StorageKey); dErr != nil {
		s.log.Warn("Failed to delete stored object", "storage_key", photo.StorageKey, "error", dErr)
	}
	if s.hub != nil {
		s.hub.BroadcastToUser(userID, sse.SSEEventPhotoDeleted, map[string]any{"id": photo.ID})
	}
	return nil
}

func (s *photoService) RetryTagging(ctx context.Context, userID, photoID uuid.UUID) (*types.Photo, error) {
	s.usage.Log(ctx, photoServiceName, "POST /api/photos/:id/retag", &userID)

	// Ownership check before any tagging work happens.
	if _, err := s.photoRepo.GetByIDForUser(ctx, nil, photoID, userID); err != nil {
		return nil, err
	}
	return s.tagging.Tag(ctx, photoID)
}

func (s *photoService) ListEmotions(ctx context.Context, userID uuid.UUID) (*EmotionsResult, error) {
	s.usage.Log(ctx, photoServiceName, "GET /api/emotions", &userID)

	emotions, err := s.photoRepo.DistinctEmotions(ctx, nil)
	if err != nil {
		return nil, err
	}

	entries := make([]EmotionEntry, 0, len(emotions))
	for _, emotion := range emotions {
		entries = append(entries, EmotionEntry{Name: emotion, Emoji: s.emojis.Lookup(emotion)})
	}
	return &EmotionsResult{
		Emotions:          emotions,
		EmotionsWithEmoji: entries,
		EmojiMap:          s.emojis.All(),
	}, nil
}
