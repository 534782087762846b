package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/logger"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/media"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/repos"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/sse"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/types"
)

const (
	taggingServiceName = "emotion-service"
	taggingCallType    = "emotion_analysis"

	// Image payloads above this are rejected before the model call.
	maxImageBytes = 20 << 20
)

// TaggingService drives a photo from unprocessed to tagged or failed. A photo
// only ever moves forward: tagged is final, failed can be retried back through
// Tag. Concurrent calls for the same photo are coalesced so at most one model
// call is in flight per photo.
type TaggingService interface {
	Tag(ctx context.Context, photoID uuid.UUID) (*types.Photo, error)
}

type taggingService struct {
	log        *logger.Logger
	photoRepo  repos.PhotoRepo
	aiCallRepo repos.AICallLogRepo
	usage      UsageService
	store      media.Store
	openai     OpenAIClient
	emojis     *EmojiMap
	hub        *sse.SSEHub

	inflight singleflight.Group
}

func NewTaggingService(
	log *logger.Logger,
	photoRepo repos.PhotoRepo,
	aiCallRepo repos.AICallLogRepo,
	usage UsageService,
	store media.Store,
	openai OpenAIClient,
	emojis *EmojiMap,
	hub *sse.SSEHub,
) (TaggingService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if photoRepo == nil || aiCallRepo == nil || usage == nil {
		return nil, fmt.Errorf("repos required")
	}
	if store == nil {
		return nil, fmt.Errorf("media store required")
	}
	if openai == nil {
		return nil, fmt.Errorf("OpenAI client required")
	}
	if emojis == nil {
		return nil, fmt.Errorf("emoji map required")
	}
	return &taggingService{
		log:        log.With("service", "TaggingService"),
		photoRepo:  photoRepo,
		aiCallRepo: aiCallRepo,
		usage:      usage,
		store:      store,
		openai:     openai,
		emojis:     emojis,
		hub:        hub,
	}, nil
}

func (s *taggingService) Tag(ctx context.Context, photoID uuid.UUID) (*types.Photo, error) {
	v, err, _ := s.inflight.Do(photoID.String(), func() (any, error) {
		return s.tagOnce(ctx, photoID)
	})
	// On failure the refreshed record rides along with the error so callers can
	// surface the failed state as written.
	photo, _ := v.(*types.Photo)
	return photo, err
}

func (s *taggingService) tagOnce(ctx context.Context, photoID uuid.UUID) (*types.Photo, error) {
	photo, err := s.photoRepo.GetByID(ctx, nil, photoID)
	if err != nil {
		return nil, err
	}

	s.usage.Log(ctx, taggingServiceName, "tag", &photo.UserID)

	// Tagged is final. Re-invoking returns the stored result untouched.
	if photo.Status == types.PhotoStatusTagged {
		return photo, nil
	}

	// Terminal-state writes run on a context detached from the caller. A caller
	// that gives up mid-call abandons only its wait, never the state flip.
	persistCtx := context.WithoutCancel(ctx)

	start := time.Now()

	image, mime, err := s.loadImage(ctx, photo)
	if err != nil {
		s.log.Warn("Photo content unavailable",
			"photo_id", photoID,
			"storage_key", photo.StorageKey,
			"error", err,
		)
		return s.fail(persistCtx, photo, types.TagErrContentUnavailable, err.Error())
	}

	raw, callErr := s.openai.DescribeImage(ctx, buildEmotionPrompt(), mime, image)
	s.recordCall(persistCtx, photo, raw, callErr)
	if callErr != nil {
		s.log.Warn("Vision model call failed",
			"photo_id", photoID,
			"elapsed", time.Since(start).String(),
			"error", callErr,
		)
		kind := types.TagErrMalformedResponse
		if IsUpstreamError(callErr) {
			kind = types.TagErrTransientUpstream
		}
		return s.fail(persistCtx, photo, kind, callErr.Error())
	}

	analysis, parseErr := parseEmotionJSON(raw)
	if parseErr != nil {
		s.log.Warn("Unusable vision model response",
			"photo_id", photoID,
			"error", parseErr,
		)
		return s.fail(persistCtx, photo, types.TagErrMalformedResponse, parseErr.Error())
	}

	ann := repos.TaggedAnnotations{
		Caption:       analysis.Caption,
		Emotions:      analysis.Emotions,
		EmotionEmojis: s.emojis.Complete(analysis.Emotions, analysis.EmotionEmojis),
		Confidence:    analysis.Confidence,
	}

	flipped, err := s.photoRepo.MarkTagged(persistCtx, nil, photo.ID, ann)
	if err != nil {
		return nil, err
	}

	updated, err := s.photoRepo.GetByID(persistCtx, nil, photo.ID)
	if err != nil {
		return nil, err
	}

	if flipped {
		s.log.Info("Photo tagged",
			"photo_id", photoID,
			"emotions", analysis.Emotions,
			"confidence", analysis.Confidence,
			"elapsed", time.Since(start).String(),
		)
		if s.hub != nil {
			s.hub.BroadcastToUser(updated.UserID, sse.SSEEventPhotoTagged, updated)
		}
	}
	return updated, nil
}

func (s *taggingService) loadImage(ctx context.Context, photo *types.Photo) ([]byte, string, error) {
	rc, err := s.store.Open(ctx, photo.StorageKey)
	if err != nil {
		return nil, "", err
	}
	defer rc.Close()

	image, err := io.ReadAll(io.LimitReader(rc, maxImageBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(image) == 0 {
		return nil, "", fmt.Errorf("stored object is empty")
	}
	if len(image) > maxImageBytes {
		return nil, "", fmt.Errorf("stored object exceeds %d bytes", maxImageBytes)
	}

	mime := photo.MimeType
	if mime == "" {
		mime = "image/jpeg"
	}
	return image, mime, nil
}

// fail records a terminal failed state and returns the refreshed photo along
// with a typed error the handler layer can map. If another writer tagged the
// photo first the stored result wins and no error is returned.
func (s *taggingService) fail(ctx context.Context, photo *types.Photo, kind, detail string) (*types.Photo, error) {
	flipped, err := s.photoRepo.MarkFailed(ctx, nil, photo.ID, kind, detail)
	if err != nil {
		return nil, err
	}

	updated, err := s.photoRepo.GetByID(ctx, nil, photo.ID)
	if err != nil {
		return nil, err
	}
	if !flipped && updated.Status == types.PhotoStatusTagged {
		return updated, nil
	}

	if s.hub != nil {
		s.hub.BroadcastToUser(updated.UserID, sse.SSEEventPhotoTagFailed, updated)
	}
	return updated, &TagError{Kind: kind, Detail: detail}
}

func (s *taggingService) recordCall(ctx context.Context, photo *types.Photo, response string, callErr error) {
	entry := &types.AICallLog{
		PhotoID:  &photo.ID,
		UserID:   &photo.UserID,
		CallType: taggingCallType,
		Model:    s.openai.Model(),
		Response: response,
		Success:  callErr == nil,
	}
	if callErr != nil {
		entry.Error = callErr.Error()
	}
	if _, err := s.aiCallRepo.Create(ctx, nil, []*types.AICallLog{entry}); err != nil {
		s.log.Warn("Failed to record model call", "photo_id", photo.ID, "error", err)
	}
}

// TagError carries the failure class recorded on the photo.
type TagError struct {
	Kind   string
	Detail string
}

func (e *TagError) Error() string {
	return fmt.Sprintf("tagging failed (%s): %s", e.Kind, e.Detail)
}
