package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/repos"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/sse"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/types"
)

// ---- fakes ----

type fakePhotoRepo struct {
	mu     sync.Mutex
	photos map[uuid.UUID]*types.Photo
}

func newFakePhotoRepo() *fakePhotoRepo {
	return &fakePhotoRepo{photos: make(map[uuid.UUID]*types.Photo)}
}

func (f *fakePhotoRepo) add(p *types.Photo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos[p.ID] = p
}

func (f *fakePhotoRepo) Create(ctx context.Context, tx *gorm.DB, photos []*types.Photo) ([]*types.Photo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range photos {
		f.photos[p.ID] = p
	}
	return photos, nil
}

func (f *fakePhotoRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Photo, error) {
	// Like gorm's WithContext, operations on a dead context fail.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.photos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePhotoRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID) (*types.Photo, error) {
	p, err := f.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (f *fakePhotoRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Photo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Photo
	for _, p := range f.photos {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakePhotoRepo) Search(ctx context.Context, tx *gorm.DB, filter repos.PhotoFilter) ([]*types.Photo, error) {
	return f.GetByUserID(ctx, tx, filter.UserID)
}

func (f *fakePhotoRepo) ListRetryable(ctx context.Context, tx *gorm.DB, unprocessedBefore time.Time) ([]*types.Photo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Photo
	for _, p := range f.photos {
		if p.Status == types.PhotoStatusFailed {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakePhotoRepo) DistinctEmotions(ctx context.Context, tx *gorm.DB) ([]string, error) {
	return nil, nil
}

func (f *fakePhotoRepo) MarkTagged(ctx context.Context, tx *gorm.DB, id uuid.UUID, ann repos.TaggedAnnotations) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.photos[id]
	if !ok {
		return false, nil
	}
	if p.Status != types.PhotoStatusUnprocessed && p.Status != types.PhotoStatusFailed {
		return false, nil
	}
	emotionsJSON, _ := json.Marshal(ann.Emotions)
	emojisJSON, _ := json.Marshal(ann.EmotionEmojis)
	caption := ann.Caption
	confidence := ann.Confidence
	p.Status = types.PhotoStatusTagged
	p.Caption = &caption
	p.Emotions = datatypes.JSON(emotionsJSON)
	p.EmotionEmojis = datatypes.JSON(emojisJSON)
	p.Confidence = &confidence
	p.ErrorKind = ""
	p.ErrorDetail = ""
	return true, nil
}

func (f *fakePhotoRepo) MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, errorKind, errorDetail string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.photos[id]
	if !ok {
		return false, nil
	}
	if p.Status == types.PhotoStatusTagged {
		return false, nil
	}
	p.Status = types.PhotoStatusFailed
	p.ErrorKind = errorKind
	p.ErrorDetail = errorDetail
	return true, nil
}

func (f *fakePhotoRepo) FullDeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.photos, id)
	return nil
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Save(ctx context.Context, key string, file io.Reader) error {
	b, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = b
	return nil
}

func (f *fakeStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeStore) PublicURL(key string) string { return "/uploads/" + key }

type fakeOpenAI struct {
	mu       sync.Mutex
	calls    int
	response string
	err      error
	block    chan struct{}
}

func (f *fakeOpenAI) DescribeImage(ctx context.Context, prompt, imageMime string, image []byte) (string, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.response, f.err
}

func (f *fakeOpenAI) Model() string { return "test-model" }

func (f *fakeOpenAI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeAICallRepo struct {
	mu      sync.Mutex
	entries []*types.AICallLog
}

func (f *fakeAICallRepo) Create(ctx context.Context, tx *gorm.DB, logs []*types.AICallLog) ([]*types.AICallLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, logs...)
	return logs, nil
}

func (f *fakeAICallRepo) GetByPhotoID(ctx context.Context, tx *gorm.DB, photoID uuid.UUID) ([]*types.AICallLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.AICallLog
	for _, e := range f.entries {
		if e.PhotoID != nil && *e.PhotoID == photoID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeUsage struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeUsage) Log(ctx context.Context, serviceName, endpoint string, userID *uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, serviceName+" "+endpoint)
}

func (f *fakeUsage) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

// ---- harness ----

const validModelResponse = `{
	"caption": "A golden retriever running through a field.",
	"emotions": ["joyful", "energetic"],
	"emotion_emojis": {"joyful": "😄", "energetic": "⚡"},
	"primary_emotion": "joyful",
	"confidence": 0.92
}`

type taggingHarness struct {
	photoRepo *fakePhotoRepo
	aiRepo    *fakeAICallRepo
	usage     *fakeUsage
	store     *fakeStore
	openai    *fakeOpenAI
	svc       TaggingService
	photo     *types.Photo
}

func newTaggingHarness(t *testing.T) *taggingHarness {
	t.Helper()
	log := testLogger(t)

	h := &taggingHarness{
		photoRepo: newFakePhotoRepo(),
		aiRepo:    &fakeAICallRepo{},
		usage:     &fakeUsage{},
		store:     newFakeStore(),
		openai:    &fakeOpenAI{response: validModelResponse},
	}

	t.Setenv("EMOTION_EMOJI_CONFIG", "")
	emojis, err := LoadEmojiMap(log)
	if err != nil {
		t.Fatalf("LoadEmojiMap: %v", err)
	}

	svc, err := NewTaggingService(log, h.photoRepo, h.aiRepo, h.usage, h.store, h.openai, emojis, sse.NewSSEHub(log))
	if err != nil {
		t.Fatalf("NewTaggingService: %v", err)
	}
	h.svc = svc

	userID := uuid.New()
	photoID := uuid.New()
	h.photo = &types.Photo{
		ID:         photoID,
		UserID:     userID,
		StorageKey: userID.String() + "/" + photoID.String() + ".jpg",
		MimeType:   "image/jpeg",
		Status:     types.PhotoStatusUnprocessed,
	}
	h.photoRepo.add(h.photo)
	h.store.objects[h.photo.StorageKey] = []byte("jpeg-bytes")
	return h
}

// ---- tests ----

func TestTagSuccess(t *testing.T) {
	h := newTaggingHarness(t)
	ctx := context.Background()

	got, err := h.svc.Tag(ctx, h.photo.ID)
	if err != nil {
		t.Fatalf("Tag: %v", err)
	}
	if got.Status != types.PhotoStatusTagged {
		t.Fatalf("status = %q, want tagged", got.Status)
	}
	if got.Caption == nil || *got.Caption == "" {
		t.Fatalf("caption not set")
	}
	if got.Confidence == nil || *got.Confidence != 0.92 {
		t.Fatalf("confidence not set: %v", got.Confidence)
	}
	var emotions []string
	if err := json.Unmarshal(got.Emotions, &emotions); err != nil || len(emotions) != 2 {
		t.Fatalf("emotions not set: %s", got.Emotions)
	}
	var emojis map[string]string
	if err := json.Unmarshal(got.EmotionEmojis, &emojis); err != nil {
		t.Fatalf("emojis not set: %s", got.EmotionEmojis)
	}
	if emojis["joyful"] != "😄" || emojis["energetic"] != "⚡" {
		t.Fatalf("unexpected emojis: %v", emojis)
	}
	if got.ErrorKind != "" || got.ErrorDetail != "" {
		t.Fatalf("error fields should be empty: %q %q", got.ErrorKind, got.ErrorDetail)
	}

	calls, _ := h.aiRepo.GetByPhotoID(ctx, nil, h.photo.ID)
	if len(calls) != 1 || !calls[0].Success {
		t.Fatalf("expected one successful call log, got %+v", calls)
	}
	if h.usage.count() != 1 {
		t.Fatalf("expected one usage event, got %d", h.usage.count())
	}
}

func TestTagIdempotentOnTagged(t *testing.T) {
	h := newTaggingHarness(t)
	ctx := context.Background()

	first, err := h.svc.Tag(ctx, h.photo.ID)
	if err != nil {
		t.Fatalf("first Tag: %v", err)
	}

	// Even with the content gone and the model broken, a tagged photo returns
	// its stored result without any outbound work.
	delete(h.store.objects, h.photo.StorageKey)
	h.openai.err = errors.New("should not be called")

	second, err := h.svc.Tag(ctx, h.photo.ID)
	if err != nil {
		t.Fatalf("second Tag: %v", err)
	}
	if second.Status != types.PhotoStatusTagged {
		t.Fatalf("status = %q, want tagged", second.Status)
	}
	if *second.Caption != *first.Caption {
		t.Fatalf("stored result changed: %q vs %q", *second.Caption, *first.Caption)
	}
	if h.openai.callCount() != 1 {
		t.Fatalf("model called %d times, want 1", h.openai.callCount())
	}
}

func TestTagContentUnavailable(t *testing.T) {
	h := newTaggingHarness(t)
	ctx := context.Background()
	delete(h.store.objects, h.photo.StorageKey)

	got, err := h.svc.Tag(ctx, h.photo.ID)
	var tagErr *TagError
	if !errors.As(err, &tagErr) {
		t.Fatalf("expected TagError, got %v", err)
	}
	if tagErr.Kind != types.TagErrContentUnavailable {
		t.Fatalf("kind = %q, want content_unavailable", tagErr.Kind)
	}
	if got.Status != types.PhotoStatusFailed {
		t.Fatalf("status = %q, want failed", got.Status)
	}
	if got.ErrorKind != types.TagErrContentUnavailable {
		t.Fatalf("error kind = %q", got.ErrorKind)
	}
	if h.openai.callCount() != 0 {
		t.Fatalf("no model call expected, got %d", h.openai.callCount())
	}
	calls, _ := h.aiRepo.GetByPhotoID(ctx, nil, h.photo.ID)
	if len(calls) != 0 {
		t.Fatalf("no call log expected, got %d", len(calls))
	}
}

func TestTagTransientUpstream(t *testing.T) {
	h := newTaggingHarness(t)
	ctx := context.Background()
	h.openai.err = &openAIHTTPError{StatusCode: 503, Body: "overloaded"}
	h.openai.response = ""

	got, err := h.svc.Tag(ctx, h.photo.ID)
	var tagErr *TagError
	if !errors.As(err, &tagErr) {
		t.Fatalf("expected TagError, got %v", err)
	}
	if tagErr.Kind != types.TagErrTransientUpstream {
		t.Fatalf("kind = %q, want transient_upstream", tagErr.Kind)
	}
	if got.Status != types.PhotoStatusFailed {
		t.Fatalf("status = %q, want failed", got.Status)
	}
	if got.Caption != nil || len(got.Emotions) != 0 {
		t.Fatalf("failed photo must not carry annotations")
	}
	calls, _ := h.aiRepo.GetByPhotoID(ctx, nil, h.photo.ID)
	if len(calls) != 1 || calls[0].Success {
		t.Fatalf("expected one failed call log, got %+v", calls)
	}
}

func TestTagPersistsFailureWhenCallerGivesUp(t *testing.T) {
	h := newTaggingHarness(t)

	// Model call outlives the caller's deadline.
	h.openai.block = make(chan struct{})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	got, err := h.svc.Tag(ctx, h.photo.ID)
	var tagErr *TagError
	if !errors.As(err, &tagErr) {
		t.Fatalf("expected TagError, got %v", err)
	}
	if tagErr.Kind != types.TagErrTransientUpstream {
		t.Fatalf("kind = %q, want transient_upstream", tagErr.Kind)
	}
	if got == nil || got.Status != types.PhotoStatusFailed {
		t.Fatalf("caller must see the failed record, got %+v", got)
	}

	// The dead caller context must not strand the photo: the stored record
	// reaches a terminal state and the call log still lands.
	stored, gErr := h.photoRepo.GetByID(context.Background(), nil, h.photo.ID)
	if gErr != nil {
		t.Fatalf("GetByID: %v", gErr)
	}
	if stored.Status != types.PhotoStatusFailed {
		t.Fatalf("photo left in %q after a completed attempt", stored.Status)
	}
	if stored.ErrorKind != types.TagErrTransientUpstream {
		t.Fatalf("error kind = %q, want transient_upstream", stored.ErrorKind)
	}
	calls, _ := h.aiRepo.GetByPhotoID(context.Background(), nil, h.photo.ID)
	if len(calls) != 1 || calls[0].Success {
		t.Fatalf("expected one failed call log, got %+v", calls)
	}
}

func TestTagFailureReturnsRefreshedRecord(t *testing.T) {
	h := newTaggingHarness(t)
	ctx := context.Background()
	h.openai.response = "Sorry, I cannot help with that."

	got, err := h.svc.Tag(ctx, h.photo.ID)
	if err == nil {
		t.Fatalf("expected error")
	}
	if got == nil {
		t.Fatalf("failure must return the record alongside the error")
	}
	if got.Status != types.PhotoStatusFailed || got.ErrorKind != types.TagErrMalformedResponse {
		t.Fatalf("returned record not refreshed: status=%q kind=%q", got.Status, got.ErrorKind)
	}
}

func TestTagMalformedResponse(t *testing.T) {
	h := newTaggingHarness(t)
	ctx := context.Background()
	h.openai.response = "Sorry, I cannot help with that."

	got, err := h.svc.Tag(ctx, h.photo.ID)
	var tagErr *TagError
	if !errors.As(err, &tagErr) {
		t.Fatalf("expected TagError, got %v", err)
	}
	if tagErr.Kind != types.TagErrMalformedResponse {
		t.Fatalf("kind = %q, want malformed_response", tagErr.Kind)
	}
	if got.Status != types.PhotoStatusFailed {
		t.Fatalf("status = %q, want failed", got.Status)
	}
}

func TestTagRetryRecoversFailedPhoto(t *testing.T) {
	h := newTaggingHarness(t)
	ctx := context.Background()

	h.openai.err = &openAIHTTPError{StatusCode: 503, Body: "overloaded"}
	if _, err := h.svc.Tag(ctx, h.photo.ID); err == nil {
		t.Fatalf("expected first attempt to fail")
	}

	h.openai.err = nil
	h.openai.response = validModelResponse
	got, err := h.svc.Tag(ctx, h.photo.ID)
	if err != nil {
		t.Fatalf("retry Tag: %v", err)
	}
	if got.Status != types.PhotoStatusTagged {
		t.Fatalf("status = %q, want tagged", got.Status)
	}
	if got.ErrorKind != "" || got.ErrorDetail != "" {
		t.Fatalf("error fields must be cleared on success: %q %q", got.ErrorKind, got.ErrorDetail)
	}
}

func TestTagMissingEmojiFallsBack(t *testing.T) {
	h := newTaggingHarness(t)
	ctx := context.Background()
	h.openai.response = `{
		"caption": "a photo",
		"emotions": ["nostalgic"],
		"primary_emotion": "nostalgic",
		"confidence": 0.6
	}`

	got, err := h.svc.Tag(ctx, h.photo.ID)
	if err != nil {
		t.Fatalf("Tag: %v", err)
	}
	var emojis map[string]string
	if err := json.Unmarshal(got.EmotionEmojis, &emojis); err != nil {
		t.Fatalf("emojis not set: %s", got.EmotionEmojis)
	}
	if emojis["nostalgic"] != DefaultEmotionEmoji {
		t.Fatalf("expected fallback emoji, got %q", emojis["nostalgic"])
	}
}

func TestTagUnknownPhoto(t *testing.T) {
	h := newTaggingHarness(t)
	if _, err := h.svc.Tag(context.Background(), uuid.New()); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}
}

func TestTagCoalescesConcurrentCalls(t *testing.T) {
	h := newTaggingHarness(t)
	ctx := context.Background()

	release := make(chan struct{})
	h.openai.block = release

	const callers = 5
	var wg sync.WaitGroup
	results := make([]*types.Photo, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := h.svc.Tag(ctx, h.photo.ID)
			if err != nil {
				t.Errorf("Tag: %v", err)
				return
			}
			results[i] = p
		}(i)
	}

	// Give every caller time to join the in-flight group before the model
	// responds.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if h.openai.callCount() != 1 {
		t.Fatalf("model called %d times, want 1", h.openai.callCount())
	}
	for i, p := range results {
		if p == nil || p.Status != types.PhotoStatusTagged {
			t.Fatalf("caller %d got %+v", i, p)
		}
	}
}
