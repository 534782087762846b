package repos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/logger"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/types"
)

// PhotoFilter narrows Search. Emotion implies status=tagged: unprocessed and
// failed photos never match an emotion filter but do appear in unfiltered
// listings.
type PhotoFilter struct {
	UserID  uuid.UUID
	Emotion string
	From    *time.Time
	To      *time.Time
}

type TaggedAnnotations struct {
	Caption       string
	Emotions      []string
	EmotionEmojis map[string]string
	Confidence    float64
}

type PhotoRepo interface {
	Create(ctx context.Context, tx *gorm.DB, photos []*types.Photo) ([]*types.Photo, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Photo, error)
	GetByIDForUser(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID) (*types.Photo, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Photo, error)
	Search(ctx context.Context, tx *gorm.DB, filter PhotoFilter) ([]*types.Photo, error)
	ListRetryable(ctx context.Context, tx *gorm.DB, unprocessedBefore time.Time) ([]*types.Photo, error)
	DistinctEmotions(ctx context.Context, tx *gorm.DB) ([]string, error)

	// MarkTagged flips an unprocessed or failed photo to tagged and persists all
	// four annotation fields in one UPDATE. It reports whether a row actually
	// transitioned; false means the photo was already tagged (or missing).
	MarkTagged(ctx context.Context, tx *gorm.DB, id uuid.UUID, ann TaggedAnnotations) (bool, error)

	// MarkFailed records the error kind on any photo that is not already tagged.
	MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, errorKind, errorDetail string) (bool, error)

	FullDeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type photoRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPhotoRepo(db *gorm.DB, baseLog *logger.Logger) PhotoRepo {
	repoLog := baseLog.With("repo", "PhotoRepo")
	return &photoRepo{db: db, log: repoLog}
}

func (r *photoRepo) Create(ctx context.Context, tx *gorm.DB, photos []*types.Photo) ([]*types.Photo, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(photos) == 0 {
		return []*types.Photo{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&photos).Error; err != nil {
		return nil, err
	}
	return photos, nil
}

func (r *photoRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Photo, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Photo
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *photoRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, id, userID uuid.UUID) (*types.Photo, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Photo
	if err := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *photoRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Photo, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Photo
	if userID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *photoRepo) Search(ctx context.Context, tx *gorm.DB, filter PhotoFilter) ([]*types.Photo, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	q := transaction.WithContext(ctx).Model(&types.Photo{})
	if filter.UserID != uuid.Nil {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Emotion != "" {
		needle, err := json.Marshal([]string{filter.Emotion})
		if err != nil {
			return nil, err
		}
		q = q.Where("status = ?", types.PhotoStatusTagged).
			Where("emotions @> ?", datatypes.JSON(needle))
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at <= ?", *filter.To)
	}

	var results []*types.Photo
	if err := q.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *photoRepo) ListRetryable(ctx context.Context, tx *gorm.DB, unprocessedBefore time.Time) ([]*types.Photo, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Photo
	if err := transaction.WithContext(ctx).
		Where("status = ? OR (status = ? AND created_at < ?)",
			types.PhotoStatusFailed, types.PhotoStatusUnprocessed, unprocessedBefore).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *photoRepo) DistinctEmotions(ctx context.Context, tx *gorm.DB) ([]string, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []string
	if err := transaction.WithContext(ctx).
		Raw(`SELECT DISTINCT jsonb_array_elements_text(emotions) AS emotion
		     FROM photo
		     WHERE status = ? AND deleted_at IS NULL
		     ORDER BY emotion ASC`, types.PhotoStatusTagged).
		Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *photoRepo) MarkTagged(ctx context.Context, tx *gorm.DB, id uuid.UUID, ann TaggedAnnotations) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	emotionsJSON, err := json.Marshal(ann.Emotions)
	if err != nil {
		return false, err
	}
	emojisJSON, err := json.Marshal(ann.EmotionEmojis)
	if err != nil {
		return false, err
	}

	res := transaction.WithContext(ctx).
		Model(&types.Photo{}).
		Where("id = ? AND status IN ?", id, []string{types.PhotoStatusUnprocessed, types.PhotoStatusFailed}).
		Updates(map[string]any{
			"status":         types.PhotoStatusTagged,
			"caption":        ann.Caption,
			"emotions":       datatypes.JSON(emotionsJSON),
			"emotion_emojis": datatypes.JSON(emojisJSON),
			"confidence":     ann.Confidence,
			"error_kind":     "",
			"error_detail":   "",
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *photoRepo) MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, errorKind, errorDetail string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.Photo{}).
		Where("id = ? AND status <> ?", id, types.PhotoStatusTagged).
		Updates(map[string]any{
			"status":       types.PhotoStatusFailed,
			"error_kind":   errorKind,
			"error_detail": errorDetail,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *photoRepo) FullDeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Unscoped().
		Where("id = ?", id).
		Delete(&types.Photo{}).Error; err != nil {
		return err
	}
	return nil
}
