package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/logger"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/repos"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/types"
)

const timelineServiceName = "timeline-service"

const (
	TimelineBucketMonth = "month"
	TimelineBucketWeek  = "week"
	TimelineBucketDay   = "day"
)

type TimelineDataPoint struct {
	Period   string         `json:"period"`
	Emotions map[string]int `json:"emotions"`
}

type TimelineResult struct {
	UserID uuid.UUID           `json:"user_id"`
	Data   []TimelineDataPoint `json:"data"`
}

// TimelineService buckets a user's tagged photos by period and counts every
// emotion in each bucket. Photos that are not tagged yet carry no emotions and
// are skipped.
type TimelineService interface {
	Timeline(ctx context.Context, userID uuid.UUID, bucket string) (*TimelineResult, error)
}

type timelineService struct {
	log       *logger.Logger
	photoRepo repos.PhotoRepo
	usage     UsageService
}

func NewTimelineService(log *logger.Logger, photoRepo repos.PhotoRepo, usage UsageService) (TimelineService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if photoRepo == nil || usage == nil {
		return nil, fmt.Errorf("repos required")
	}
	return &timelineService{
		log:       log.With("service", "TimelineService"),
		photoRepo: photoRepo,
		usage:     usage,
	}, nil
}

func (s *timelineService) Timeline(ctx context.Context, userID uuid.UUID, bucket string) (*TimelineResult, error) {
	s.usage.Log(ctx, timelineServiceName, "GET /api/timeline", &userID)

	if bucket == "" {
		bucket = TimelineBucketMonth
	}
	switch bucket {
	case TimelineBucketMonth, TimelineBucketWeek, TimelineBucketDay:
	default:
		return nil, fmt.Errorf("bucket must be 'month', 'week', or 'day'")
	}

	photos, err := s.photoRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}

	periodCounts := make(map[string]map[string]int)
	for _, photo := range photos {
		if photo.Status != types.PhotoStatusTagged {
			continue
		}
		emotions := decodeEmotions(photo.Emotions)
		if len(emotions) == 0 {
			continue
		}

		period := formatPeriod(photo.CreatedAt, bucket)
		counts, ok := periodCounts[period]
		if !ok {
			counts = make(map[string]int)
			periodCounts[period] = counts
		}
		for _, emotion := range emotions {
			counts[emotion]++
		}
	}

	periods := make([]string, 0, len(periodCounts))
	for p := range periodCounts {
		periods = append(periods, p)
	}
	sort.Strings(periods)

	data := make([]TimelineDataPoint, 0, len(periods))
	for _, p := range periods {
		data = append(data, TimelineDataPoint{Period: p, Emotions: periodCounts[p]})
	}
	return &TimelineResult{UserID: userID, Data: data}, nil
}

func decodeEmotions(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var emotions []string
	if err := json.Unmarshal(raw, &emotions); err != nil {
		return nil
	}
	return emotions
}

func formatPeriod(t time.Time, bucket string) string {
	switch bucket {
	case TimelineBucketWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case TimelineBucketDay:
		return t.Format("2006-01-02")
	default:
		return t.Format("2006-01")
	}
}
