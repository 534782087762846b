package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/logger"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/repos"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/types"
)

const searchServiceName = "search-service"

type SearchQuery struct {
	Emotion string
	From    *time.Time
	To      *time.Time
}

type SearchResult struct {
	Results []*types.Photo `json:"results"`
	Count   int            `json:"count"`
}

type SearchService interface {
	Search(ctx context.Context, userID uuid.UUID, query SearchQuery) (*SearchResult, error)
}

type searchService struct {
	log       *logger.Logger
	photoRepo repos.PhotoRepo
	usage     UsageService
}

func NewSearchService(log *logger.Logger, photoRepo repos.PhotoRepo, usage UsageService) (SearchService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if photoRepo == nil || usage == nil {
		return nil, fmt.Errorf("repos required")
	}
	return &searchService{
		log:       log.With("service", "SearchService"),
		photoRepo: photoRepo,
		usage:     usage,
	}, nil
}

func (s *searchService) Search(ctx context.Context, userID uuid.UUID, query SearchQuery) (*SearchResult, error) {
	s.usage.Log(ctx, searchServiceName, "GET /api/search", &userID)

	if query.From != nil && query.To != nil && query.To.Before(*query.From) {
		return nil, fmt.Errorf("date range end precedes start")
	}

	filter := repos.PhotoFilter{
		UserID:  userID,
		Emotion: strings.ToLower(strings.TrimSpace(query.Emotion)),
		From:    query.From,
		To:      query.To,
	}
	photos, err := s.photoRepo.Search(ctx, nil, filter)
	if err != nil {
		return nil, err
	}
	return &SearchResult{Results: photos, Count: len(photos)}, nil
}
