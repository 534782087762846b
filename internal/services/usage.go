package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/logger"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/repos"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/types"
)

// UsageService records one usage row per handled operation. Recording is best
// effort; a failed insert never fails the operation being recorded.
type UsageService interface {
	Log(ctx context.Context, serviceName, endpoint string, userID *uuid.UUID)
}

type usageService struct {
	log  *logger.Logger
	repo repos.UsageLogRepo
}

func NewUsageService(log *logger.Logger, repo repos.UsageLogRepo) UsageService {
	return &usageService{
		log:  log.With("service", "UsageService"),
		repo: repo,
	}
}

func (s *usageService) Log(ctx context.Context, serviceName, endpoint string, userID *uuid.UUID) {
	entry := &types.UsageLog{
		ServiceName: serviceName,
		Endpoint:    endpoint,
		UserID:      userID,
	}
	if _, err := s.repo.Create(ctx, nil, []*types.UsageLog{entry}); err != nil {
		s.log.Warn("Failed to record usage", "service_name", serviceName, "endpoint", endpoint, "error", err)
	}
}
