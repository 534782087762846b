package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/logger"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/repos"
)

const adminServiceName = "admin-service"

type UsageSummary struct {
	TotalRequests int            `json:"total_requests"`
	ByEndpoint    map[string]int `json:"by_endpoint"`
	ByService     map[string]int `json:"by_service"`
}

type UsageStatsResult struct {
	Summary     UsageSummary `json:"summary"`
	PeriodStart time.Time    `json:"period_start"`
	PeriodEnd   time.Time    `json:"period_end"`
}

type AdminService interface {
	UsageStats(ctx context.Context, userID uuid.UUID, days int) (*UsageStatsResult, error)
}

type adminService struct {
	log       *logger.Logger
	usageRepo repos.UsageLogRepo
	usage     UsageService
}

func NewAdminService(log *logger.Logger, usageRepo repos.UsageLogRepo, usage UsageService) (AdminService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if usageRepo == nil || usage == nil {
		return nil, fmt.Errorf("repos required")
	}
	return &adminService{
		log:       log.With("service", "AdminService"),
		usageRepo: usageRepo,
		usage:     usage,
	}, nil
}

func (s *adminService) UsageStats(ctx context.Context, userID uuid.UUID, days int) (*UsageStatsResult, error) {
	s.usage.Log(ctx, adminServiceName, "GET /api/admin/usage", &userID)

	if days <= 0 {
		days = 30
	}
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	counts, err := s.usageRepo.CountByServiceAndEndpoint(ctx, nil, start, end)
	if err != nil {
		return nil, err
	}

	summary := UsageSummary{
		ByEndpoint: make(map[string]int),
		ByService:  make(map[string]int),
	}
	for _, c := range counts {
		summary.ByEndpoint[c.Endpoint] += int(c.Count)
		summary.ByService[c.ServiceName] += int(c.Count)
		summary.TotalRequests += int(c.Count)
	}
	return &UsageStatsResult{
		Summary:     summary,
		PeriodStart: start,
		PeriodEnd:   end,
	}, nil
}
