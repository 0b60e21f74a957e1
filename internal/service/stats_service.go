// internal/service/stats_service.go
package service

import (
    "github.com/hirestream/outreach-backend/internal/model"
    "github.com/hirestream/outreach-backend/internal/repository"
)

// StatsService projects per-campaign counters from enrollment state. Read
// only; results are computed per call and may trail an in-flight tick.
type StatsService struct {
    CampaignRepo   repository.CampaignRepositoryInterface
    EnrollmentRepo repository.EnrollmentRepositoryInterface
}

func (s *StatsService) GetStats(campaignID string) (*model.CampaignStats, error) {
    if _, err := s.CampaignRepo.GetByID(campaignID); err != nil {
        return nil, err
    }
    return s.EnrollmentRepo.Stats(campaignID)
}

func (s *StatsService) GetAllStats() ([]*model.CampaignStats, error) {
    return s.EnrollmentRepo.AllStats()
}
