// internal/handler/stats_handler.go
package handler

import (
    "encoding/json"
    "net/http"

    "github.com/go-chi/chi/v5"

    appErrors "github.com/hirestream/outreach-backend/internal/errors"
    "github.com/hirestream/outreach-backend/internal/repository"
    "github.com/hirestream/outreach-backend/internal/service"
)

// StatsHandler holds the dependencies for the read-only reporting endpoints
type StatsHandler struct {
    EnrollmentRepo repository.EnrollmentRepositoryInterface
    Stats          *service.StatsService
}

// GetCampaignStatsHandler returns aggregate counters for one campaign
func (h *StatsHandler) GetCampaignStatsHandler(w http.ResponseWriter, r *http.Request) {
    id := chi.URLParam(r, "campaign_id")

    stats, err := h.Stats.GetStats(id)
    if err != nil {
        if appErrors.IsNotFound(err) {
            http.Error(w, err.Error(), http.StatusNotFound)
            return
        }
        http.Error(w, "failed to fetch stats: "+err.Error(), http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(stats)
}

// GetAllStatsHandler returns aggregate counters for every campaign
func (h *StatsHandler) GetAllStatsHandler(w http.ResponseWriter, r *http.Request) {
    stats, err := h.Stats.GetAllStats()
    if err != nil {
        http.Error(w, "failed to fetch stats: "+err.Error(), http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{"data": stats})
}

// ListEnrollmentsHandler returns every enrollment for a candidate, terminal
// ones included
func (h *StatsHandler) ListEnrollmentsHandler(w http.ResponseWriter, r *http.Request) {
    candidateID := chi.URLParam(r, "candidate_id")

    enrollments, err := h.EnrollmentRepo.ListByCandidate(candidateID)
    if err != nil {
        http.Error(w, "failed to fetch enrollments: "+err.Error(), http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{"data": enrollments})
}
