// internal/controller/campaign_controller.go
package controller

import (
    "encoding/json"
    "errors"
    "net/http"
    "time"

    "github.com/go-chi/chi/v5"

    appErrors "github.com/hirestream/outreach-backend/internal/errors"
    "github.com/hirestream/outreach-backend/internal/model"
    "github.com/hirestream/outreach-backend/internal/repository"
    "github.com/hirestream/outreach-backend/internal/service"
)

type CampaignController struct {
    CampaignRepo repository.CampaignRepositoryInterface
    Scheduler    *service.EnrollmentScheduler
}

func writeError(w http.ResponseWriter, err error) {
    var builtin *appErrors.ErrBuiltinCampaign
    switch {
    case appErrors.IsNotFound(err):
        http.Error(w, err.Error(), http.StatusNotFound)
    case appErrors.IsDuplicateActive(err):
        http.Error(w, err.Error(), http.StatusConflict)
    case errors.As(err, &builtin):
        http.Error(w, err.Error(), http.StatusForbidden)
    default:
        http.Error(w, err.Error(), http.StatusInternalServerError)
    }
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
    var body struct {
        ID             string               `json:"id"`
        Name           string               `json:"name"`
        Description    string               `json:"description"`
        Trigger        string               `json:"trigger"`
        Steps          []model.CampaignStep `json:"steps"`
        StopConditions []string             `json:"stop_conditions"`
    }
    if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
        http.Error(w, "invalid body", http.StatusBadRequest)
        return
    }

    campaign := &model.Campaign{
        ID:             body.ID,
        Name:           body.Name,
        Description:    body.Description,
        Trigger:        body.Trigger,
        Steps:          body.Steps,
        StopConditions: body.StopConditions,
        IsCustom:       true,
    }
    if campaign.Trigger == "" {
        campaign.Trigger = model.TriggerManual
    }
    if err := campaign.Validate(); err != nil {
        http.Error(w, err.Error(), http.StatusBadRequest)
        return
    }

    if err := c.CampaignRepo.Create(campaign); err != nil {
        writeError(w, err)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(campaign)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
    campaigns, err := c.CampaignRepo.List()
    if err != nil {
        writeError(w, err)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "data": campaigns,
    })
}

func (c *CampaignController) GetCampaign(w http.ResponseWriter, r *http.Request) {
    id := chi.URLParam(r, "id")
    campaign, err := c.CampaignRepo.GetByID(id)
    if err != nil {
        writeError(w, err)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(campaign)
}

// UpdateCampaign replaces the whole definition, steps included. There is no
// in-place step editing; enrollments keep their own cursor and pick up the
// new steps on their next due tick.
func (c *CampaignController) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
    id := chi.URLParam(r, "id")
    existing, err := c.CampaignRepo.GetByID(id)
    if err != nil {
        writeError(w, err)
        return
    }

    var body struct {
        Name           string               `json:"name"`
        Description    string               `json:"description"`
        Trigger        string               `json:"trigger"`
        Steps          []model.CampaignStep `json:"steps"`
        StopConditions []string             `json:"stop_conditions"`
    }
    if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
        http.Error(w, "invalid body", http.StatusBadRequest)
        return
    }

    campaign := &model.Campaign{
        ID:             id,
        Name:           body.Name,
        Description:    body.Description,
        Trigger:        body.Trigger,
        Steps:          body.Steps,
        StopConditions: body.StopConditions,
        IsCustom:       existing.IsCustom,
        CreatedAt:      existing.CreatedAt,
    }
    if campaign.Name == "" {
        campaign.Name = existing.Name
    }
    if campaign.Trigger == "" {
        campaign.Trigger = existing.Trigger
    }
    if err := campaign.Validate(); err != nil {
        http.Error(w, err.Error(), http.StatusBadRequest)
        return
    }

    if err := c.CampaignRepo.Update(campaign); err != nil {
        writeError(w, err)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(campaign)
}

// DeleteCampaign removes a custom campaign. Built-ins are refused.
func (c *CampaignController) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
    id := chi.URLParam(r, "id")
    if err := c.CampaignRepo.Delete(id); err != nil {
        writeError(w, err)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{"deleted": id})
}

func (c *CampaignController) Enroll(w http.ResponseWriter, r *http.Request) {
    var req service.EnrollRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        http.Error(w, "invalid body", http.StatusBadRequest)
        return
    }

    enrollment, err := c.Scheduler.Enroll(&req)
    if err != nil {
        writeError(w, err)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(http.StatusCreated)
    json.NewEncoder(w).Encode(enrollment)
}

func (c *CampaignController) Unenroll(w http.ResponseWriter, r *http.Request) {
    var body struct {
        CandidateID string `json:"candidate_id"`
        CampaignID  string `json:"campaign_id"`
        Reason      string `json:"reason"`
    }
    if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
        http.Error(w, "invalid body", http.StatusBadRequest)
        return
    }
    if body.Reason == "" {
        body.Reason = "unenrolled"
    }

    affected, err := c.Scheduler.Unenroll(body.CandidateID, body.CampaignID, body.Reason)
    if err != nil {
        writeError(w, err)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{"unenrolled": affected})
}

func (c *CampaignController) MarkResponded(w http.ResponseWriter, r *http.Request) {
    var body struct {
        CandidateID string `json:"candidate_id"`
        CampaignID  string `json:"campaign_id"`
    }
    if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
        http.Error(w, "invalid body", http.StatusBadRequest)
        return
    }

    affected, err := c.Scheduler.MarkResponded(body.CandidateID, body.CampaignID)
    if err != nil {
        writeError(w, err)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{"marked": affected})
}

// ProcessDueSteps triggers one manual tick.
func (c *CampaignController) ProcessDueSteps(w http.ResponseWriter, r *http.Request) {
    summary, err := c.Scheduler.ProcessDueSteps(time.Now())
    if err != nil {
        writeError(w, err)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(summary)
}
