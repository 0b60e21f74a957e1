package repository

import (
    "sort"
    "sync"
    "time"

    appErrors "github.com/hirestream/outreach-backend/internal/errors"
    "github.com/hirestream/outreach-backend/internal/model"
)

// In-memory implementations of the repository interfaces, guarded by a
// mutex. They mirror the compare-and-set semantics of the SQL repositories
// exactly, so scheduler behavior under concurrent ticks can be exercised
// without a database.

type InMemoryCampaignRepository struct {
    mu        sync.Mutex
    campaigns map[string]*model.Campaign
}

func NewInMemoryCampaignRepository() *InMemoryCampaignRepository {
    return &InMemoryCampaignRepository{campaigns: make(map[string]*model.Campaign)}
}

func (r *InMemoryCampaignRepository) Create(c *model.Campaign) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    c.CreatedAt = time.Now()
    cp := *c
    r.campaigns[c.ID] = &cp
    return nil
}

func (r *InMemoryCampaignRepository) GetByID(id string) (*model.Campaign, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    c, ok := r.campaigns[id]
    if !ok {
        return nil, appErrors.NewCampaignNotFound(id)
    }
    cp := *c
    return &cp, nil
}

func (r *InMemoryCampaignRepository) List() ([]*model.Campaign, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    out := []*model.Campaign{}
    for _, c := range r.campaigns {
        cp := *c
        out = append(out, &cp)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
    return out, nil
}

func (r *InMemoryCampaignRepository) Update(c *model.Campaign) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    existing, ok := r.campaigns[c.ID]
    if !ok {
        return appErrors.NewCampaignNotFound(c.ID)
    }
    now := time.Now()
    cp := *c
    cp.IsCustom = existing.IsCustom
    cp.CreatedAt = existing.CreatedAt
    cp.UpdatedAt = &now
    r.campaigns[c.ID] = &cp
    return nil
}

func (r *InMemoryCampaignRepository) Delete(id string) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    c, ok := r.campaigns[id]
    if !ok {
        return appErrors.NewCampaignNotFound(id)
    }
    if !c.IsCustom {
        return appErrors.NewBuiltinCampaign(id)
    }
    delete(r.campaigns, id)
    return nil
}

var _ CampaignRepositoryInterface = (*InMemoryCampaignRepository)(nil)

type InMemoryEnrollmentRepository struct {
    mu          sync.Mutex
    enrollments map[string]*model.Enrollment
}

func NewInMemoryEnrollmentRepository() *InMemoryEnrollmentRepository {
    return &InMemoryEnrollmentRepository{enrollments: make(map[string]*model.Enrollment)}
}

func cloneEnrollment(e *model.Enrollment) *model.Enrollment {
    cp := *e
    if e.NextDueAt != nil {
        t := *e.NextDueAt
        cp.NextDueAt = &t
    }
    if e.ClaimExpiresAt != nil {
        t := *e.ClaimExpiresAt
        cp.ClaimExpiresAt = &t
    }
    if e.Variables != nil {
        cp.Variables = make(map[string]string, len(e.Variables))
        for k, v := range e.Variables {
            cp.Variables[k] = v
        }
    }
    return &cp
}

func (r *InMemoryEnrollmentRepository) Create(e *model.Enrollment) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    r.enrollments[e.ID] = cloneEnrollment(e)
    return nil
}

func (r *InMemoryEnrollmentRepository) GetByID(id string) (*model.Enrollment, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    e, ok := r.enrollments[id]
    if !ok {
        return nil, appErrors.NewEnrollmentNotFound(id)
    }
    return cloneEnrollment(e), nil
}

func (r *InMemoryEnrollmentRepository) FindActive(campaignID, candidateID string) (*model.Enrollment, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    for _, e := range r.enrollments {
        if e.CampaignID == campaignID && e.CandidateID == candidateID && e.Status == model.StatusActive {
            return cloneEnrollment(e), nil
        }
    }
    return nil, nil
}

func (r *InMemoryEnrollmentRepository) ListByCandidate(candidateID string) ([]*model.Enrollment, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    out := []*model.Enrollment{}
    for _, e := range r.enrollments {
        if e.CandidateID == candidateID {
            out = append(out, cloneEnrollment(e))
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].EnrolledAt.Before(out[j].EnrolledAt) })
    return out, nil
}

func (r *InMemoryEnrollmentRepository) ListActive(candidateID, campaignID string) ([]*model.Enrollment, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    out := []*model.Enrollment{}
    for _, e := range r.enrollments {
        if e.CandidateID != candidateID || e.Status != model.StatusActive {
            continue
        }
        if campaignID != "" && e.CampaignID != campaignID {
            continue
        }
        out = append(out, cloneEnrollment(e))
    }
    return out, nil
}

func (r *InMemoryEnrollmentRepository) ListDue(now time.Time, limit int) ([]*model.Enrollment, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    out := []*model.Enrollment{}
    for _, e := range r.enrollments {
        if e.Status != model.StatusActive || e.NextDueAt == nil || e.NextDueAt.After(now) {
            continue
        }
        if e.ClaimedBy != "" && e.ClaimExpiresAt != nil && e.ClaimExpiresAt.After(now) {
            continue
        }
        out = append(out, cloneEnrollment(e))
    }
    sort.Slice(out, func(i, j int) bool { return out[i].NextDueAt.Before(*out[j].NextDueAt) })
    if len(out) > limit {
        out = out[:limit]
    }
    return out, nil
}

func (r *InMemoryEnrollmentRepository) Claim(id string, version int, owner string, leaseUntil time.Time, now time.Time) (bool, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    e, ok := r.enrollments[id]
    if !ok {
        return false, nil
    }
    if e.Version != version {
        return false, nil
    }
    if e.ClaimedBy != "" && e.ClaimExpiresAt != nil && e.ClaimExpiresAt.After(now) {
        return false, nil
    }
    e.ClaimedBy = owner
    t := leaseUntil
    e.ClaimExpiresAt = &t
    return true, nil
}

func (r *InMemoryEnrollmentRepository) Release(e *model.Enrollment, owner string) (bool, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    stored, ok := r.enrollments[e.ID]
    if !ok || stored.ClaimedBy != owner {
        return false, nil
    }
    // Same merge as the SQL repository: responded and a concurrent
    // cancellation belong to the stored row, everything else to the caller.
    stored.CurrentStep = e.CurrentStep
    stored.Responded = stored.Responded || e.Responded
    stored.RetryCount = e.RetryCount
    stored.LastError = e.LastError
    if stored.Status == model.StatusCancelled {
        stored.NextDueAt = nil
    } else {
        stored.Status = e.Status
        stored.CancelReason = e.CancelReason
        if e.NextDueAt != nil {
            t := *e.NextDueAt
            stored.NextDueAt = &t
        } else {
            stored.NextDueAt = nil
        }
    }
    stored.ClaimedBy = ""
    stored.ClaimExpiresAt = nil
    stored.Version++
    stored.UpdatedAt = time.Now()
    e.Version = stored.Version
    e.ClaimedBy = ""
    e.ClaimExpiresAt = nil
    return true, nil
}

func (r *InMemoryEnrollmentRepository) Update(e *model.Enrollment) (bool, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    stored, ok := r.enrollments[e.ID]
    if !ok || stored.Version != e.Version {
        return false, nil
    }
    stored.CurrentStep = e.CurrentStep
    stored.Status = e.Status
    stored.Responded = e.Responded
    stored.CancelReason = e.CancelReason
    stored.RetryCount = e.RetryCount
    stored.LastError = e.LastError
    if e.NextDueAt != nil {
        t := *e.NextDueAt
        stored.NextDueAt = &t
    } else {
        stored.NextDueAt = nil
    }
    stored.Version++
    stored.UpdatedAt = time.Now()
    e.Version = stored.Version
    return true, nil
}

func (r *InMemoryEnrollmentRepository) Stats(campaignID string) (*model.CampaignStats, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    stats := &model.CampaignStats{CampaignID: campaignID}
    for _, e := range r.enrollments {
        if e.CampaignID != campaignID {
            continue
        }
        countEnrollment(stats, e)
    }
    return stats, nil
}

func (r *InMemoryEnrollmentRepository) AllStats() ([]*model.CampaignStats, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    byCampaign := map[string]*model.CampaignStats{}
    for _, e := range r.enrollments {
        stats, ok := byCampaign[e.CampaignID]
        if !ok {
            stats = &model.CampaignStats{CampaignID: e.CampaignID}
            byCampaign[e.CampaignID] = stats
        }
        countEnrollment(stats, e)
    }
    all := make([]*model.CampaignStats, 0, len(byCampaign))
    for _, stats := range byCampaign {
        all = append(all, stats)
    }
    sort.Slice(all, func(i, j int) bool { return all[i].CampaignID < all[j].CampaignID })
    return all, nil
}

func countEnrollment(stats *model.CampaignStats, e *model.Enrollment) {
    switch e.Status {
    case model.StatusActive:
        stats.Active++
    case model.StatusCompleted:
        stats.Completed++
    case model.StatusCancelled:
        stats.Cancelled++
    }
    if e.Responded {
        stats.Responded++
    }
    stats.Total++
}

var _ EnrollmentRepositoryInterface = (*InMemoryEnrollmentRepository)(nil)

type InMemoryTaskRepository struct {
    mu    sync.Mutex
    tasks []*model.Task
}

func NewInMemoryTaskRepository() *InMemoryTaskRepository {
    return &InMemoryTaskRepository{}
}

func (r *InMemoryTaskRepository) Create(t *model.Task) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    t.CreatedAt = time.Now()
    cp := *t
    r.tasks = append(r.tasks, &cp)
    return nil
}

func (r *InMemoryTaskRepository) ListByCandidate(candidateID string) ([]*model.Task, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    out := []*model.Task{}
    for _, t := range r.tasks {
        if t.CandidateID == candidateID {
            cp := *t
            out = append(out, &cp)
        }
    }
    return out, nil
}

var _ TaskRepositoryInterface = (*InMemoryTaskRepository)(nil)
