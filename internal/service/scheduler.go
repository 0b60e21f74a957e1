// internal/service/scheduler.go
package service

import (
    "fmt"
    "log"
    "sync"
    "time"

    "github.com/google/uuid"

    appErrors "github.com/hirestream/outreach-backend/internal/errors"
    "github.com/hirestream/outreach-backend/internal/model"
    "github.com/hirestream/outreach-backend/internal/repository"
)

// EnrollmentScheduler advances candidates through campaign step sequences.
// ProcessDueSteps is safe to call repeatedly and concurrently: each due
// enrollment is claimed with a leased compare-and-set before any dispatch,
// so a step is dispatched at most once per advance.
type EnrollmentScheduler struct {
    CampaignRepo   repository.CampaignRepositoryInterface
    EnrollmentRepo repository.EnrollmentRepositoryInterface
    Dispatcher     DeliveryDispatcher

    Now          func() time.Time // test clock; defaults to time.Now
    MaxRetries   int              // transient failures per step before escalation
    RetryBackoff time.Duration    // due-time push after a transient failure
    ClaimLease   time.Duration    // lease duration; expired claims are stealable
    BatchLimit   int              // max enrollments per tick
}

type EnrollRequest struct {
    CampaignID     string            `json:"campaign_id"`
    CandidateID    string            `json:"candidate_id"`
    CandidateName  string            `json:"candidate_name"`
    CandidateEmail string            `json:"candidate_email"`
    CandidatePhone string            `json:"candidate_phone"`
    Variables      map[string]string `json:"variables"`
}

type TickSummary struct {
    Processed  int `json:"processed"`
    Dispatched int `json:"dispatched"`
    Skipped    int `json:"skipped"`
    Completed  int `json:"completed"`
    Cancelled  int `json:"cancelled"`
    Retried    int `json:"retried"`
    Errors     int `json:"errors"`
}

func (s *EnrollmentScheduler) now() time.Time {
    if s.Now != nil {
        return s.Now()
    }
    return time.Now()
}

func (s *EnrollmentScheduler) maxRetries() int {
    if s.MaxRetries > 0 {
        return s.MaxRetries
    }
    return 3
}

func (s *EnrollmentScheduler) retryBackoff() time.Duration {
    if s.RetryBackoff > 0 {
        return s.RetryBackoff
    }
    return 5 * time.Minute
}

func (s *EnrollmentScheduler) claimLease() time.Duration {
    if s.ClaimLease > 0 {
        return s.ClaimLease
    }
    return 2 * time.Minute
}

func (s *EnrollmentScheduler) batchLimit() int {
    if s.BatchLimit > 0 {
        return s.BatchLimit
    }
    return 100
}

// Enroll starts a candidate on a campaign. Re-enrolling while an active
// enrollment exists is rejected, not merged.
func (s *EnrollmentScheduler) Enroll(req *EnrollRequest) (*model.Enrollment, error) {
    if req.CampaignID == "" || req.CandidateID == "" {
        return nil, fmt.Errorf("campaign_id and candidate_id are required")
    }

    campaign, err := s.CampaignRepo.GetByID(req.CampaignID)
    if err != nil {
        return nil, err
    }

    existing, err := s.EnrollmentRepo.FindActive(req.CampaignID, req.CandidateID)
    if err != nil {
        return nil, err
    }
    if existing != nil {
        return nil, appErrors.NewDuplicateActive(req.CampaignID, req.CandidateID)
    }

    now := s.now()
    e := &model.Enrollment{
        ID:             uuid.NewString(),
        CampaignID:     req.CampaignID,
        CandidateID:    req.CandidateID,
        CandidateName:  req.CandidateName,
        CandidateEmail: req.CandidateEmail,
        CandidatePhone: req.CandidatePhone,
        Variables:      req.Variables,
        CurrentStep:    -1,
        Status:         model.StatusActive,
        EnrolledAt:     now,
        UpdatedAt:      now,
    }

    if len(campaign.Steps) == 0 {
        // Nothing to run; the enrollment is complete the moment it exists.
        e.Status = model.StatusCompleted
    } else {
        due := now.Add(campaign.Steps[0].Delay())
        e.NextDueAt = &due
    }

    if err := s.EnrollmentRepo.Create(e); err != nil {
        return nil, err
    }
    return e, nil
}

// MarkResponded flags the candidate's active enrollment(s) as responded.
// Cancellation from a "responded" stop condition happens lazily on the next
// tick; this call never cancels by itself. Returns the number of
// enrollments updated.
func (s *EnrollmentScheduler) MarkResponded(candidateID, campaignID string) (int, error) {
    return s.mutateActive(candidateID, campaignID, func(e *model.Enrollment) {
        e.Responded = true
    })
}

// Unenroll cancels the candidate's active enrollment(s) with the given
// reason. Unenrolling a terminal enrollment is a no-op.
func (s *EnrollmentScheduler) Unenroll(candidateID, campaignID, reason string) (int, error) {
    return s.mutateActive(candidateID, campaignID, func(e *model.Enrollment) {
        e.Status = model.StatusCancelled
        e.CancelReason = reason
        e.NextDueAt = nil
    })
}

// mutateActive applies mutate to each matching active enrollment under the
// version CAS, refetching on conflict with a concurrently running tick.
func (s *EnrollmentScheduler) mutateActive(candidateID, campaignID string, mutate func(*model.Enrollment)) (int, error) {
    if candidateID == "" {
        return 0, fmt.Errorf("candidate_id is required")
    }

    matches, err := s.EnrollmentRepo.ListActive(candidateID, campaignID)
    if err != nil {
        return 0, err
    }

    affected := 0
    for _, e := range matches {
        for attempt := 0; attempt < 3; attempt++ {
            mutate(e)
            ok, err := s.EnrollmentRepo.Update(e)
            if err != nil {
                return affected, err
            }
            if ok {
                affected++
                break
            }
            // Version conflict: a tick moved the row. Refetch and retry
            // unless it has gone terminal in the meantime.
            fresh, err := s.EnrollmentRepo.GetByID(e.ID)
            if err != nil {
                return affected, err
            }
            if fresh.Terminal() {
                break
            }
            e = fresh
        }
    }
    return affected, nil
}

// ProcessDueSteps runs one tick over every due active enrollment. Individual
// enrollment failures are counted, never raised; only a systemic repository
// failure fails the call.
func (s *EnrollmentScheduler) ProcessDueSteps(now time.Time) (*TickSummary, error) {
    owner := uuid.NewString()

    due, err := s.EnrollmentRepo.ListDue(now, s.batchLimit())
    if err != nil {
        return nil, fmt.Errorf("list due enrollments: %w", err)
    }

    claimed := []*model.Enrollment{}
    for _, e := range due {
        ok, err := s.EnrollmentRepo.Claim(e.ID, e.Version, owner, now.Add(s.claimLease()), now)
        if err != nil {
            return nil, fmt.Errorf("claim enrollment %s: %w", e.ID, err)
        }
        if ok {
            claimed = append(claimed, e)
        }
        // Claim lost: another tick owns it. Not an error.
    }

    summary := &TickSummary{}
    var mu sync.Mutex
    var wg sync.WaitGroup

    // Per-enrollment goroutines: a blocking dispatch on one enrollment must
    // not stall the rest. The only exclusivity held is the claim.
    for _, e := range claimed {
        wg.Add(1)
        go func(e *model.Enrollment) {
            defer wg.Done()
            s.processClaimed(now, owner, e, summary, &mu)
        }(e)
    }
    wg.Wait()

    return summary, nil
}

func (s *EnrollmentScheduler) processClaimed(now time.Time, owner string, e *model.Enrollment, summary *TickSummary, mu *sync.Mutex) {
    count := func(f func(*TickSummary)) {
        mu.Lock()
        f(summary)
        mu.Unlock()
    }
    defer count(func(t *TickSummary) { t.Processed++ })

    campaign, err := s.CampaignRepo.GetByID(e.CampaignID)
    if err != nil {
        // Orphaned enrollment; back off instead of spinning on every tick.
        log.Println("⚠️ tick: campaign lookup failed for enrollment", e.ID, ":", err)
        e.LastError = err.Error()
        due := now.Add(s.retryBackoff())
        e.NextDueAt = &due
        s.release(e, owner, count)
        count(func(t *TickSummary) { t.Errors++ })
        return
    }

    // Stop conditions first: a stopped enrollment sends nothing.
    for _, name := range campaign.StopConditions {
        hit, err := EvaluateCondition(name, e)
        if err != nil {
            log.Println("⚠️ tick:", err, "in stop conditions of campaign", campaign.ID)
            count(func(t *TickSummary) { t.Errors++ })
            continue // fail closed: an unknown name never cancels
        }
        if hit {
            e.Status = model.StatusCancelled
            e.CancelReason = name
            e.NextDueAt = nil
            s.release(e, owner, count)
            count(func(t *TickSummary) { t.Cancelled++ })
            return
        }
    }

    next := e.CurrentStep + 1
    if next >= len(campaign.Steps) {
        e.Status = model.StatusCompleted
        e.NextDueAt = nil
        s.release(e, owner, count)
        count(func(t *TickSummary) { t.Completed++ })
        return
    }

    step := &campaign.Steps[next]
    satisfied, err := EvaluateCondition(step.Condition, e)
    if err != nil {
        // Fail closed: treat as not satisfied, skip the action.
        log.Println("⚠️ tick:", err, "on step", next, "of campaign", campaign.ID)
        count(func(t *TickSummary) { t.Errors++ })
        satisfied = false
    }

    if !satisfied {
        // Skipped: no dispatch, but the step counts as executed.
        count(func(t *TickSummary) { t.Skipped++ })
        s.advance(e, campaign, next, now, count)
        s.release(e, owner, count)
        return
    }

    _, err = s.Dispatcher.Dispatch(next, step, e)
    if err != nil {
        if appErrors.IsTransientDelivery(err) && e.RetryCount+1 < s.maxRetries() {
            // Leave the cursor; retry on a later tick.
            e.RetryCount++
            e.LastError = err.Error()
            due := now.Add(s.retryBackoff())
            e.NextDueAt = &due
            s.release(e, owner, count)
            count(func(t *TickSummary) { t.Retried++; t.Errors++ })
            return
        }
        // Permanent, or transient retries exhausted: record and move on so
        // one bad step cannot stall the sequence forever.
        log.Println("⚠️ tick: delivery failed permanently for enrollment", e.ID, "step", next, ":", err)
        e.LastError = err.Error()
        count(func(t *TickSummary) { t.Errors++ })
        s.advance(e, campaign, next, now, count)
        s.release(e, owner, count)
        return
    }

    count(func(t *TickSummary) { t.Dispatched++ })
    e.LastError = ""
    s.advance(e, campaign, next, now, count)
    s.release(e, owner, count)
}

// advance marks step executedIdx as done and computes the next due time, or
// completes the enrollment when it was the last step.
func (s *EnrollmentScheduler) advance(e *model.Enrollment, campaign *model.Campaign, executedIdx int, now time.Time, count func(func(*TickSummary))) {
    e.CurrentStep = executedIdx
    e.RetryCount = 0
    if executedIdx+1 < len(campaign.Steps) {
        due := now.Add(campaign.Steps[executedIdx+1].Delay())
        e.NextDueAt = &due
        return
    }
    e.Status = model.StatusCompleted
    e.NextDueAt = nil
    count(func(t *TickSummary) { t.Completed++ })
}

func (s *EnrollmentScheduler) release(e *model.Enrollment, owner string, count func(func(*TickSummary))) {
    ok, err := s.EnrollmentRepo.Release(e, owner)
    if err != nil {
        log.Println("⚠️ tick: release failed for enrollment", e.ID, ":", err)
        count(func(t *TickSummary) { t.Errors++ })
        return
    }
    if !ok {
        // Lease expired and another owner stole the claim; it owns the row now.
        log.Println("⚠️ tick: lost claim on enrollment", e.ID, "before release")
        count(func(t *TickSummary) { t.Errors++ })
    }
}
