package repository_test

import (
    "sync"
    "testing"
    "time"

    "github.com/hirestream/outreach-backend/internal/model"
    "github.com/hirestream/outreach-backend/internal/repository"
)

func activeEnrollment(id string, due time.Time) *model.Enrollment {
    return &model.Enrollment{
        ID:          id,
        CampaignID:  "followup",
        CandidateID: "cand-" + id,
        CurrentStep: -1,
        Status:      model.StatusActive,
        EnrolledAt:  due,
        NextDueAt:   &due,
    }
}

func TestClaimIsExclusive(t *testing.T) {
    repo := repository.NewInMemoryEnrollmentRepository()
    now := time.Now()
    repo.Create(activeEnrollment("e1", now))

    lease := now.Add(2 * time.Minute)
    ok, err := repo.Claim("e1", 0, "owner-a", lease, now)
    if err != nil || !ok {
        t.Fatalf("first claim: ok=%v err=%v", ok, err)
    }

    ok, err = repo.Claim("e1", 0, "owner-b", lease, now)
    if err != nil {
        t.Fatalf("second claim: %v", err)
    }
    if ok {
        t.Fatalf("second claim must fail while the lease is held")
    }
}

func TestClaimConcurrentOnlyOneWins(t *testing.T) {
    repo := repository.NewInMemoryEnrollmentRepository()
    now := time.Now()
    repo.Create(activeEnrollment("e1", now))

    const claimers = 8
    var wg sync.WaitGroup
    var mu sync.Mutex
    wins := 0
    for i := 0; i < claimers; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            ok, err := repo.Claim("e1", 0, "owner", now.Add(time.Minute), now)
            if err != nil {
                t.Errorf("claim: %v", err)
                return
            }
            if ok {
                mu.Lock()
                wins++
                mu.Unlock()
            }
        }()
    }
    wg.Wait()

    if wins != 1 {
        t.Fatalf("expected exactly one winning claim, got %d", wins)
    }
}

func TestExpiredLeaseIsClaimable(t *testing.T) {
    repo := repository.NewInMemoryEnrollmentRepository()
    now := time.Now()
    repo.Create(activeEnrollment("e1", now))

    ok, _ := repo.Claim("e1", 0, "owner-a", now.Add(-time.Second), now.Add(-time.Minute))
    if !ok {
        t.Fatalf("setup claim failed")
    }

    ok, err := repo.Claim("e1", 0, "owner-b", now.Add(time.Minute), now)
    if err != nil || !ok {
        t.Fatalf("expired lease should be stealable: ok=%v err=%v", ok, err)
    }
}

func TestReleaseRequiresOwnership(t *testing.T) {
    repo := repository.NewInMemoryEnrollmentRepository()
    now := time.Now()
    repo.Create(activeEnrollment("e1", now))

    if ok, _ := repo.Claim("e1", 0, "owner-a", now.Add(time.Minute), now); !ok {
        t.Fatalf("setup claim failed")
    }

    e, _ := repo.GetByID("e1")
    e.CurrentStep = 0
    ok, err := repo.Release(e, "owner-b")
    if err != nil {
        t.Fatalf("release: %v", err)
    }
    if ok {
        t.Fatalf("release by a non-owner must fail")
    }

    ok, err = repo.Release(e, "owner-a")
    if err != nil || !ok {
        t.Fatalf("owner release: ok=%v err=%v", ok, err)
    }

    stored, _ := repo.GetByID("e1")
    if stored.CurrentStep != 0 || stored.ClaimedBy != "" || stored.Version != 1 {
        t.Errorf("release did not persist/clear as expected: %+v", stored)
    }
}

func TestUpdateVersionConflict(t *testing.T) {
    repo := repository.NewInMemoryEnrollmentRepository()
    now := time.Now()
    repo.Create(activeEnrollment("e1", now))

    a, _ := repo.GetByID("e1")
    b, _ := repo.GetByID("e1")

    a.Responded = true
    if ok, _ := repo.Update(a); !ok {
        t.Fatalf("first update should win")
    }

    b.Status = model.StatusCancelled
    b.NextDueAt = nil
    ok, _ := repo.Update(b)
    if ok {
        t.Fatalf("stale update must lose the compare-and-set")
    }

    stored, _ := repo.GetByID("e1")
    if !stored.Responded || stored.Status != model.StatusActive {
        t.Errorf("losing write leaked through: %+v", stored)
    }
}

// A cancellation landing while the claim is held survives the release, and
// the release still commits the cursor advance.
func TestReleaseKeepsConcurrentCancellation(t *testing.T) {
    repo := repository.NewInMemoryEnrollmentRepository()
    now := time.Now()
    repo.Create(activeEnrollment("e1", now))

    claimedView, _ := repo.GetByID("e1")
    if ok, _ := repo.Claim("e1", claimedView.Version, "tick", now.Add(time.Minute), now); !ok {
        t.Fatalf("setup claim failed")
    }

    userView, _ := repo.GetByID("e1")
    userView.Status = model.StatusCancelled
    userView.CancelReason = "unenrolled"
    userView.NextDueAt = nil
    if ok, _ := repo.Update(userView); !ok {
        t.Fatalf("user update should succeed")
    }

    claimedView.CurrentStep = 0
    next := now.Add(24 * time.Hour)
    claimedView.NextDueAt = &next
    ok, err := repo.Release(claimedView, "tick")
    if err != nil || !ok {
        t.Fatalf("release by the claim owner must succeed: ok=%v err=%v", ok, err)
    }

    stored, _ := repo.GetByID("e1")
    if stored.Status != model.StatusCancelled || stored.CancelReason != "unenrolled" {
        t.Errorf("cancellation was lost: %+v", stored)
    }
    if stored.NextDueAt != nil {
        t.Errorf("cancelled enrollment must not stay scheduled: %+v", stored)
    }
    if stored.CurrentStep != 0 {
        t.Errorf("cursor advance was discarded: %+v", stored)
    }
    if stored.ClaimedBy != "" {
        t.Errorf("claim not cleared: %+v", stored)
    }
}

// A response recorded while the claim is held is merged into the release
// instead of blocking it.
func TestReleaseMergesConcurrentResponded(t *testing.T) {
    repo := repository.NewInMemoryEnrollmentRepository()
    now := time.Now()
    repo.Create(activeEnrollment("e1", now))

    claimedView, _ := repo.GetByID("e1")
    if ok, _ := repo.Claim("e1", claimedView.Version, "tick", now.Add(time.Minute), now); !ok {
        t.Fatalf("setup claim failed")
    }

    userView, _ := repo.GetByID("e1")
    userView.Responded = true
    if ok, _ := repo.Update(userView); !ok {
        t.Fatalf("user update should succeed")
    }

    claimedView.CurrentStep = 0
    next := now.Add(24 * time.Hour)
    claimedView.NextDueAt = &next
    ok, err := repo.Release(claimedView, "tick")
    if err != nil || !ok {
        t.Fatalf("release by the claim owner must succeed: ok=%v err=%v", ok, err)
    }

    stored, _ := repo.GetByID("e1")
    if !stored.Responded {
        t.Errorf("responded flag was lost: %+v", stored)
    }
    if stored.CurrentStep != 0 || stored.NextDueAt == nil {
        t.Errorf("release state was discarded: %+v", stored)
    }
}

func TestListDueSkipsClaimedAndTerminal(t *testing.T) {
    repo := repository.NewInMemoryEnrollmentRepository()
    now := time.Now()

    repo.Create(activeEnrollment("due", now.Add(-time.Minute)))
    repo.Create(activeEnrollment("future", now.Add(time.Hour)))

    done := activeEnrollment("done", now.Add(-time.Minute))
    done.Status = model.StatusCompleted
    done.NextDueAt = nil
    repo.Create(done)

    held := activeEnrollment("held", now.Add(-time.Minute))
    repo.Create(held)
    repo.Claim("held", 0, "owner", now.Add(time.Minute), now)

    due, err := repo.ListDue(now, 10)
    if err != nil {
        t.Fatalf("list due: %v", err)
    }
    if len(due) != 1 || due[0].ID != "due" {
        t.Fatalf("expected only the unclaimed due enrollment, got %+v", due)
    }
}

func TestStatsCounts(t *testing.T) {
    repo := repository.NewInMemoryEnrollmentRepository()
    now := time.Now()

    repo.Create(activeEnrollment("a", now))

    completed := activeEnrollment("b", now)
    completed.Status = model.StatusCompleted
    completed.NextDueAt = nil
    completed.Responded = true
    repo.Create(completed)

    cancelled := activeEnrollment("c", now)
    cancelled.Status = model.StatusCancelled
    cancelled.NextDueAt = nil
    repo.Create(cancelled)

    stats, err := repo.Stats("followup")
    if err != nil {
        t.Fatalf("stats: %v", err)
    }
    if stats.Active != 1 || stats.Completed != 1 || stats.Cancelled != 1 || stats.Responded != 1 || stats.Total != 3 {
        t.Errorf("unexpected stats: %+v", stats)
    }
}
