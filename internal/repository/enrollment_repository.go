package repository

import (
    "database/sql"
    "encoding/json"
    "time"

    appErrors "github.com/hirestream/outreach-backend/internal/errors"
    "github.com/hirestream/outreach-backend/internal/model"
)

type EnrollmentRepositoryInterface interface {
    Create(e *model.Enrollment) error
    GetByID(id string) (*model.Enrollment, error)
    FindActive(campaignID, candidateID string) (*model.Enrollment, error)
    ListByCandidate(candidateID string) ([]*model.Enrollment, error)
    ListActive(candidateID, campaignID string) ([]*model.Enrollment, error)
    ListDue(now time.Time, limit int) ([]*model.Enrollment, error)
    Claim(id string, version int, owner string, leaseUntil time.Time, now time.Time) (bool, error)
    Release(e *model.Enrollment, owner string) (bool, error)
    Update(e *model.Enrollment) (bool, error)
    Stats(campaignID string) (*model.CampaignStats, error)
    AllStats() ([]*model.CampaignStats, error)
}

type EnrollmentRepository struct {
    DB *sql.DB
}

const enrollmentColumns = `id, campaign_id, candidate_id, candidate_name, candidate_email, candidate_phone,
    variables, current_step, status, responded, cancel_reason, retry_count, last_error,
    enrolled_at, next_due_at, claimed_by, claim_expires_at, version, updated_at`

func scanEnrollment(row interface{ Scan(...any) error }) (*model.Enrollment, error) {
    var e model.Enrollment
    var vars []byte
    err := row.Scan(
        &e.ID, &e.CampaignID, &e.CandidateID, &e.CandidateName, &e.CandidateEmail, &e.CandidatePhone,
        &vars, &e.CurrentStep, &e.Status, &e.Responded, &e.CancelReason, &e.RetryCount, &e.LastError,
        &e.EnrolledAt, &e.NextDueAt, &e.ClaimedBy, &e.ClaimExpiresAt, &e.Version, &e.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    if len(vars) > 0 {
        if err := json.Unmarshal(vars, &e.Variables); err != nil {
            return nil, err
        }
    }
    return &e, nil
}

func (r *EnrollmentRepository) Create(e *model.Enrollment) error {
    vars, err := json.Marshal(e.Variables)
    if err != nil {
        return err
    }
    query := `
        INSERT INTO enrollments (` + enrollmentColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
    `
    _, err = r.DB.Exec(query,
        e.ID, e.CampaignID, e.CandidateID, e.CandidateName, e.CandidateEmail, e.CandidatePhone,
        vars, e.CurrentStep, e.Status, e.Responded, e.CancelReason, e.RetryCount, e.LastError,
        e.EnrolledAt, e.NextDueAt, e.ClaimedBy, e.ClaimExpiresAt, e.Version, e.UpdatedAt,
    )
    return err
}

func (r *EnrollmentRepository) GetByID(id string) (*model.Enrollment, error) {
    query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id=$1`
    e, err := scanEnrollment(r.DB.QueryRow(query, id))
    if err == sql.ErrNoRows {
        return nil, appErrors.NewEnrollmentNotFound(id)
    }
    return e, err
}

// FindActive returns the active enrollment for the pair, or nil.
func (r *EnrollmentRepository) FindActive(campaignID, candidateID string) (*model.Enrollment, error) {
    query := `SELECT ` + enrollmentColumns + ` FROM enrollments
              WHERE campaign_id=$1 AND candidate_id=$2 AND status=$3`
    e, err := scanEnrollment(r.DB.QueryRow(query, campaignID, candidateID, model.StatusActive))
    if err == sql.ErrNoRows {
        return nil, nil
    }
    return e, err
}

func (r *EnrollmentRepository) queryMany(query string, args ...any) ([]*model.Enrollment, error) {
    rows, err := r.DB.Query(query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    enrollments := []*model.Enrollment{}
    for rows.Next() {
        e, err := scanEnrollment(rows)
        if err != nil {
            return nil, err
        }
        enrollments = append(enrollments, e)
    }
    return enrollments, rows.Err()
}

func (r *EnrollmentRepository) ListByCandidate(candidateID string) ([]*model.Enrollment, error) {
    return r.queryMany(
        `SELECT `+enrollmentColumns+` FROM enrollments WHERE candidate_id=$1 ORDER BY enrolled_at`,
        candidateID,
    )
}

// ListActive returns active enrollments for a candidate, optionally narrowed
// to one campaign.
func (r *EnrollmentRepository) ListActive(candidateID, campaignID string) ([]*model.Enrollment, error) {
    if campaignID != "" {
        return r.queryMany(
            `SELECT `+enrollmentColumns+` FROM enrollments
             WHERE candidate_id=$1 AND campaign_id=$2 AND status=$3`,
            candidateID, campaignID, model.StatusActive,
        )
    }
    return r.queryMany(
        `SELECT `+enrollmentColumns+` FROM enrollments WHERE candidate_id=$1 AND status=$2`,
        candidateID, model.StatusActive,
    )
}

// ListDue returns active enrollments whose next step is due and whose claim
// is free or lease-expired.
func (r *EnrollmentRepository) ListDue(now time.Time, limit int) ([]*model.Enrollment, error) {
    return r.queryMany(
        `SELECT `+enrollmentColumns+` FROM enrollments
         WHERE status=$1 AND next_due_at <= $2
           AND (claimed_by='' OR claim_expires_at <= $2)
         ORDER BY next_due_at LIMIT $3`,
        model.StatusActive, now, limit,
    )
}

// Claim takes the per-enrollment lease via compare-and-set on the version.
// A lease that expired is stealable.
func (r *EnrollmentRepository) Claim(id string, version int, owner string, leaseUntil time.Time, now time.Time) (bool, error) {
    res, err := r.DB.Exec(
        `UPDATE enrollments SET claimed_by=$1, claim_expires_at=$2
         WHERE id=$3 AND version=$4 AND (claimed_by='' OR claim_expires_at <= $5)`,
        owner, leaseUntil, id, version, now,
    )
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    return n == 1, err
}

// Release persists the processed state and frees the claim in one write,
// guarded by ownership alone. Fields other writers may set while the claim
// is held (responded, a cancellation from Unenroll) are merged from the
// stored row instead of overwritten: once a dispatch has gone out, the
// cursor advance must commit, or a later tick would send the step again.
func (r *EnrollmentRepository) Release(e *model.Enrollment, owner string) (bool, error) {
    err := r.DB.QueryRow(
        `UPDATE enrollments
         SET current_step=$1,
             status=CASE WHEN status=$2 THEN status ELSE $3 END,
             responded=(responded OR $4),
             cancel_reason=CASE WHEN status=$2 THEN cancel_reason ELSE $5 END,
             retry_count=$6,
             last_error=$7,
             next_due_at=CASE WHEN status=$2 THEN NULL ELSE $8 END,
             claimed_by='', claim_expires_at=NULL,
             version=version+1, updated_at=NOW()
         WHERE id=$9 AND claimed_by=$10
         RETURNING version`,
        e.CurrentStep, model.StatusCancelled, e.Status, e.Responded, e.CancelReason,
        e.RetryCount, e.LastError, e.NextDueAt, e.ID, owner,
    ).Scan(&e.Version)
    if err == sql.ErrNoRows {
        // Claim stolen after the lease expired; the stealer owns the row.
        return false, nil
    }
    if err != nil {
        return false, err
    }
    e.ClaimedBy = ""
    e.ClaimExpiresAt = nil
    return true, nil
}

// Update is the compare-and-set write used outside a claim (MarkResponded,
// Unenroll). Claim fields are left untouched.
func (r *EnrollmentRepository) Update(e *model.Enrollment) (bool, error) {
    res, err := r.DB.Exec(
        `UPDATE enrollments
         SET current_step=$1, status=$2, responded=$3, cancel_reason=$4, retry_count=$5,
             last_error=$6, next_due_at=$7, version=version+1, updated_at=NOW()
         WHERE id=$8 AND version=$9`,
        e.CurrentStep, e.Status, e.Responded, e.CancelReason, e.RetryCount,
        e.LastError, e.NextDueAt, e.ID, e.Version,
    )
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if n == 1 {
        e.Version++
    }
    return n == 1, err
}

func (r *EnrollmentRepository) Stats(campaignID string) (*model.CampaignStats, error) {
    rows, err := r.DB.Query(
        `SELECT status, responded, COUNT(*) FROM enrollments
         WHERE campaign_id=$1 GROUP BY status, responded`,
        campaignID,
    )
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    stats := &model.CampaignStats{CampaignID: campaignID}
    for rows.Next() {
        var status string
        var responded bool
        var count int
        if err := rows.Scan(&status, &responded, &count); err != nil {
            return nil, err
        }
        addStatus(stats, status, responded, count)
    }
    return stats, rows.Err()
}

func (r *EnrollmentRepository) AllStats() ([]*model.CampaignStats, error) {
    rows, err := r.DB.Query(
        `SELECT campaign_id, status, responded, COUNT(*) FROM enrollments
         GROUP BY campaign_id, status, responded ORDER BY campaign_id`,
    )
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    byCampaign := map[string]*model.CampaignStats{}
    order := []string{}
    for rows.Next() {
        var campaignID, status string
        var responded bool
        var count int
        if err := rows.Scan(&campaignID, &status, &responded, &count); err != nil {
            return nil, err
        }
        stats, ok := byCampaign[campaignID]
        if !ok {
            stats = &model.CampaignStats{CampaignID: campaignID}
            byCampaign[campaignID] = stats
            order = append(order, campaignID)
        }
        addStatus(stats, status, responded, count)
    }

    all := make([]*model.CampaignStats, 0, len(order))
    for _, id := range order {
        all = append(all, byCampaign[id])
    }
    return all, rows.Err()
}

func addStatus(stats *model.CampaignStats, status string, responded bool, count int) {
    switch status {
    case model.StatusActive:
        stats.Active += count
    case model.StatusCompleted:
        stats.Completed += count
    case model.StatusCancelled:
        stats.Cancelled += count
    }
    if responded {
        stats.Responded += count
    }
    stats.Total += count
}

var _ EnrollmentRepositoryInterface = (*EnrollmentRepository)(nil)
