// internal/model/enrollment.go
package model

import "time"

// Enrollment statuses
const (
    StatusActive    = "active"
    StatusCompleted = "completed"
    StatusCancelled = "cancelled"
)

// Enrollment is one candidate's run through one campaign. Contact fields are
// a snapshot captured at enrollment time; later edits to the candidate record
// do not affect an in-flight run.
type Enrollment struct {
    ID             string            `db:"id" json:"id"`
    CampaignID     string            `db:"campaign_id" json:"campaign_id"`
    CandidateID    string            `db:"candidate_id" json:"candidate_id"`
    CandidateName  string            `db:"candidate_name" json:"candidate_name"`
    CandidateEmail string            `db:"candidate_email" json:"candidate_email"`
    CandidatePhone string            `db:"candidate_phone" json:"candidate_phone,omitempty"`
    Variables      map[string]string `db:"variables" json:"variables,omitempty"`
    CurrentStep    int               `db:"current_step" json:"current_step"` // -1 before first step executes
    Status         string            `db:"status" json:"status"`
    Responded      bool              `db:"responded" json:"responded"`
    CancelReason   string            `db:"cancel_reason" json:"cancel_reason,omitempty"`
    RetryCount     int               `db:"retry_count" json:"retry_count"`
    LastError      string            `db:"last_error" json:"last_error,omitempty"`
    EnrolledAt     time.Time         `db:"enrolled_at" json:"enrolled_at"`
    NextDueAt      *time.Time        `db:"next_due_at" json:"next_due_at,omitempty"`
    ClaimedBy      string            `db:"claimed_by" json:"-"`
    ClaimExpiresAt *time.Time        `db:"claim_expires_at" json:"-"`
    Version        int               `db:"version" json:"-"`
    UpdatedAt      time.Time         `db:"updated_at" json:"updated_at"`
}

func (e *Enrollment) Terminal() bool {
    return e.Status == StatusCompleted || e.Status == StatusCancelled
}

// TemplateVars merges the contact snapshot with the per-enrollment variables.
// Snapshot fields win so a stray variable cannot spoof the recipient name.
func (e *Enrollment) TemplateVars() map[string]string {
    vars := make(map[string]string, len(e.Variables)+3)
    for k, v := range e.Variables {
        vars[k] = v
    }
    vars["candidate_name"] = e.CandidateName
    vars["candidate_email"] = e.CandidateEmail
    vars["candidate_phone"] = e.CandidatePhone
    return vars
}
