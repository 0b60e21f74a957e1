// internal/model/task.go
package model

import "time"

// Task is the to-do recorded by a task step; a human picks it up outside the
// engine.
type Task struct {
    ID           string    `db:"id" json:"id"`
    EnrollmentID string    `db:"enrollment_id" json:"enrollment_id"`
    CampaignID   string    `db:"campaign_id" json:"campaign_id"`
    CandidateID  string    `db:"candidate_id" json:"candidate_id"`
    Description  string    `db:"description" json:"description"`
    CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
