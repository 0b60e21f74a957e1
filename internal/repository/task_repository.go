package repository

import (
    "database/sql"
    "time"

    "github.com/hirestream/outreach-backend/internal/model"
)

type TaskRepositoryInterface interface {
    Create(t *model.Task) error
    ListByCandidate(candidateID string) ([]*model.Task, error)
}

type TaskRepository struct {
    DB *sql.DB
}

func (r *TaskRepository) Create(t *model.Task) error {
    t.CreatedAt = time.Now()
    _, err := r.DB.Exec(
        `INSERT INTO tasks (id, enrollment_id, campaign_id, candidate_id, description, created_at)
         VALUES ($1, $2, $3, $4, $5, $6)`,
        t.ID, t.EnrollmentID, t.CampaignID, t.CandidateID, t.Description, t.CreatedAt,
    )
    return err
}

func (r *TaskRepository) ListByCandidate(candidateID string) ([]*model.Task, error) {
    rows, err := r.DB.Query(
        `SELECT id, enrollment_id, campaign_id, candidate_id, description, created_at
         FROM tasks WHERE candidate_id=$1 ORDER BY created_at`,
        candidateID,
    )
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    tasks := []*model.Task{}
    for rows.Next() {
        t := &model.Task{}
        if err := rows.Scan(&t.ID, &t.EnrollmentID, &t.CampaignID, &t.CandidateID, &t.Description, &t.CreatedAt); err != nil {
            return nil, err
        }
        tasks = append(tasks, t)
    }
    return tasks, rows.Err()
}

var _ TaskRepositoryInterface = (*TaskRepository)(nil)
