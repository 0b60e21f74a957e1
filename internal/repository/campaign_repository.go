package repository

import (
    "database/sql"
    "encoding/json"
    "time"

    "github.com/lib/pq"

    appErrors "github.com/hirestream/outreach-backend/internal/errors"
    "github.com/hirestream/outreach-backend/internal/model"
)

type CampaignRepositoryInterface interface {
    Create(c *model.Campaign) error
    GetByID(id string) (*model.Campaign, error)
    List() ([]*model.Campaign, error)
    Update(c *model.Campaign) error
    Delete(id string) error
}

type CampaignRepository struct {
    DB *sql.DB
}

func (r *CampaignRepository) Create(c *model.Campaign) error {
    c.CreatedAt = time.Now()
    steps, err := json.Marshal(c.Steps)
    if err != nil {
        return err
    }
    query := `
        INSERT INTO campaigns (id, name, description, trigger, steps, stop_conditions, is_custom, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
    _, err = r.DB.Exec(query, c.ID, c.Name, c.Description, c.Trigger, steps, pq.Array(c.StopConditions), c.IsCustom, c.CreatedAt)
    return err
}

// Update replaces the whole definition, steps included. There is no in-place
// step editing once enrollments exist.
func (r *CampaignRepository) Update(c *model.Campaign) error {
    steps, err := json.Marshal(c.Steps)
    if err != nil {
        return err
    }
    query := `
        UPDATE campaigns
        SET name=$1, description=$2, trigger=$3, steps=$4, stop_conditions=$5, updated_at=NOW()
        WHERE id=$6
    `
    _, err = r.DB.Exec(query, c.Name, c.Description, c.Trigger, steps, pq.Array(c.StopConditions), c.ID)
    return err
}

func (r *CampaignRepository) GetByID(id string) (*model.Campaign, error) {
    query := `
        SELECT id, name, description, trigger, steps, stop_conditions, is_custom, created_at, updated_at
        FROM campaigns WHERE id=$1
    `
    var c model.Campaign
    var steps []byte
    err := r.DB.QueryRow(query, id).Scan(
        &c.ID, &c.Name, &c.Description, &c.Trigger, &steps,
        pq.Array(&c.StopConditions), &c.IsCustom, &c.CreatedAt, &c.UpdatedAt,
    )
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, appErrors.NewCampaignNotFound(id)
        }
        return nil, err
    }
    if err := json.Unmarshal(steps, &c.Steps); err != nil {
        return nil, err
    }
    return &c, nil
}

func (r *CampaignRepository) List() ([]*model.Campaign, error) {
    query := `
        SELECT id, name, description, trigger, steps, stop_conditions, is_custom, created_at, updated_at
        FROM campaigns ORDER BY created_at
    `
    rows, err := r.DB.Query(query)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    campaigns := []*model.Campaign{}
    for rows.Next() {
        c := &model.Campaign{}
        var steps []byte
        if err := rows.Scan(
            &c.ID, &c.Name, &c.Description, &c.Trigger, &steps,
            pq.Array(&c.StopConditions), &c.IsCustom, &c.CreatedAt, &c.UpdatedAt,
        ); err != nil {
            return nil, err
        }
        if err := json.Unmarshal(steps, &c.Steps); err != nil {
            return nil, err
        }
        campaigns = append(campaigns, c)
    }
    return campaigns, rows.Err()
}

// Delete removes a custom campaign. Built-in campaigns are protected.
func (r *CampaignRepository) Delete(id string) error {
    existing, err := r.GetByID(id)
    if err != nil {
        return err
    }
    if !existing.IsCustom {
        return appErrors.NewBuiltinCampaign(id)
    }
    _, err = r.DB.Exec(`DELETE FROM campaigns WHERE id=$1`, id)
    return err
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
