// internal/model/stats.go
package model

// CampaignStats is a derived projection over enrollments; it is computed on
// demand and never stored.
type CampaignStats struct {
    CampaignID string `json:"campaign_id"`
    Active     int    `json:"active"`
    Completed  int    `json:"completed"`
    Cancelled  int    `json:"cancelled"`
    Responded  int    `json:"responded"`
    Total      int    `json:"total"`
}
