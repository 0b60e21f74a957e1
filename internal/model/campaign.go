// internal/model/campaign.go
package model

import (
    "fmt"
    "time"
)

// Campaign triggers
const (
    TriggerManual          = "manual"
    TriggerNewApplication  = "new_application"
    TriggerInterviewNoShow = "interview_no_show"
    TriggerOfferSent       = "offer_sent"
    TriggerRejectionSent   = "rejection_sent"
)

// Step types
const (
    StepTypeEmail = "email"
    StepTypeSMS   = "sms"
    StepTypeTask  = "task"
)

// Step / stop condition names
const (
    ConditionNone       = "none"
    ConditionNoResponse = "no_response"
    ConditionHasPhone   = "has_phone"
    ConditionHasEmail   = "has_email"
    ConditionResponded  = "responded"
)

type Campaign struct {
    ID             string         `db:"id" json:"id"`
    Name           string         `db:"name" json:"name"`
    Description    string         `db:"description" json:"description"`
    Trigger        string         `db:"trigger" json:"trigger"`
    Steps          []CampaignStep `db:"steps" json:"steps"`
    StopConditions []string       `db:"stop_conditions" json:"stop_conditions"`
    IsCustom       bool           `db:"is_custom" json:"is_custom"`
    CreatedAt      time.Time      `db:"created_at" json:"created_at"`
    UpdatedAt      *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}

// CampaignStep is one scheduled action in a campaign. Delay is relative to
// the previous step's execution (or to enrollment time for the first step).
type CampaignStep struct {
    DelayDays  int    `json:"delay_days"`
    DelayHours int    `json:"delay_hours"`
    Type       string `json:"type"`
    Template   string `json:"template,omitempty"` // email template id
    Subject    string `json:"subject,omitempty"`  // optional email subject override
    Message    string `json:"message,omitempty"`  // literal body for sms/task
    Condition  string `json:"condition,omitempty"`
}

func (s *CampaignStep) Delay() time.Duration {
    return time.Duration(s.DelayDays)*24*time.Hour + time.Duration(s.DelayHours)*time.Hour
}

func (s *CampaignStep) Validate() error {
    if s.DelayDays < 0 || s.DelayHours < 0 {
        return fmt.Errorf("step delay must not be negative")
    }
    switch s.Type {
    case StepTypeEmail:
        if s.Template == "" {
            return fmt.Errorf("email step requires a template id")
        }
    case StepTypeSMS, StepTypeTask:
        if s.Message == "" {
            return fmt.Errorf("%s step requires a message", s.Type)
        }
    default:
        return fmt.Errorf("unknown step type: %q", s.Type)
    }
    return nil
}

func (c *Campaign) Validate() error {
    if c.ID == "" {
        return fmt.Errorf("campaign id is required")
    }
    if c.Name == "" {
        return fmt.Errorf("campaign name is required")
    }
    switch c.Trigger {
    case TriggerManual, TriggerNewApplication, TriggerInterviewNoShow, TriggerOfferSent, TriggerRejectionSent:
    default:
        return fmt.Errorf("unknown trigger: %q", c.Trigger)
    }
    for i := range c.Steps {
        if err := c.Steps[i].Validate(); err != nil {
            return fmt.Errorf("step %d: %w", i, err)
        }
    }
    return nil
}
