// internal/service/template_service.go
package service

import (
    "strings"
    "sync"

    appErrors "github.com/hirestream/outreach-backend/internal/errors"
)

func RenderTemplate(template string, data map[string]string) string {
    result := template
    for k, v := range data {
        if v == "" {
            v = "<unknown>"
        }
        result = strings.ReplaceAll(result, "{"+k+"}", v)
    }
    return result
}

// TemplateRenderer resolves an email template id into a subject and body.
type TemplateRenderer interface {
    Render(templateID string, vars map[string]string) (subject, body string, err error)
}

type emailTemplate struct {
    Subject string
    Body    string
}

// InMemoryTemplateStore holds the email templates the engine can render.
type InMemoryTemplateStore struct {
    mu        sync.RWMutex
    templates map[string]emailTemplate
}

func NewInMemoryTemplateStore() *InMemoryTemplateStore {
    return &InMemoryTemplateStore{templates: make(map[string]emailTemplate)}
}

func (s *InMemoryTemplateStore) Register(id, subject, body string) {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.templates[id] = emailTemplate{Subject: subject, Body: body}
}

// Render fails permanently on an unknown template id: retrying cannot fix a
// bad campaign definition.
func (s *InMemoryTemplateStore) Render(templateID string, vars map[string]string) (string, string, error) {
    s.mu.RLock()
    tpl, ok := s.templates[templateID]
    s.mu.RUnlock()
    if !ok {
        return "", "", appErrors.NewPermanentDelivery("unknown template %q", templateID)
    }
    return RenderTemplate(tpl.Subject, vars), RenderTemplate(tpl.Body, vars), nil
}

// DefaultTemplateStore returns a store seeded with the built-in outreach
// templates used by the seeded campaigns.
func DefaultTemplateStore() *InMemoryTemplateStore {
    s := NewInMemoryTemplateStore()
    s.Register("application-received",
        "Thanks for applying, {candidate_name}",
        "Hi {candidate_name}, we received your application and will be in touch shortly.")
    s.Register("application-followup",
        "Checking in on your application",
        "Hi {candidate_name}, just checking in — we'd still love to talk. Reply any time.")
    s.Register("interview-reschedule",
        "Shall we find a new time?",
        "Hi {candidate_name}, sorry we missed each other. Pick a new slot whenever suits you.")
    s.Register("offer-reminder",
        "Your offer is waiting",
        "Hi {candidate_name}, a reminder that your offer is still open. Let us know if you have questions.")
    s.Register("rejection-nurture",
        "Keeping in touch",
        "Hi {candidate_name}, thanks again for your interest. We'll reach out when a matching role opens up.")
    return s
}

var _ TemplateRenderer = (*InMemoryTemplateStore)(nil)
