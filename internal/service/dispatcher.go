// internal/service/dispatcher.go
package service

import (
    "errors"
    "time"

    "github.com/google/uuid"

    appErrors "github.com/hirestream/outreach-backend/internal/errors"
    "github.com/hirestream/outreach-backend/internal/model"
    "github.com/hirestream/outreach-backend/internal/queue"
    "github.com/hirestream/outreach-backend/internal/repository"
)

// Sender hands a rendered email/sms payload to the delivery gateway. Sends
// are fire-and-forget once accepted; an error from Send means the hand-off
// itself failed.
type Sender interface {
    Send(job queue.SendJob) error
}

// QueueSender publishes the rendered payload to the send queue; cmd/worker
// performs the provider call.
type QueueSender struct {
    Queue queue.Queue
}

func (s *QueueSender) Send(job queue.SendJob) error {
    return s.Queue.Publish(queue.SendQueueName, job)
}

type DeliveryReceipt struct {
    EnrollmentID string    `json:"enrollment_id"`
    StepIndex    int       `json:"step_index"`
    Channel      string    `json:"channel"`
    Recipient    string    `json:"recipient"`
    SentAt       time.Time `json:"sent_at"`
}

// DeliveryDispatcher performs the side-effecting action for one step. The
// scheduler owns the at-most-once guarantee; the dispatcher only classifies
// failures as transient or permanent.
type DeliveryDispatcher interface {
    Dispatch(stepIndex int, step *model.CampaignStep, e *model.Enrollment) (*DeliveryReceipt, error)
}

type Dispatcher struct {
    Renderer TemplateRenderer
    Sender   Sender
    TaskRepo repository.TaskRepositoryInterface
    Timeout  time.Duration
}

func (d *Dispatcher) Dispatch(stepIndex int, step *model.CampaignStep, e *model.Enrollment) (*DeliveryReceipt, error) {
    vars := e.TemplateVars()

    switch step.Type {
    case model.StepTypeEmail:
        if e.CandidateEmail == "" {
            return nil, appErrors.NewPermanentDelivery("enrollment %s has no email address", e.ID)
        }
        subject, body, err := d.Renderer.Render(step.Template, vars)
        if err != nil {
            return nil, err
        }
        if step.Subject != "" {
            subject = RenderTemplate(step.Subject, vars)
        }
        job := queue.SendJob{
            EnrollmentID: e.ID,
            StepIndex:    stepIndex,
            Channel:      "email",
            Recipient:    e.CandidateEmail,
            Subject:      subject,
            Body:         body,
        }
        if err := d.send(job); err != nil {
            return nil, err
        }
        return d.receipt(e, stepIndex, "email", e.CandidateEmail), nil

    case model.StepTypeSMS:
        if e.CandidatePhone == "" {
            return nil, appErrors.NewPermanentDelivery("enrollment %s has no phone number", e.ID)
        }
        job := queue.SendJob{
            EnrollmentID: e.ID,
            StepIndex:    stepIndex,
            Channel:      "sms",
            Recipient:    e.CandidatePhone,
            Body:         RenderTemplate(step.Message, vars),
        }
        if err := d.send(job); err != nil {
            return nil, err
        }
        return d.receipt(e, stepIndex, "sms", e.CandidatePhone), nil

    case model.StepTypeTask:
        task := &model.Task{
            ID:           uuid.NewString(),
            EnrollmentID: e.ID,
            CampaignID:   e.CampaignID,
            CandidateID:  e.CandidateID,
            Description:  RenderTemplate(step.Message, vars),
        }
        if err := d.TaskRepo.Create(task); err != nil {
            return nil, appErrors.NewTransientDelivery("record task: %v", err)
        }
        return d.receipt(e, stepIndex, "task", e.CandidateID), nil
    }

    return nil, appErrors.NewPermanentDelivery("unknown step type %q", step.Type)
}

// send runs the hand-off under a timeout. A timed-out or failed hand-off is
// transient unless the sender tagged the error permanent.
func (d *Dispatcher) send(job queue.SendJob) error {
    done := make(chan error, 1)
    go func() { done <- d.Sender.Send(job) }()

    timeout := d.Timeout
    if timeout <= 0 {
        timeout = 10 * time.Second
    }

    select {
    case err := <-done:
        if err == nil {
            return nil
        }
        var de *appErrors.DeliveryError
        if errors.As(err, &de) {
            return err
        }
        return appErrors.NewTransientDelivery("%s send: %v", job.Channel, err)
    case <-time.After(timeout):
        return appErrors.NewTransientDelivery("%s send timed out after %s", job.Channel, timeout)
    }
}

func (d *Dispatcher) receipt(e *model.Enrollment, stepIndex int, channel, recipient string) *DeliveryReceipt {
    return &DeliveryReceipt{
        EnrollmentID: e.ID,
        StepIndex:    stepIndex,
        Channel:      channel,
        Recipient:    recipient,
        SentAt:       time.Now(),
    }
}

var _ DeliveryDispatcher = (*Dispatcher)(nil)
