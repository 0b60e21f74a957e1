package service_test

import (
    "fmt"
    "testing"
    "time"

    appErrors "github.com/hirestream/outreach-backend/internal/errors"
    "github.com/hirestream/outreach-backend/internal/model"
    "github.com/hirestream/outreach-backend/internal/queue"
    "github.com/hirestream/outreach-backend/internal/repository"
    "github.com/hirestream/outreach-backend/internal/service"
)

// MockSender captures hand-offs instead of publishing them.
type MockSender struct {
    jobs  []queue.SendJob
    err   error
    block time.Duration
}

func (s *MockSender) Send(job queue.SendJob) error {
    if s.block > 0 {
        time.Sleep(s.block)
    }
    if s.err != nil {
        return s.err
    }
    s.jobs = append(s.jobs, job)
    return nil
}

func testEnrollment() *model.Enrollment {
    return &model.Enrollment{
        ID:             "enr-1",
        CampaignID:     "followup",
        CandidateID:    "cand-1",
        CandidateName:  "Alice Smith",
        CandidateEmail: "alice@example.com",
        CandidatePhone: "+254700000001",
    }
}

func newTestDispatcher(sender *MockSender) (*service.Dispatcher, *repository.InMemoryTaskRepository) {
    tasks := repository.NewInMemoryTaskRepository()
    return &service.Dispatcher{
        Renderer: service.DefaultTemplateStore(),
        Sender:   sender,
        TaskRepo: tasks,
        Timeout:  time.Second,
    }, tasks
}

func TestDispatchEmail(t *testing.T) {
    sender := &MockSender{}
    d, _ := newTestDispatcher(sender)

    step := &model.CampaignStep{Type: model.StepTypeEmail, Template: "application-received"}
    receipt, err := d.Dispatch(0, step, testEnrollment())
    if err != nil {
        t.Fatalf("dispatch: %v", err)
    }
    if receipt.Channel != "email" || receipt.Recipient != "alice@example.com" {
        t.Errorf("unexpected receipt: %+v", receipt)
    }
    if len(sender.jobs) != 1 || sender.jobs[0].Channel != "email" {
        t.Fatalf("expected one email job, got %+v", sender.jobs)
    }
    if sender.jobs[0].Subject == "" || sender.jobs[0].Body == "" {
        t.Errorf("expected rendered subject and body, got %+v", sender.jobs[0])
    }
}

func TestDispatchEmailWithoutAddressIsPermanent(t *testing.T) {
    sender := &MockSender{}
    d, _ := newTestDispatcher(sender)

    e := testEnrollment()
    e.CandidateEmail = ""
    step := &model.CampaignStep{Type: model.StepTypeEmail, Template: "application-received"}
    _, err := d.Dispatch(0, step, e)
    if !appErrors.IsPermanentDelivery(err) {
        t.Fatalf("expected permanent error, got %v", err)
    }
    if len(sender.jobs) != 0 {
        t.Errorf("nothing should be handed off, got %+v", sender.jobs)
    }
}

func TestDispatchSMSRendersMessage(t *testing.T) {
    sender := &MockSender{}
    d, _ := newTestDispatcher(sender)

    step := &model.CampaignStep{Type: model.StepTypeSMS, Message: "Hi {candidate_name}!"}
    if _, err := d.Dispatch(1, step, testEnrollment()); err != nil {
        t.Fatalf("dispatch: %v", err)
    }
    if sender.jobs[0].Body != "Hi Alice Smith!" {
        t.Errorf("unexpected sms body: %q", sender.jobs[0].Body)
    }
    if sender.jobs[0].StepIndex != 1 {
        t.Errorf("expected step index carried on the job, got %d", sender.jobs[0].StepIndex)
    }
}

func TestDispatchTaskRecordsTodo(t *testing.T) {
    sender := &MockSender{}
    d, tasks := newTestDispatcher(sender)

    step := &model.CampaignStep{Type: model.StepTypeTask, Message: "Call {candidate_name}"}
    if _, err := d.Dispatch(2, step, testEnrollment()); err != nil {
        t.Fatalf("dispatch: %v", err)
    }

    recorded, _ := tasks.ListByCandidate("cand-1")
    if len(recorded) != 1 {
        t.Fatalf("expected one task, got %d", len(recorded))
    }
    if recorded[0].Description != "Call Alice Smith" {
        t.Errorf("unexpected task description: %q", recorded[0].Description)
    }
    if len(sender.jobs) != 0 {
        t.Errorf("task steps must not reach the send queue")
    }
}

func TestDispatchSenderFailureIsTransient(t *testing.T) {
    sender := &MockSender{err: fmt.Errorf("broker down")}
    d, _ := newTestDispatcher(sender)

    step := &model.CampaignStep{Type: model.StepTypeSMS, Message: "hello"}
    _, err := d.Dispatch(0, step, testEnrollment())
    if !appErrors.IsTransientDelivery(err) {
        t.Fatalf("expected transient error, got %v", err)
    }
}

func TestDispatchTimeoutIsTransient(t *testing.T) {
    sender := &MockSender{block: 200 * time.Millisecond}
    d, _ := newTestDispatcher(sender)
    d.Timeout = 20 * time.Millisecond

    step := &model.CampaignStep{Type: model.StepTypeSMS, Message: "hello"}
    _, err := d.Dispatch(0, step, testEnrollment())
    if !appErrors.IsTransientDelivery(err) {
        t.Fatalf("expected timeout to surface as transient, got %v", err)
    }
}

func TestDispatchUnknownTemplateIsPermanent(t *testing.T) {
    sender := &MockSender{}
    d, _ := newTestDispatcher(sender)

    step := &model.CampaignStep{Type: model.StepTypeEmail, Template: "no-such-template"}
    _, err := d.Dispatch(0, step, testEnrollment())
    if !appErrors.IsPermanentDelivery(err) {
        t.Fatalf("expected permanent error for unknown template, got %v", err)
    }
}
