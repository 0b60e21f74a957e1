package main

import (
    "encoding/json"
    "fmt"
    "testing"

    "github.com/streadway/amqp"

    "github.com/hirestream/outreach-backend/internal/queue"
)

func jobBody(t *testing.T) []byte {
    t.Helper()
    body, err := json.Marshal(queue.SendJob{
        EnrollmentID: "e1",
        StepIndex:    0,
        Channel:      "email",
        Recipient:    "alice@example.com",
        Subject:      "hello",
        Body:         "hi",
    })
    if err != nil {
        t.Fatalf("marshal job: %v", err)
    }
    return body
}

func TestHandleDeliverySuccessIsNotRepublished(t *testing.T) {
    republished := 0
    err := handleDelivery(jobBody(t), nil,
        func(*queue.SendJob) error { return nil },
        func(queue.SendJob, int32) error { republished++; return nil },
    )
    if err != nil {
        t.Fatalf("handle: %v", err)
    }
    if republished != 0 {
        t.Errorf("successful send must not be republished")
    }
}

func TestHandleDeliveryFailureIncrementsRetryHeader(t *testing.T) {
    var gotRetry int32 = -1
    err := handleDelivery(jobBody(t), amqp.Table{"x-retry-count": int32(1)},
        func(*queue.SendJob) error { return fmt.Errorf("provider unavailable") },
        func(_ queue.SendJob, retry int32) error { gotRetry = retry; return nil },
    )
    if err != nil {
        t.Fatalf("handle: %v", err)
    }
    if gotRetry != 2 {
        t.Errorf("expected republish with retry count 2, got %d", gotRetry)
    }
}

func TestHandleDeliveryFirstFailureStartsAtOne(t *testing.T) {
    var gotRetry int32 = -1
    err := handleDelivery(jobBody(t), nil,
        func(*queue.SendJob) error { return fmt.Errorf("provider unavailable") },
        func(_ queue.SendJob, retry int32) error { gotRetry = retry; return nil },
    )
    if err != nil {
        t.Fatalf("handle: %v", err)
    }
    if gotRetry != 1 {
        t.Errorf("expected republish with retry count 1, got %d", gotRetry)
    }
}

func TestHandleDeliveryDropsAfterRetryLimit(t *testing.T) {
    republished := 0
    err := handleDelivery(jobBody(t), amqp.Table{"x-retry-count": int32(maxSendRetries)},
        func(*queue.SendJob) error { return fmt.Errorf("provider unavailable") },
        func(queue.SendJob, int32) error { republished++; return nil },
    )
    if err != nil {
        t.Fatalf("handle: %v", err)
    }
    if republished != 0 {
        t.Errorf("exhausted job must be dropped, not republished")
    }
}

func TestHandleDeliveryInvalidBodyIsDropped(t *testing.T) {
    sent, republished := 0, 0
    err := handleDelivery([]byte("{not json"), nil,
        func(*queue.SendJob) error { sent++; return nil },
        func(queue.SendJob, int32) error { republished++; return nil },
    )
    if err != nil {
        t.Fatalf("handle: %v", err)
    }
    if sent != 0 || republished != 0 {
        t.Errorf("malformed job must be dropped: sent=%d republished=%d", sent, republished)
    }
}
