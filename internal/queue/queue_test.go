package queue_test

import (
    "fmt"
    "sync"
    "testing"
    "time"

    "github.com/hirestream/outreach-backend/internal/queue"
)

func TestInMemoryQueuePublishSubscribe(t *testing.T) {
    q := queue.NewInMemoryQueue()

    var wg sync.WaitGroup
    wg.Add(1)
    var got queue.SendJob
    q.Subscribe(queue.SendQueueName, func(payload any) error {
        defer wg.Done()
        job, ok := payload.(queue.SendJob)
        if !ok {
            t.Errorf("unexpected payload type %T", payload)
            return nil
        }
        got = job
        return nil
    })

    job := queue.SendJob{EnrollmentID: "enr-1", StepIndex: 0, Channel: "email", Recipient: "alice@example.com"}
    if err := q.Publish(queue.SendQueueName, job); err != nil {
        t.Fatalf("publish: %v", err)
    }

    wg.Wait()
    if got.EnrollmentID != "enr-1" || got.Channel != "email" {
        t.Errorf("unexpected job: %+v", got)
    }
}

func TestInMemoryQueueNoSubscribers(t *testing.T) {
    q := queue.NewInMemoryQueue()
    if err := q.Publish("empty-topic", 1); err == nil {
        t.Fatalf("expected error publishing without subscribers")
    }
}

func TestInMemoryQueueRetriesFailedHandler(t *testing.T) {
    q := queue.NewInMemoryQueue()

    var mu sync.Mutex
    attempts := 0
    done := make(chan struct{})
    q.Subscribe("retry-topic", func(payload any) error {
        mu.Lock()
        attempts++
        n := attempts
        mu.Unlock()
        if n < 2 {
            return fmt.Errorf("flaky")
        }
        close(done)
        return nil
    })

    if err := q.Publish("retry-topic", "job"); err != nil {
        t.Fatalf("publish: %v", err)
    }

    select {
    case <-done:
    case <-time.After(5 * time.Second):
        t.Fatalf("handler was not retried to success")
    }
}
