package queue

import (
    "encoding/json"
    "fmt"
    "log"
    "sync"
    "time"

    "github.com/streadway/amqp"
)

// SendQueueName is the queue drained by cmd/worker.
const SendQueueName = "outreach_sends"

// SendJob is the rendered payload handed off to the delivery gateway.
type SendJob struct {
    EnrollmentID string `json:"enrollment_id"`
    StepIndex    int    `json:"step_index"`
    Channel      string `json:"channel"` // email | sms
    Recipient    string `json:"recipient"`
    Subject      string `json:"subject,omitempty"`
    Body         string `json:"body"`
}

// Queue interface
type Queue interface {
    Publish(topic string, payload any) error
    Subscribe(topic string, handler func(payload any) error) error
}

// InMemoryQueue is an in-process queue with retry, used in tests and when no
// broker is configured.
type InMemoryQueue struct {
    mu       sync.Mutex
    handlers map[string][]func(payload any) error
}

func NewInMemoryQueue() *InMemoryQueue {
    return &InMemoryQueue{
        handlers: make(map[string][]func(payload any) error),
    }
}

// JobPayload wraps a message payload with retry info
type JobPayload struct {
    Payload    any
    RetryCount int
    MaxRetries int
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload any) error {
    q.mu.Lock()
    handlers := q.handlers[topic]
    q.mu.Unlock()

    if len(handlers) == 0 {
        return fmt.Errorf("no subscribers for topic %s", topic)
    }

    job := JobPayload{
        Payload:    payload,
        RetryCount: 0,
        MaxRetries: 3,
    }

    for _, handler := range handlers {
        go q.processJob(handler, job)
    }

    return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(handler func(payload any) error, job JobPayload) {
    for job.RetryCount <= job.MaxRetries {
        err := handler(job.Payload)
        if err == nil {
            return // ACK
        }

        job.RetryCount++
        log.Printf("Job failed (attempt %d/%d): %+v, error: %v\n", job.RetryCount, job.MaxRetries, job.Payload, err)

        if job.RetryCount > job.MaxRetries {
            log.Printf("Job permanently failed after %d attempts: %+v\n", job.MaxRetries, job.Payload)
            return // No requeue
        }

        // Exponential backoff before retry
        time.Sleep(time.Duration(job.RetryCount*500) * time.Millisecond)
    }
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
    q.mu.Lock()
    defer q.mu.Unlock()

    q.handlers[topic] = append(q.handlers[topic], handler)
    return nil
}

// AMQPQueue publishes jobs to RabbitMQ. Consumption happens in cmd/worker,
// so Subscribe is not supported here.
type AMQPQueue struct {
    conn *amqp.Connection
    ch   *amqp.Channel
}

func DialAMQP(url string) (*AMQPQueue, error) {
    conn, err := amqp.Dial(url)
    if err != nil {
        return nil, err
    }
    ch, err := conn.Channel()
    if err != nil {
        conn.Close()
        return nil, err
    }
    if _, err := ch.QueueDeclare(SendQueueName, true, false, false, false, nil); err != nil {
        ch.Close()
        conn.Close()
        return nil, err
    }
    return &AMQPQueue{conn: conn, ch: ch}, nil
}

func (q *AMQPQueue) Publish(topic string, payload any) error {
    body, err := json.Marshal(payload)
    if err != nil {
        return err
    }
    return q.ch.Publish(
        "",
        topic,
        false,
        false,
        amqp.Publishing{
            ContentType: "application/json",
            Body:        body,
        },
    )
}

func (q *AMQPQueue) Subscribe(topic string, handler func(payload any) error) error {
    return fmt.Errorf("AMQP consumption runs in cmd/worker, not in-process")
}

func (q *AMQPQueue) Close() {
    q.ch.Close()
    q.conn.Close()
}

var _ Queue = (*InMemoryQueue)(nil)
var _ Queue = (*AMQPQueue)(nil)
