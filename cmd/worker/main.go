package main

import (
    "encoding/json"
    "fmt"
    "log"
    "math/rand"

    "github.com/streadway/amqp"

    "github.com/hirestream/outreach-backend/internal/config"
    "github.com/hirestream/outreach-backend/internal/queue"
)

// The worker is the provider side of the dispatch hand-off: it drains the
// send queue and performs the actual email/sms provider call.

const maxSendRetries = 3

func main() {
    cfg, err := config.Load()
    if err != nil {
        log.Fatalf("failed to load config: %v", err)
    }

    conn, err := amqp.Dial(cfg.AMQPURL)
    if err != nil {
        log.Fatal("Failed to connect to RabbitMQ:", err)
    }
    defer conn.Close()

    ch, err := conn.Channel()
    if err != nil {
        log.Fatal("Failed to open a channel:", err)
    }
    defer ch.Close()

    q, err := ch.QueueDeclare(
        queue.SendQueueName,
        true,  // durable
        false, // delete when unused
        false, // exclusive
        false, // no-wait
        nil,   // arguments
    )
    if err != nil {
        log.Fatal("Failed to declare queue:", err)
    }

    msgs, err := ch.Consume(
        q.Name,
        "",
        false, // autoAck = false for reliability
        false,
        false,
        false,
        nil,
    )
    if err != nil {
        log.Fatal("Failed to register consumer:", err)
    }

    forever := make(chan bool)

    go func() {
        for d := range msgs {
            if err := handleDelivery(d.Body, d.Headers, deliver, republish(ch)); err != nil {
                log.Println("Failed to handle message:", err)
            }
            d.Ack(false)
        }
    }()

    log.Println("Worker running, waiting for messages...")
    <-forever
}

// handleDelivery processes one queued message. Failed sends are republished
// with the attempt count carried in the x-retry-count header; once the count
// reaches maxSendRetries the job is dropped. The original message is always
// acked by the caller, so a plain Nack requeue (which would redeliver the
// message with its headers unchanged, forever) never happens.
func handleDelivery(body []byte, headers amqp.Table, send func(*queue.SendJob) error, republish func(queue.SendJob, int32) error) error {
    var job queue.SendJob
    if err := json.Unmarshal(body, &job); err != nil {
        log.Println("Invalid job:", err)
        return nil
    }

    err := send(&job)
    if err == nil {
        return nil
    }
    log.Println("Failed to send message:", err)

    var retryCount int32
    if v, ok := headers["x-retry-count"].(int32); ok {
        retryCount = v
    }
    if retryCount >= maxSendRetries {
        log.Printf("Dropping job after %d attempts: enrollment %s step %d\n",
            retryCount+1, job.EnrollmentID, job.StepIndex)
        return nil
    }
    return republish(job, retryCount+1)
}

// republish returns a publisher that puts a failed job back on the send
// queue with its incremented retry count in the x-retry-count header.
func republish(ch *amqp.Channel) func(queue.SendJob, int32) error {
    return func(job queue.SendJob, retry int32) error {
        body, err := json.Marshal(job)
        if err != nil {
            return err
        }
        return ch.Publish(
            "",
            queue.SendQueueName,
            false,
            false,
            amqp.Publishing{
                ContentType: "application/json",
                Headers:     amqp.Table{"x-retry-count": retry},
                Body:        body,
            },
        )
    }
}

// deliver performs the provider call for one rendered payload.
func deliver(job *queue.SendJob) error {
    switch job.Channel {
    case "email":
        return sendEmail(job.Recipient, job.Subject, job.Body)
    case "sms":
        return sendSMS(job.Recipient, job.Body)
    }
    log.Println("Unknown channel, dropping job:", job.Channel)
    return nil
}

// TODO: replace the mock providers with the real gateway clients once
// provider credentials are wired into config.
func sendEmail(to, subject, body string) error {
    if !mockSend() {
        return fmt.Errorf("email provider unavailable")
    }
    log.Printf("✉️  email to %s: %s\n", to, subject)
    return nil
}

func sendSMS(phone, body string) error {
    if !mockSend() {
        return fmt.Errorf("sms provider unavailable")
    }
    log.Printf("📱 sms to %s\n", phone)
    return nil
}

// Mock provider: 90% chance of success
func mockSend() bool {
    return rand.Intn(100) < 90
}
