package queue

import (
    "encoding/json"

    "github.com/streadway/amqp"
)

// AmqpPublisher publishes events to RabbitMQ so any number of worker
// instances (cmd/worker) can consume them.
type AmqpPublisher struct {
    conn *amqp.Connection
    ch   *amqp.Channel
}

func NewAmqpPublisher(url string) (*AmqpPublisher, error) {
    conn, err := amqp.Dial(url)
    if err != nil {
        return nil, err
    }
    ch, err := conn.Channel()
    if err != nil {
        conn.Close()
        return nil, err
    }
    return &AmqpPublisher{conn: conn, ch: ch}, nil
}

func (p *AmqpPublisher) Publish(topic string, payload any) error {
    body, err := json.Marshal(payload)
    if err != nil {
        return err
    }

    q, err := p.ch.QueueDeclare(
        topic, // name
        true,  // durable
        false, // delete when unused
        false, // exclusive
        false, // no-wait
        nil,   // arguments
    )
    if err != nil {
        return err
    }

    return p.ch.Publish(
        "",
        q.Name,
        false,
        false,
        amqp.Publishing{
            ContentType: "application/json",
            Body:        body,
        },
    )
}

func (p *AmqpPublisher) Close() {
    p.ch.Close()
    p.conn.Close()
}
