package mq

import (
	"fmt"

	"github.com/streadway/amqp"

	"highseas/pkg/config"
	"highseas/pkg/logger"
)

// Producer publishes room results onto the durable queue.
type Producer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

func Dial(cfg config.MQConfig) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(cfg.Url)
	if err != nil {
		return nil, nil, fmt.Errorf("mq connect: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("mq channel: %w", err)
	}
	if _, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("mq queue declare: %w", err)
	}
	return conn, ch, nil
}

func NewProducer(cfg config.MQConfig) (*Producer, error) {
	conn, ch, err := Dial(cfg)
	if err != nil {
		return nil, err
	}
	return &Producer{conn: conn, channel: ch, queue: cfg.QueueName}, nil
}

func (p *Producer) publish(kind string, body any) error {
	data, err := encode(kind, body)
	if err != nil {
		return err
	}
	err = p.channel.Publish("", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         data,
	})
	if err != nil {
		logger.Log.WithField("kind", kind).Errorf("Failed to publish: %v", err)
		return fmt.Errorf("publish %s: %w", kind, err)
	}
	return nil
}

func (p *Producer) PublishCombatRecord(rec CombatRecord) error {
	return p.publish(KindCombatRecord, rec)
}

func (p *Producer) PublishGameResult(res GameResult) error {
	return p.publish(KindGameResult, res)
}

func (p *Producer) Close() error {
	p.channel.Close()
	return p.conn.Close()
}
