package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"highseas/internal/model"
)

// ErrBadPayload marks messages that can never be stored.
var ErrBadPayload = errors.New("bad payload")

// Store persists decoded records.
type Store interface {
	AddCombatRecord(rec *model.CombatRecord) error
	AddMatchHistory(h *model.MatchHistory) error
}

type Consumer struct {
	channel *amqp.Channel
	queue   string
	store   Store
	log     *logrus.Entry
}

func NewConsumer(ch *amqp.Channel, queue string, store Store, log *logrus.Entry) *Consumer {
	return &Consumer{channel: ch, queue: queue, store: store, log: log}
}

// Run consumes until ctx is done or the delivery channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}
	c.log.Infof("MQ consumer started on queue %s", c.queue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			c.deliver(msg)
		}
	}
}

func (c *Consumer) deliver(msg amqp.Delivery) {
	err := c.Handle(msg.Body)
	switch {
	case err == nil:
		msg.Ack(false)
	case errors.Is(err, ErrBadPayload):
		c.log.Warnf("Dropping message: %v", err)
		msg.Nack(false, false)
	default:
		c.log.Errorf("Failed to store message, requeueing: %v", err)
		msg.Nack(false, true)
	}
}

// Handle decodes one message body and stores it.
func (c *Consumer) Handle(body []byte) error {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	switch env.Kind {
	case KindCombatRecord:
		var rec CombatRecord
		if err := json.Unmarshal(env.Body, &rec); err != nil {
			return fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		if err := c.store.AddCombatRecord(rec.Model()); err != nil {
			return fmt.Errorf("store combat record: %w", err)
		}
		c.log.WithFields(logrus.Fields{"action_id": rec.ActionID, "target": rec.TargetID}).Debug("Combat record saved")
	case KindGameResult:
		var res GameResult
		if err := json.Unmarshal(env.Body, &res); err != nil {
			return fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		if err := c.store.AddMatchHistory(res.Model()); err != nil {
			return fmt.Errorf("store game result: %w", err)
		}
		c.log.WithFields(logrus.Fields{"match_id": res.MatchID, "winner": res.Winner}).Info("Game result saved")
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrBadPayload, env.Kind)
	}
	return nil
}
