package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/domain/entity"
)

type Publisher struct {
	channel  *amqp.Channel
	exchange string
}

// NewPublisher opens a channel and declares exchange as a durable topic
// exchange.
func NewPublisher(conn *amqp.Connection, exchange string) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open publisher channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &Publisher{channel: ch, exchange: exchange}, nil
}

func (p *Publisher) Close() error {
	return p.channel.Close()
}

// NotificationPublisher forwards toasts as JSON messages. Publish failures
// are logged and never reach the caller.
type NotificationPublisher struct {
	pub        *Publisher
	routingKey string
	logger     *zap.Logger
}

func NewNotificationPublisher(pub *Publisher, routingKey string, logger *zap.Logger) *NotificationPublisher {
	return &NotificationPublisher{pub: pub, routingKey: routingKey, logger: logger}
}

func (np *NotificationPublisher) Notify(ctx context.Context, n entity.Notification) {
	body, err := json.Marshal(n)
	if err != nil {
		np.logger.Error("failed to marshal notification", zap.Error(err))
		return
	}
	err = np.pub.channel.PublishWithContext(ctx,
		np.pub.exchange,
		np.routingKey,
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Headers: amqp.Table{
				"x-severity": string(n.Severity),
			},
		},
	)
	if err != nil {
		np.logger.Error("failed to publish notification",
			zap.String("session_id", n.SessionID.String()),
			zap.Error(err),
		)
	}
}
