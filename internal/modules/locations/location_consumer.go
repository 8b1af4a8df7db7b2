package locations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"parcel-tracking/internal/models"
	"parcel-tracking/pkg/utils"

	"github.com/labstack/echo/v4"
	amqp "github.com/rabbitmq/amqp091-go"
)

const consumerTag = "location-ingest"

// DialAMQP connects to RabbitMQ, retrying with a growing delay.
func DialAMQP(ctx context.Context, url string, attempts int, log echo.Logger) (*amqp.Connection, error) {
	delay := time.Second
	for attempt := 1; ; attempt++ {
		conn, err := amqp.Dial(url)
		if err == nil {
			log.Infof("connected to rabbitmq (attempt %d)", attempt)
			return conn, nil
		}
		if attempt >= attempts {
			return nil, fmt.Errorf("amqp dial after %d attempts: %w", attempt, err)
		}
		log.Warnf("rabbitmq attempt %d/%d failed: %v; retrying in %s", attempt, attempts, err, delay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * 1.5)
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
	}
}

// Consumer ingests driver positions published to a RabbitMQ queue and feeds
// them through the same path as POST /drivers/:driverId/location.
type Consumer struct {
	conn  *amqp.Connection
	queue string
	svc   LocationServiceInterface
	log   echo.Logger
}

func NewConsumer(conn *amqp.Connection, queue string, svc LocationServiceInterface, log echo.Logger) *Consumer {
	return &Consumer{conn: conn, queue: queue, svc: svc, log: log}
}

// Start consumes until ctx is cancelled or the channel closes.
func (c *Consumer) Start(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("consumer.Start open channel: %w", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		c.queue, // name
		true,    // durable
		false,   // auto-delete
		false,   // exclusive
		false,   // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consumer.Start declare queue: %w", err)
	}
	if err := ch.Qos(32, 0, false); err != nil {
		return fmt.Errorf("consumer.Start qos: %w", err)
	}
	msgs, err := ch.Consume(q.Name, consumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consumer.Start consume: %w", err)
	}
	c.log.Infof("location consumer listening on queue %s", q.Name)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("consumer.Start: delivery channel closed")
			}
			c.process(ctx, d)
		}
	}
}

func (c *Consumer) process(ctx context.Context, d amqp.Delivery) {
	requeue, err := c.handle(ctx, d.Body)
	if err != nil {
		c.log.Errorf("location delivery %d: %v", d.DeliveryTag, err)
		// A redelivered message failing again is dropped, not looped.
		_ = d.Nack(false, requeue && !d.Redelivered)
		return
	}
	_ = d.Ack(false)
}

// handle reports one event; requeue is true for failures worth retrying.
func (c *Consumer) handle(ctx context.Context, body []byte) (requeue bool, err error) {
	var ev models.LocationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return false, fmt.Errorf("consumer.handle parse: %w", err)
	}
	if err := utils.GetValidator().Validate(&ev); err != nil {
		return false, fmt.Errorf("consumer.handle validate: %w", err)
	}
	req := models.LocationReportRequest{Latitude: ev.Latitude, Longitude: ev.Longitude}
	if _, err := c.svc.ReportLocation(ctx, ev.DriverID, req); err != nil {
		return !errors.Is(err, models.ErrInvalidCoordinate), err
	}
	return false, nil
}
