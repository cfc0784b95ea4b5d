package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// NATSPublisher публикует события в темы NATS в виде JSON.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher подключается к NATS с автоматическим переподключением.
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("recognition-bot"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Warn("Соединение с NATS потеряно")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.WithField("url", c.ConnectedUrl()).Info("Переподключились к NATS")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к NATS %s: %w", url, err)
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("ошибка сериализации события: %w", err)
	}
	return p.conn.Publish(topic, data)
}

// Close дожидается отправки буфера и закрывает соединение.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// New выбирает реализацию: NATS, если url задан, иначе Noop.
func New(url string) (Publisher, error) {
	if url == "" {
		return &NoopPublisher{}, nil
	}
	return NewNATSPublisher(url)
}

// PublishBestEffort отправляет событие, только логируя ошибку.
// Журнал уже записан, поэтому сбой шины не должен ломать операцию.
func PublishBestEffort(ctx context.Context, p Publisher, topic string, event any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, topic, event); err != nil {
		log.WithError(err).WithField("topic", topic).Warn("Не удалось опубликовать событие")
	}
}
