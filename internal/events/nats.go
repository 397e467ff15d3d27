package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const defaultSubjectPrefix = "timeclock"

// NATSPublisher publishes shift events as JSON on <prefix>.shift.<type>.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
	logger *logrus.Logger
}

func NewNATSPublisher(url, subjectPrefix string, logger *logrus.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = logrus.New()
	}
	prefix := strings.Trim(strings.TrimSpace(subjectPrefix), ".")
	if prefix == "" {
		prefix = defaultSubjectPrefix
	}

	conn, err := nats.Connect(url,
		nats.Name("timeclock"),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warnf("nats disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infof("nats reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	return &NATSPublisher{conn: conn, prefix: prefix, logger: logger}, nil
}

// Subject returns the subject used for the given event type.
func (p *NATSPublisher) Subject(eventType ShiftEventType) string {
	return p.prefix + ".shift." + string(eventType)
}

func (p *NATSPublisher) Publish(ctx context.Context, event ShiftEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode shift event: %w", err)
	}
	if err := p.conn.Publish(p.Subject(event.Type), data); err != nil {
		return fmt.Errorf("publish shift event: %w", err)
	}
	return nil
}

func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}

var _ Publisher = (*NATSPublisher)(nil)
