package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gabriel/boxd-companion/internal/messaging"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// envelope tags a published update with the instance that produced it, so
// relays can skip their own messages.
type envelope struct {
	Origin  string                   `json:"origin"`
	Message messaging.UpdateTrackers `json:"message"`
}

// NATSBroadcaster publishes tracker updates for other instances sharing the
// same settings store.
type NATSBroadcaster struct {
	conn    *nats.Conn
	subject string
	origin  string
	logger  *slog.Logger
}

func ConnectNATS(url, subject, name string, logger *slog.Logger) (*NATSBroadcaster, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := []nats.Option{
		nats.Name(name),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Warn("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	logger.Info("nats connected", "url", url, "subject", subject)

	return &NATSBroadcaster{
		conn:    conn,
		subject: subject,
		origin:  uuid.NewString(),
		logger:  logger,
	}, nil
}

func (n *NATSBroadcaster) Broadcast(_ context.Context, msg messaging.UpdateTrackers) error {
	payload, err := encodeEnvelope(n.origin, msg)
	if err != nil {
		return err
	}
	if err := n.conn.Publish(n.subject, payload); err != nil {
		return fmt.Errorf("nats publish %s: %w", n.subject, err)
	}
	return nil
}

// Relay forwards updates published by other instances into local.
func (n *NATSBroadcaster) Relay(local Broadcaster) (func() error, error) {
	sub, err := n.conn.Subscribe(n.subject, func(m *nats.Msg) {
		msg, ok, err := decodeEnvelope(n.origin, m.Data)
		if err != nil {
			n.logger.Warn("nats relay decode failed", "error", err)
			return
		}
		if !ok {
			return
		}
		if err := local.Broadcast(context.Background(), msg); err != nil {
			n.logger.Debug("nats relay delivery incomplete", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("nats subscribe %s: %w", n.subject, err)
	}
	return sub.Unsubscribe, nil
}

func (n *NATSBroadcaster) Close() {
	if n.conn != nil {
		n.conn.Close()
	}
}

func encodeEnvelope(origin string, msg messaging.UpdateTrackers) ([]byte, error) {
	payload, err := json.Marshal(envelope{Origin: origin, Message: msg})
	if err != nil {
		return nil, fmt.Errorf("marshal tracker update: %w", err)
	}
	return payload, nil
}

// decodeEnvelope reports false for messages this instance published itself.
func decodeEnvelope(self string, data []byte) (messaging.UpdateTrackers, bool, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return messaging.UpdateTrackers{}, false, fmt.Errorf("unmarshal tracker update: %w", err)
	}
	if env.Origin == self {
		return messaging.UpdateTrackers{}, false, nil
	}
	if env.Message.Action != messaging.ActionUpdateTrackers {
		return messaging.UpdateTrackers{}, false, fmt.Errorf("unexpected action %q", env.Message.Action)
	}
	return env.Message, true, nil
}
