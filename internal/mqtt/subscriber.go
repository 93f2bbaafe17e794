// Package mqtt subscribes to the channel's real-time feed. It is optional;
// polling remains the source of truth for connection status.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"feedwatch/internal/clock"
	"feedwatch/internal/config"
	"feedwatch/internal/logging"
	"feedwatch/internal/types"
)

// ErrStopped is returned by Connect after Disconnect has been called.
var ErrStopped = errors.New("subscriber stopped")

// Options carries the callbacks a Subscriber reports to. All are optional
// and are called from paho's goroutines.
type Options struct {
	OnMessage        func()
	OnReading        func(r types.Reading)
	OnConnect        func()
	OnConnectionLost func(err error)
	Clock            clock.Clock
}

type Subscriber struct {
	client paho.Client
	cfg    config.MQTTConfig
	opts   Options
	clock  clock.Clock
	logger *slog.Logger

	mu         sync.RWMutex
	connected  bool
	subscribed bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewSubscriber(cfg config.MQTTConfig, opts Options, logger *slog.Logger) (*Subscriber, error) {
	if cfg.BrokerURL == "" {
		return nil, errors.New("mqtt broker url is empty")
	}
	if cfg.Topic == "" {
		return nil, errors.New("mqtt topic is empty")
	}

	s := &Subscriber{
		cfg:    cfg,
		opts:   opts,
		clock:  clock.OrReal(opts.Clock),
		logger: logging.OrDefault(logger).With("component", "mqtt"),
		stopCh: make(chan struct{}),
	}

	po := paho.NewClientOptions()
	po.AddBroker(cfg.BrokerURL)
	po.SetClientID(clientID(cfg.ClientID))
	if cfg.Username != "" {
		po.SetUsername(cfg.Username)
		po.SetPassword(cfg.Password)
	}

	po.SetCleanSession(true)
	po.SetAutoReconnect(true)
	po.SetConnectRetry(true)
	po.SetConnectRetryInterval(5 * time.Second)
	po.SetMaxReconnectInterval(60 * time.Second)
	po.SetConnectTimeout(4 * time.Second)
	po.SetKeepAlive(30 * time.Second)
	po.SetPingTimeout(10 * time.Second)

	po.SetOnConnectHandler(func(_ paho.Client) {
		s.setConnected(true)
		s.logger.Info("mqtt connected", "broker", cfg.BrokerURL)
		if s.opts.OnConnect != nil {
			s.opts.OnConnect()
		}
		// A clean session drops subscriptions, so restore them after a reconnect.
		if s.isSubscribed() {
			if err := s.subscribe(); err != nil {
				s.logger.Warn("mqtt resubscribe failed", "error", err)
			}
		}
	})
	po.SetConnectionLostHandler(func(_ paho.Client, err error) {
		s.setConnected(false)
		s.logger.Warn("mqtt connection lost", "error", err)
		if s.opts.OnConnectionLost != nil {
			s.opts.OnConnectionLost(err)
		}
	})

	s.client = paho.NewClient(po)
	return s, nil
}

// clientID appends a random suffix so several instances can share a base id.
func clientID(base string) string {
	if base == "" {
		base = "feedwatch"
	}
	return base + "_" + uuid.NewString()[:8]
}

// Connect connects to the broker and subscribes to the configured topic. It
// returns when subscribed, or when ctx is done or Disconnect is called.
func (s *Subscriber) Connect(ctx context.Context) error {
	select {
	case <-s.stopCh:
		return ErrStopped
	default:
	}

	if s.IsConnected() && s.isSubscribed() {
		return nil
	}

	token := s.client.Connect()

	const poll = 200 * time.Millisecond
	for !token.WaitTimeout(poll) {
		select {
		case <-ctx.Done():
			s.client.Disconnect(0)
			return ctx.Err()
		case <-s.stopCh:
			s.client.Disconnect(0)
			return ErrStopped
		default:
		}
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	if err := s.subscribe(); err != nil {
		s.client.Disconnect(0)
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

func (s *Subscriber) subscribe() error {
	// ThingSpeak only delivers QoS 0.
	const qos = byte(0)
	token := s.client.Subscribe(s.cfg.Topic, qos, func(_ paho.Client, msg paho.Message) {
		s.handleMessage(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout for topic %s", s.cfg.Topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.cfg.Topic, err)
	}

	s.mu.Lock()
	s.subscribed = true
	s.mu.Unlock()

	s.logger.Info("subscribed to mqtt topic", "topic", s.cfg.Topic, "qos", qos)
	return nil
}

func (s *Subscriber) handleMessage(topic string, payload []byte) {
	s.logger.Debug("received mqtt message", "topic", topic, "size", len(payload))
	if s.opts.OnMessage != nil {
		s.opts.OnMessage()
	}

	r, ok, err := ParsePayload(payload, s.clock.Now())
	if err != nil {
		s.logger.Warn("failed to parse mqtt payload", "topic", topic, "error", err)
		return
	}
	if !ok {
		s.logger.Debug("mqtt payload carried no fields", "topic", topic)
		return
	}
	if s.opts.OnReading != nil {
		s.opts.OnReading(r)
	}
}

// IsConnected reports whether the client currently holds a broker connection.
func (s *Subscriber) IsConnected() bool {
	s.mu.RLock()
	connected := s.connected
	s.mu.RUnlock()
	return connected && s.client.IsConnected()
}

func (s *Subscriber) isSubscribed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subscribed
}

// Disconnect stops the subscriber. It is idempotent.
func (s *Subscriber) Disconnect() {
	s.stopOnce.Do(func() { close(s.stopCh) })

	if s.IsConnected() && s.isSubscribed() {
		s.client.Unsubscribe(s.cfg.Topic).WaitTimeout(2 * time.Second)
	}
	s.client.Disconnect(250)

	s.mu.Lock()
	s.connected = false
	s.subscribed = false
	s.mu.Unlock()
	s.logger.Info("mqtt subscriber disconnected")
}

func (s *Subscriber) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}
