package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ANIKETSHETTY47/digital-twin-ingestor/internal/config"
	"github.com/ANIKETSHETTY47/digital-twin-ingestor/internal/metrics"
	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	DefaultRetryInterval = 5 * time.Second
	connectTimeout       = 10 * time.Second
	subscribeTimeout     = 10 * time.Second
	disconnectQuiesce    = 250 // ms
)

// Handler processes one delivered message. Its error is informational; the
// manager never retries or redelivers.
type Handler func(ctx context.Context, topic string, payload []byte) error

// Manager owns the single broker connection: initial connect with fixed
// interval retry, (re)subscription on every successful connect, serialized
// delivery to the handler, and one-shot shutdown.
type Manager struct {
	cfg     config.BrokerConfig
	handler Handler
	log     zerolog.Logger

	newClient     func(*mqtt.ClientOptions) mqtt.Client
	retryInterval time.Duration

	mu         sync.Mutex
	client     mqtt.Client
	handlerCtx context.Context
	closing    bool
	inflight   sync.WaitGroup
	stopOnce   sync.Once
}

func NewManager(cfg config.BrokerConfig, handler Handler, log zerolog.Logger) *Manager {
	return &Manager{
		cfg:           cfg,
		handler:       handler,
		log:           log,
		newClient:     mqtt.NewClient,
		retryInterval: DefaultRetryInterval,
		handlerCtx:    context.Background(),
	}
}

func (m *Manager) options() *mqtt.ClientOptions {
	clientID := m.cfg.ClientID
	if clientID == "" {
		clientID = "sensor-ingestor-" + uuid.NewString()
	}

	opts := mqtt.NewClientOptions().AddBroker(m.cfg.URL())
	opts.SetClientID(clientID)
	if m.cfg.Username != "" {
		opts.SetUsername(m.cfg.Username)
	}
	if m.cfg.Password != "" {
		opts.SetPassword(m.cfg.Password)
	}
	opts.SetProtocolVersion(4)
	if m.cfg.KeepAlive > 0 {
		opts.SetKeepAlive(m.cfg.KeepAlive)
	}
	opts.SetConnectTimeout(connectTimeout)
	opts.SetCleanSession(true)
	opts.SetOrderMatters(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	opts.SetOnConnectHandler(m.onConnect)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		m.log.Warn().Err(err).Msg("broker connection lost; client will reconnect")
	})
	opts.SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		m.log.Info().Str("broker", m.cfg.URL()).Msg("reconnecting to broker")
	})
	return opts
}

// Connect blocks until the broker accepts the connection, retrying every
// retry interval without limit. It returns early only when ctx is done.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.client == nil {
		m.client = m.newClient(m.options())
	}
	client := m.client
	m.handlerCtx = context.WithoutCancel(ctx)
	m.mu.Unlock()

	m.log.Info().Str("broker", m.cfg.URL()).Str("topic", m.cfg.Topic).Msg("connecting to broker")

	attempt := func() error {
		token := client.Connect()
		token.Wait()
		if err := token.Error(); err != nil {
			metrics.BrokerConnectAttempts.WithLabelValues("failure").Inc()
			if rc, ok := token.(interface{ ReturnCode() byte }); ok && rc.ReturnCode() != 0 {
				return fmt.Errorf("broker refused connection rc=%d: %w", rc.ReturnCode(), err)
			}
			return err
		}
		metrics.BrokerConnectAttempts.WithLabelValues("success").Inc()
		return nil
	}
	notify := func(err error, wait time.Duration) {
		m.log.Warn().Err(err).Dur("retry_in", wait).Msg("broker connection failed, retrying")
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(m.retryInterval), ctx)
	if err := backoff.RetryNotify(attempt, b, notify); err != nil {
		return fmt.Errorf("broker connect: %w", err)
	}
	m.log.Info().Msg("broker connection initiated")
	return nil
}

// Run connects, then waits for ctx to end and shuts down. It is the
// message-delivery task; paho's router goroutine does the actual delivery.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.Connect(ctx); err != nil {
		if ctx.Err() != nil {
			m.Shutdown()
			return nil
		}
		return err
	}
	m.log.Info().Msg("listening for messages")
	<-ctx.Done()
	m.Shutdown()
	return nil
}

func (m *Manager) onConnect(c mqtt.Client) {
	m.log.Info().Msg("broker connected")
	token := c.Subscribe(m.cfg.Topic, m.cfg.QoS, m.onMessage)
	if !token.WaitTimeout(subscribeTimeout) {
		m.log.Error().Str("topic", m.cfg.Topic).Msg("subscribe timed out")
		return
	}
	if err := token.Error(); err != nil {
		m.log.Error().Err(err).Str("topic", m.cfg.Topic).Msg("subscribe failed")
		return
	}
	m.log.Info().Str("topic", m.cfg.Topic).Uint8("qos", m.cfg.QoS).Msg("subscribed")
}

func (m *Manager) onMessage(_ mqtt.Client, msg mqtt.Message) {
	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		m.log.Warn().Str("topic", msg.Topic()).Msg("shutting down; message not processed")
		return
	}
	m.inflight.Add(1)
	ctx := m.handlerCtx
	m.mu.Unlock()
	defer m.inflight.Done()

	m.log.Debug().Str("topic", msg.Topic()).Uint16("message_id", msg.MessageID()).Bool("duplicate", msg.Duplicate()).Msg("received")
	if err := m.handler(ctx, msg.Topic(), msg.Payload()); err != nil {
		m.log.Debug().Err(err).Str("topic", msg.Topic()).Msg("message not stored")
	}
}

// Shutdown disconnects from the broker and waits for an in-flight handler.
// Only the first call has any effect.
func (m *Manager) Shutdown() {
	m.stopOnce.Do(func() {
		m.log.Info().Msg("stopping broker manager")
		m.mu.Lock()
		client := m.client
		m.mu.Unlock()

		if client != nil {
			client.Disconnect(disconnectQuiesce)
			m.log.Info().Msg("broker disconnected")
		}

		m.mu.Lock()
		m.closing = true
		m.mu.Unlock()
		m.inflight.Wait()
	})
}

func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client != nil && m.client.IsConnected()
}
