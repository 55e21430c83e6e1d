package mqtt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotConnected is returned by Publish before the first connection succeeds.
var ErrNotConnected = errors.New("mqtt: not connected")

const (
	defaultInboundBuffer = 256
	disconnectQuiesceMs  = 250
)

// Handler processes one inbound message.
type Handler interface {
	Dispatch(ctx context.Context, topic string, payload []byte) error
}

// Options configures the broker connection.
type Options struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	Topics    []string
	QoS       byte
}

type inbound struct {
	topic   string
	payload []byte
}

// Worker keeps an MQTT session open, feeds subscribed messages to the handler
// one at a time and publishes outbound commands.
type Worker struct {
	opts    Options
	handler Handler
	client  paho.Client
	inbound chan inbound
	ready   atomic.Bool
	logger  *zap.Logger
}

// NewWorker builds the client. Nothing connects until Run. An empty client ID
// is replaced with a random one.
func NewWorker(opts Options, handler Handler, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(opts.ClientID) == "" {
		opts.ClientID = "solarx-" + uuid.NewString()
	}

	w := &Worker{
		opts:    opts,
		handler: handler,
		inbound: make(chan inbound, defaultInboundBuffer),
		logger:  logger.With(zap.String("broker", opts.BrokerURL), zap.String("client_id", opts.ClientID)),
	}

	clientOpts := paho.NewClientOptions()
	clientOpts.AddBroker(brokerURL(opts.BrokerURL))
	clientOpts.SetClientID(opts.ClientID)
	clientOpts.SetUsername(opts.Username)
	clientOpts.SetPassword(opts.Password)
	clientOpts.SetCleanSession(true)
	clientOpts.SetConnectTimeout(4 * time.Second)
	clientOpts.SetAutoReconnect(true)
	clientOpts.SetConnectRetry(true)
	clientOpts.SetConnectRetryInterval(time.Second)
	clientOpts.SetMaxReconnectInterval(30 * time.Second)
	clientOpts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		w.ready.Store(false)
		w.logger.Warn("mqtt connection lost", zap.Error(err))
	})
	clientOpts.SetOnConnectHandler(w.onConnect)

	w.client = paho.NewClient(clientOpts)
	return w
}

// brokerURL accepts host:port as shorthand for tcp://host:port.
func brokerURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw != "" && !strings.Contains(raw, "://") {
		return "tcp://" + raw
	}
	return raw
}

func (w *Worker) onConnect(client paho.Client) {
	w.logger.Info("connected to mqtt broker")
	for _, topic := range w.opts.Topics {
		token := client.Subscribe(topic, w.opts.QoS, w.receive)
		if token.Wait() && token.Error() != nil {
			w.logger.Error("failed to subscribe", zap.String("topic", topic), zap.Error(token.Error()))
			continue
		}
		w.logger.Info("subscribed", zap.String("topic", topic))
	}
	w.ready.Store(true)
}

func (w *Worker) receive(_ paho.Client, msg paho.Message) {
	payload := make([]byte, len(msg.Payload()))
	copy(payload, msg.Payload())

	select {
	case w.inbound <- inbound{topic: msg.Topic(), payload: payload}:
	default:
		w.logger.Warn("inbound buffer full, dropping message", zap.String("topic", msg.Topic()))
	}
}

// Run connects and handles messages until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("connecting to mqtt broker")
	// With ConnectRetry the token only completes once connected or the client is closed.
	w.client.Connect()

	defer func() {
		w.ready.Store(false)
		w.client.Disconnect(disconnectQuiesceMs)
		w.logger.Info("disconnected from mqtt broker")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-w.inbound:
			w.handle(ctx, msg)
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg inbound) {
	w.logger.Debug("message received", zap.String("topic", msg.topic), zap.Int("bytes", len(msg.payload)))
	if err := w.handler.Dispatch(ctx, msg.topic, msg.payload); err != nil {
		w.logger.Error("failed to process message",
			zap.String("topic", msg.topic),
			zap.ByteString("payload", msg.payload),
			zap.Error(err),
		)
	}
}

// Connected reports whether the session is up and subscriptions are in place.
func (w *Worker) Connected() bool {
	return w.ready.Load() && w.client.IsConnectionOpen()
}

// Publish sends a message and waits for the broker to accept it. While the
// client is reconnecting, QoS>0 messages are queued and sent on reconnect.
func (w *Worker) Publish(ctx context.Context, topic string, qos byte, retained bool, payload []byte) error {
	if !w.client.IsConnected() {
		return ErrNotConnected
	}
	token := w.client.Publish(topic, qos, retained, payload)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt: publish %s: %w", topic, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
