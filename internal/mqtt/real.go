package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/sweeney/espresso-shot/internal/logic"
)

// OfflineCapacity is the number of messages kept while the broker is
// unreachable.
const OfflineCapacity = 100

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are buffered and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	log    *log.Entry

	mu        sync.Mutex
	offline   *ringBuffer
	connected bool
	connects  int
	now       func() time.Time
}

func newPublisher(capacity int) *RealPublisher {
	return &RealPublisher{
		log:     log.WithField("component", "mqtt"),
		offline: newRingBuffer(capacity),
		now:     time.Now,
	}
}

// NewRealPublisher creates a publisher for the given broker. If the broker
// does not answer within the connect timeout the publisher is returned
// anyway and connects in the background. The broker is told to publish an OFFLINE system event if the connection drops
// without a clean disconnect.
func NewRealPublisher(broker, clientID string) (*RealPublisher, error) {
	p := newPublisher(OfflineCapacity)

	will, err := FormatSystemPayload(SystemEvent{Timestamp: p.now(), Event: "OFFLINE", Reason: "connection lost"})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(TopicSystem, will, 1, false).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		// The client keeps retrying; events are buffered until it connects.
		p.log.WithField("broker", broker).Warn("broker not reachable yet, buffering events")
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

// onConnect replays the offline buffer. After a reconnect it also announces
// RECONNECTED on the system topic.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	p.connected = true
	p.connects++
	reconnect := p.connects > 1
	pending := p.offline.drainAll()
	p.mu.Unlock()

	p.log.WithFields(log.Fields{"replay": len(pending), "reconnect": reconnect}).Info("connected to broker")
	if reconnect {
		payload, err := FormatSystemPayload(SystemEvent{Timestamp: p.now(), Event: "RECONNECTED"})
		if err == nil {
			pending = append(pending, bufferedMsg{topic: TopicSystem, payload: payload, qos: 1})
		}
	}
	for _, msg := range pending {
		tok := c.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
		go p.await(tok, msg.topic)
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
	p.log.WithError(err).Warn("connection to broker lost")
}

func (p *RealPublisher) await(tok paho.Token, topic string) {
	if !tok.WaitTimeout(publishTimeout) {
		p.log.WithField("topic", topic).Warn("publish timeout")
		return
	}
	if err := tok.Error(); err != nil {
		p.log.WithField("topic", topic).WithError(err).Warn("publish failed")
	}
}

// send publishes msg, or buffers it when the connection is down. It reports
// whether msg was handed to the client.
func (p *RealPublisher) send(msg bufferedMsg) (paho.Token, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		p.offline.push(msg)
		return nil, false
	}
	return p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload), true
}

// Publish sends a shot event to the MQTT broker. It does not wait for the
// broker, so the control loop is never held up; delivery failures are
// logged.
func (p *RealPublisher) Publish(event logic.ShotEvent) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	if tok, sent := p.send(bufferedMsg{topic: Topic, payload: payload}); sent {
		go p.await(tok, Topic)
	}
	return nil
}

// PublishSystem sends a system lifecycle event to the MQTT broker and waits
// for delivery.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) so shutdown events are delivered
	tok, sent := p.send(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
	if !sent {
		return fmt.Errorf("publish system: not connected, buffered")
	}
	if !tok.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish system timeout")
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.offline.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
	return nil
}
