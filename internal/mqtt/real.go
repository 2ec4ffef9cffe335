package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/gate-tester/internal/tester"
)

// bufferCapacity bounds the messages held while the broker is unreachable.
const bufferCapacity = 256

// RealPublisher publishes to an actual MQTT broker. Messages published
// while disconnected are buffered and replayed on reconnect.
type RealPublisher struct {
	client paho.Client

	mu  sync.Mutex
	buf *ringBuffer
}

// NewRealPublisher creates a publisher for the given broker. It does not
// fail when the broker is unreachable: the client keeps retrying in the
// background and messages are buffered meanwhile.
func NewRealPublisher(broker, clientID string) *RealPublisher {
	p := &RealPublisher{buf: newRingBuffer(bufferCapacity)}

	will, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "SHUTDOWN", Reason: "MQTT_DISCONNECT"})
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(func(c paho.Client) {
			log.Printf("mqtt: connected to %s", broker)
			p.drain()
		}).
		SetConnectionLostHandler(func(c paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Printf("mqtt: broker %s not reachable yet, buffering", broker)
	} else if err := token.Error(); err != nil {
		log.Printf("mqtt: connect to broker: %v", err)
	}
	return p
}

// PublishResult sends a test report. QoS 0, not retained.
func (p *RealPublisher) PublishResult(r tester.Report) error {
	payload, err := FormatResult(r)
	if err != nil {
		return fmt.Errorf("format result: %w", err)
	}
	return p.publish(bufferedMsg{topic: TopicResults, payload: payload})
}

// PublishTransition sends a verdict change. QoS 1 so a failing socket is
// not missed.
func (p *RealPublisher) PublishTransition(t tester.Transition) error {
	payload, err := FormatTransition(t)
	if err != nil {
		return fmt.Errorf("format transition: %w", err)
	}
	return p.publish(bufferedMsg{topic: TopicTransitions, payload: payload, qos: 1})
}

// PublishSystem sends a system lifecycle event. QoS 1.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) publish(msg bufferedMsg) error {
	// Checked under mu so a message cannot slip into the buffer after
	// drain has emptied it.
	p.mu.Lock()
	if !p.client.IsConnectionOpen() {
		p.buf.push(msg)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

// drain replays buffered messages after a (re)connect, repeating until the
// buffer stays empty. It runs on the client's callback goroutine, so it
// does not wait on tokens.
func (p *RealPublisher) drain() {
	for {
		p.mu.Lock()
		msgs, dropped := p.buf.drainAll()
		p.mu.Unlock()

		if len(msgs) == 0 {
			return
		}
		log.Printf("mqtt: replaying %d buffered messages (%d dropped)", len(msgs), dropped)
		for _, m := range msgs {
			p.client.Publish(m.topic, m.qos, m.retained, m.payload)
		}
	}
}

// IsConnected reports whether the client currently has a connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
