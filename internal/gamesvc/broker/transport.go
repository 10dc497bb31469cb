package broker

import (
	"sync"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Transport is the pub/sub fabric snapshots travel over.
type Transport interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler func(data []byte)) (Unsubscriber, error)
}

type Unsubscriber interface {
	Unsubscribe() error
}

// NatsTransport fans snapshots out to every service instance.
type NatsTransport struct {
	Conn *nats.Conn
}

func NewNatsTransport(nc *nats.Conn) *NatsTransport {
	return &NatsTransport{Conn: nc}
}

func (t *NatsTransport) Publish(subject string, data []byte) error {
	err := t.Conn.Publish(subject, data)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", subject, err)
		return err
	}

	return nil
}

func (t *NatsTransport) Subscribe(subject string, handler func(data []byte)) (Unsubscriber, error) {
	sub, err := t.Conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// LocalTransport delivers in process, synchronously and in publish order.
type LocalTransport struct {
	mu       sync.RWMutex
	next     int
	handlers map[string]map[int]func([]byte)
}

func NewLocalTransport() *LocalTransport {
	return &LocalTransport{handlers: make(map[string]map[int]func([]byte))}
}

func (t *LocalTransport) Publish(subject string, data []byte) error {
	t.mu.RLock()
	hs := make([]func([]byte), 0, len(t.handlers[subject]))
	for _, h := range t.handlers[subject] {
		hs = append(hs, h)
	}
	t.mu.RUnlock()

	for _, h := range hs {
		h(data)
	}
	return nil
}

func (t *LocalTransport) Subscribe(subject string, handler func(data []byte)) (Unsubscriber, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.next++
	if t.handlers[subject] == nil {
		t.handlers[subject] = make(map[int]func([]byte))
	}
	t.handlers[subject][t.next] = handler
	return &localSub{t: t, subject: subject, id: t.next}, nil
}

type localSub struct {
	t       *LocalTransport
	subject string
	id      int
}

func (s *localSub) Unsubscribe() error {
	s.t.mu.Lock()
	defer s.t.mu.Unlock()

	delete(s.t.handlers[s.subject], s.id)
	if len(s.t.handlers[s.subject]) == 0 {
		delete(s.t.handlers, s.subject)
	}
	return nil
}
