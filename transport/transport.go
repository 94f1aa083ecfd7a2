// Package transport defines the off-chain note transport collaborator:
// how a client publishes a private note to its recipient and discovers
// notes others have published to it, without the chain ever seeing the
// note's contents. It generalizes the teacher's topic/subscription
// map idiom from its libp2p gossip layer (core/network.go) down to a
// transport-agnostic interface plus an in-memory stub for tests.
package transport

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"miden-client/core/domain"
)

// NoteTransport is the external collaborator the client uses to share
// private notes out of band from the chain.
type NoteTransport interface {
	Publish(ctx context.Context, tag uint32, note domain.Note) error
	Subscribe(ctx context.Context, tag uint32) (<-chan domain.Note, error)
	Unsubscribe(tag uint32)
	Close() error
}

// Stub is an in-memory NoteTransport, keyed by tag exactly as the
// teacher's Node keys pubsub topics by name, for tests and single
// process demos where every peer is simulated locally.
type Stub struct {
	mu     sync.RWMutex
	topics map[uint32][]chan domain.Note
	logger *logrus.Logger
	closed bool
}

// NewStub returns an empty in-memory transport.
func NewStub(logger *logrus.Logger) *Stub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Stub{topics: make(map[uint32][]chan domain.Note), logger: logger}
}

func (s *Stub) Publish(ctx context.Context, tag uint32, note domain.Note) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return context.Canceled
	}
	for _, ch := range s.topics[tag] {
		select {
		case ch <- note:
		case <-ctx.Done():
			return ctx.Err()
		default:
			s.logger.Warnf("transport: subscriber for tag %d is slow, dropping note %s", tag, note.ID().Short())
		}
	}
	return nil
}

func (s *Stub) Subscribe(ctx context.Context, tag uint32) (<-chan domain.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan domain.Note, 32)
	s.topics[tag] = append(s.topics[tag], ch)
	return ch, nil
}

func (s *Stub) Unsubscribe(tag uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.topics[tag] {
		close(ch)
	}
	delete(s.topics, tag)
}

func (s *Stub) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for tag, chans := range s.topics {
		for _, ch := range chans {
			close(ch)
		}
		delete(s.topics, tag)
	}
	s.closed = true
	return nil
}
