package transport

import (
	"context"
	"testing"
	"time"

	"miden-client/core/domain"
)

func TestStubPublishSubscribe(t *testing.T) {
	s := NewStub(nil)
	defer s.Close()

	ch, err := s.Subscribe(context.Background(), 1)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	note := domain.Note{Metadata: domain.NoteMetadata{Tag: 1}}
	if err := s.Publish(context.Background(), 1, note); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case got := <-ch:
		if got.Metadata.Tag != 1 {
			t.Fatalf("tag mismatch")
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for published note")
	}
}

func TestStubUnsubscribeClosesChannel(t *testing.T) {
	s := NewStub(nil)
	defer s.Close()
	ch, err := s.Subscribe(context.Background(), 2)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	s.Unsubscribe(2)
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel to be closed after Unsubscribe")
	}
}

func TestStubPublishAfterCloseErrors(t *testing.T) {
	s := NewStub(nil)
	s.Close()
	if err := s.Publish(context.Background(), 1, domain.Note{}); err == nil {
		t.Fatalf("expected error publishing after Close")
	}
}
