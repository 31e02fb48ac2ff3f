package events

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestSubject(t *testing.T) {
	if got := Subject("", SubjectCardCreated); got != "cards.created" {
		t.Errorf("Subject() = %q", got)
	}
	if got := Subject("prod", SubjectCardImported); got != "prod.cards.imported" {
		t.Errorf("Subject() = %q", got)
	}
}

func TestConnectWithoutURLDisablesEvents(t *testing.T) {
	p, err := Connect(Config{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if _, ok := p.(Nop); !ok {
		t.Fatalf("expected Nop publisher, got %T", p)
	}
	if err := p.Publish(context.Background(), SubjectCardDeleted, CardEvent{CardID: "c1"}); err != nil {
		t.Errorf("Nop publish failed: %v", err)
	}
	p.Close()
}
