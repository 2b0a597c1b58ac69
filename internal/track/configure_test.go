package track

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tverho/mailchat-go/internal/event"
	"github.com/tverho/mailchat-go/pkg/waitq"
)

func TestConfigureHappyPath(t *testing.T) {
	tr := NewConfigureTracker()

	tr.HandleEvent(event.New(event.SMTPConnected, nil, nil))
	tr.HandleEvent(event.New(event.IMAPConnected, nil, nil))
	tr.ConfigureCompleted(true)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := tr.WaitSMTPConnected(ctx); err != nil {
		t.Fatalf("WaitSMTPConnected: %v", err)
	}

	if err := tr.WaitIMAPConnected(ctx); err != nil {
		t.Fatalf("WaitIMAPConnected: %v", err)
	}

	if err := tr.WaitFinish(time.Second); err != nil {
		t.Fatalf("WaitFinish: %v", err)
	}
}

func TestConfigureFailureCarriesEventLog(t *testing.T) {
	tr := NewConfigureTracker()

	tr.HandleEvent(event.New(event.Info, nil, "resolving provider"))
	tr.HandleEvent(event.New(event.ConfigureProgress, 300, nil))
	tr.HandleEvent(event.New(event.Error, nil, "imap: authentication rejected"))
	tr.ConfigureCompleted(false)

	err := tr.WaitFinish(time.Second)

	var cfgErr *ConfigureFailedError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("WaitFinish err = %v, want *ConfigureFailedError", err)
	}

	if len(cfgErr.Log) != 3 {
		t.Fatalf("diagnostic log has %d events, want 3", len(cfgErr.Log))
	}

	// Emission order must be preserved.
	if cfgErr.Log[0].Type != event.Info || cfgErr.Log[2].Type != event.Error {
		t.Fatalf("diagnostic log out of order: %v", cfgErr.Log)
	}

	if !strings.Contains(err.Error(), "authentication rejected") {
		t.Fatalf("error text missing diagnostic line: %v", err)
	}
}

func TestConfigureWaitFinishTimesOut(t *testing.T) {
	tr := NewConfigureTracker()

	tr.HandleEvent(event.New(event.ConfigureProgress, 100, nil))

	err := tr.WaitFinish(50 * time.Millisecond)
	if !errors.Is(err, waitq.ErrTimedOut) {
		t.Fatalf("WaitFinish err = %v, want ErrTimedOut", err)
	}
}

func TestConfigureMilestonesBlockUntilSet(t *testing.T) {
	tr := NewConfigureTracker()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := tr.WaitSMTPConnected(ctx); err == nil {
		t.Fatal("WaitSMTPConnected returned before the milestone")
	}

	smtpDone := make(chan error, 1)

	go func() {
		smtpDone <- tr.WaitSMTPConnected(context.Background())
	}()

	tr.HandleEvent(event.New(event.SMTPConnected, nil, nil))

	select {
	case err := <-smtpDone:
		if err != nil {
			t.Fatalf("WaitSMTPConnected after milestone: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitSMTPConnected never woke after milestone event")
	}
}

func TestConfigureMilestonesIndependent(t *testing.T) {
	tr := NewConfigureTracker()

	// IMAP first; SMTP must stay unset.
	tr.HandleEvent(event.New(event.IMAPConnected, nil, nil))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := tr.WaitIMAPConnected(ctx); err != nil {
		t.Fatalf("WaitIMAPConnected: %v", err)
	}

	short, cancelShort := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelShort()

	if err := tr.WaitSMTPConnected(short); err == nil {
		t.Fatal("SMTP milestone set by IMAP event")
	}
}

func TestConfigureCompletionFromEngineGoroutine(t *testing.T) {
	tr := NewConfigureTracker()

	go func() {
		tr.HandleEvent(event.New(event.ConfigureProgress, 600, nil))
		tr.HandleEvent(event.New(event.IMAPConnected, nil, nil))
		tr.HandleEvent(event.New(event.SMTPConnected, nil, nil))
		tr.ConfigureCompleted(true)
	}()

	if err := tr.WaitFinish(2 * time.Second); err != nil {
		t.Fatalf("WaitFinish: %v", err)
	}
}
