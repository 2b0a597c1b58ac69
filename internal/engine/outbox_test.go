package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestParseOutboxFile(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantTo   string
		wantBody string
		wantErr  bool
	}{
		{
			name:     "simple",
			content:  "To: bob@example.org\nhello there",
			wantTo:   "bob@example.org",
			wantBody: "hello there",
		},
		{
			name:     "multiline body",
			content:  "To: bob@example.org\nfirst line\nsecond line\n",
			wantTo:   "bob@example.org",
			wantBody: "first line\nsecond line",
		},
		{
			name:     "spacing around header",
			content:  "  To:   Bob@Example.ORG  \nhi",
			wantTo:   "bob@example.org",
			wantBody: "hi",
		},
		{
			name:    "missing header",
			content: "bob@example.org\nhi",
			wantErr: true,
		},
		{
			name:    "invalid address",
			content: "To: not-an-address\nhi",
			wantErr: true,
		},
		{
			name:    "empty body",
			content: "To: bob@example.org\n\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			to, body, err := parseOutboxFile(tt.content)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseOutboxFile(%q) succeeded, want error", tt.content)
				}

				return
			}

			if err != nil {
				t.Fatalf("parseOutboxFile(%q): %v", tt.content, err)
			}

			if to.String() != tt.wantTo || body != tt.wantBody {
				t.Errorf("got (%q, %q), want (%q, %q)", to, body, tt.wantTo, tt.wantBody)
			}
		})
	}
}

func TestProcessOutboxFileQueuesAndRemoves(t *testing.T) {
	e := newTestEngine(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")

	if err := os.WriteFile(path, []byte("To: bob@example.org\nhello from a file\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	e.processOutboxFile(ctx, path)

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("queued file still present (stat err = %v)", err)
	}

	id, ok := e.outbox.TryGet()
	if !ok {
		t.Fatal("no message queued for submission")
	}

	msg, err := e.store.MessageByID(ctx, id)
	if err != nil {
		t.Fatal(err)
	}

	if msg.Body != "hello from a file" {
		t.Errorf("stored body = %q", msg.Body)
	}
}

func TestProcessOutboxFileRejectsUnparsable(t *testing.T) {
	e := newTestEngine(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.txt")

	if err := os.WriteFile(path, []byte("no header here\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	e.processOutboxFile(context.Background(), path)

	if _, err := os.Stat(path + ".rejected"); err != nil {
		t.Errorf("rejected file not renamed: %v", err)
	}

	if _, ok := e.outbox.TryGet(); ok {
		t.Error("unparsable file was queued anyway")
	}
}
