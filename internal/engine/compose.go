package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tverho/mailchat-go/internal/addr"
)

// subjectMaxLen truncates generated subjects to keep headers tidy.
const subjectMaxLen = 60

// parseSender canonicalizes an address taken off the wire.
func parseSender(raw string) (addr.Addr, error) {
	return addr.Parse(raw)
}

// rfcMsgIDOrSynthetic returns the wire Message-ID, or mints one when
// the sender omitted it, so deduplication always has a key.
func rfcMsgIDOrSynthetic(msgID string, sender addr.Addr) string {
	if msgID != "" {
		return msgID
	}

	return fmt.Sprintf("<%s@%s>", uuid.NewString(), sender.Domain())
}

// newMsgID mints an RFC 5322 Message-ID in the account's domain.
func newMsgID(account addr.Addr) string {
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), account.Domain())
}

// composeRFC822 renders a plain-text chat message as an RFC 5322
// document with CRLF line endings.
func composeRFC822(from, to, msgID, body string, ts time.Time) []byte {
	var b strings.Builder

	subject := body
	if idx := strings.IndexByte(subject, '\n'); idx >= 0 {
		subject = subject[:idx]
	}

	if len(subject) > subjectMaxLen {
		subject = subject[:subjectMaxLen]
	}

	fmt.Fprintf(&b, "From: <%s>\r\n", from)
	fmt.Fprintf(&b, "To: <%s>\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", strings.TrimSpace(subject))
	fmt.Fprintf(&b, "Message-ID: %s\r\n", msgID)
	fmt.Fprintf(&b, "Date: %s\r\n", ts.UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	b.WriteString("\r\n")

	return []byte(b.String())
}
