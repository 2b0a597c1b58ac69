// Package event defines the engine's event records and the sink
// interfaces through which they are delivered. Events are emitted on
// the engine's own goroutines, so sink implementations must return
// quickly and must never panic across the sink boundary.
package event

import (
	"fmt"
	"time"
)

// Type names one kind of engine occurrence.
type Type string

// Recognized event types. The engine may emit types beyond these;
// consumers ignore what they do not recognize.
const (
	// Info, Warning and Error are free-form diagnostics. Data2 carries
	// the message text.
	Info    Type = "info"
	Warning Type = "warning"
	Error   Type = "error"

	// ConfigureProgress reports account configuration progress.
	// Data1 is an int from 0 to 1000; see ProgressFailed and
	// ProgressSuccess for the reserved terminal values.
	ConfigureProgress Type = "configure_progress"

	// SMTPConnected and IMAPConnected mark the transport links coming
	// up during configuration or I/O. No payload.
	SMTPConnected Type = "smtp_connected"
	IMAPConnected Type = "imap_connected"

	// ImexProgress reports import/export progress. Data1 is an int
	// from 0 to 1000 with the same reserved terminal values.
	ImexProgress Type = "imex_progress"

	// ImexFileWritten reports one file produced by an export.
	// Data1 is the absolute path.
	ImexFileWritten Type = "imex_file_written"

	// IncomingMsg announces a newly received message. Data1 is the
	// chat ID, Data2 the message ID.
	IncomingMsg Type = "incoming_msg"

	// MsgsChanged announces that stored messages changed (sent,
	// state transition, import). Data1 is the chat ID, Data2 the
	// message ID; either may be zero when the change is not specific.
	MsgsChanged Type = "msgs_changed"

	// MsgDelivered announces that an outgoing message was accepted by
	// the SMTP server. Data1 is the chat ID, Data2 the message ID.
	MsgDelivered Type = "msg_delivered"

	// ConnectivityChanged reports the engine going online or offline.
	// Data2 is "online" or "offline".
	ConnectivityChanged Type = "connectivity_changed"
)

// Reserved terminal values for progress streams (ConfigureProgress,
// ImexProgress). Values strictly between them are percentages in
// permille.
const (
	ProgressFailed  = 0
	ProgressSuccess = 1000
)

// Event is one immutable occurrence reported by the engine: a type and
// up to two payload fields whose meaning depends on the type. Events
// are passed by value and never retained by the engine after dispatch.
type Event struct {
	Type  Type
	Data1 any
	Data2 any
	Time  time.Time
}

// New builds an event stamped with the current time.
func New(typ Type, data1, data2 any) Event {
	return Event{Type: typ, Data1: data1, Data2: data2, Time: time.Now()}
}

// Progress decodes Data1 as a progress value. Returns -1 when the
// payload is not an int, so a malformed event can never be mistaken
// for a terminal sentinel.
func (e Event) Progress() int {
	if v, ok := e.Data1.(int); ok {
		return v
	}

	return -1
}

// Path decodes Data1 as a file path, for ImexFileWritten events.
func (e Event) Path() string {
	if v, ok := e.Data1.(string); ok {
		return v
	}

	return ""
}

// ChatID decodes Data1 as a chat row ID.
func (e Event) ChatID() int64 {
	if v, ok := e.Data1.(int64); ok {
		return v
	}

	return 0
}

// MsgID decodes Data2 as a message row ID.
func (e Event) MsgID() int64 {
	if v, ok := e.Data2.(int64); ok {
		return v
	}

	return 0
}

// Text decodes Data2 as message text, for Info/Warning/Error events.
func (e Event) Text() string {
	if v, ok := e.Data2.(string); ok {
		return v
	}

	return ""
}

// String renders the event in the compact single-line form used by
// diagnostic logs: "type data1=<v> data2=<v>".
func (e Event) String() string {
	return fmt.Sprintf("%s data1=%v data2=%v", e.Type, e.Data1, e.Data2)
}
