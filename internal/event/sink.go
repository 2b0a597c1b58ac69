package event

import "log/slog"

// Sink receives every event the engine emits. HandleEvent runs
// synchronously on the engine's I/O goroutine: implementations must
// complete in bounded, short time (enqueue, set a latch, append to a
// log) and must not block or panic. A failure to process an event is
// swallowed or recorded as queued state, never raised to the engine.
type Sink interface {
	HandleEvent(ev Event)
}

// CompletionSink is implemented by sinks that additionally want the
// dedicated end-of-configure signal, emitted exactly once per
// configure operation.
type CompletionSink interface {
	Sink
	ConfigureCompleted(success bool)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(ev Event)

// HandleEvent calls f(ev).
func (f SinkFunc) HandleEvent(ev Event) { f(ev) }

// LogSink forwards every event to a structured logger. Info events log
// at debug level to keep steady-state output quiet; warnings and
// errors log at their matching level; everything else logs at info.
type LogSink struct {
	Logger *slog.Logger
}

// HandleEvent implements Sink.
func (s *LogSink) HandleEvent(ev Event) {
	attrs := []any{
		slog.String("type", string(ev.Type)),
		slog.Any("data1", ev.Data1),
		slog.Any("data2", ev.Data2),
	}

	switch ev.Type {
	case Error:
		s.Logger.Error("engine event", attrs...)
	case Warning:
		s.Logger.Warn("engine event", attrs...)
	case Info:
		s.Logger.Debug("engine event", attrs...)
	default:
		s.Logger.Info("engine event", attrs...)
	}
}
