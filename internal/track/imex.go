// Package track converts the engine's asynchronous event stream into
// synchronous, bounded-wait completion primitives. A tracker is
// registered as an event sink for the duration of one long-running
// operation (configure, import, export): the sink side only enqueues
// or sets latches and returns, while the caller blocks on a Wait
// method until the operation reaches a terminal state or a timeout
// fires. Trackers are single-use; discard them after WaitFinish
// resolves.
package track

import (
	"fmt"
	"time"

	"github.com/tverho/mailchat-go/internal/event"
	"github.com/tverho/mailchat-go/pkg/waitq"
)

// DefaultProgressTimeout bounds each wait for the next import/export
// signal. The engine emits progress at least this often while an imex
// operation is healthy.
const DefaultProgressTimeout = 60 * time.Second

// ImexFailedError reports that the engine explicitly signaled
// import/export failure (terminal progress 0). Files holds the paths
// written before the failure, in emission order.
type ImexFailedError struct {
	Files []string
}

func (e *ImexFailedError) Error() string {
	return fmt.Sprintf("import/export failed, files written: %v", e.Files)
}

// imexSignal is one entry of the tracker's ordered channel: either a
// written file path or a progress value. Sharing one queue keeps
// "files written so far" consistent with "how far progress had gotten"
// at failure time.
type imexSignal struct {
	path     string
	progress int
	isFile   bool
}

// ImexTracker observes one import or export operation. Register it as
// an event sink before starting the operation, then block on
// WaitFinish from another goroutine.
type ImexTracker struct {
	signals *waitq.Queue[imexSignal]
}

// NewImexTracker returns a tracker ready for registration.
func NewImexTracker() *ImexTracker {
	return &ImexTracker{signals: waitq.NewQueue[imexSignal]()}
}

// HandleEvent implements event.Sink. Progress and file-written events
// are enqueued; everything else is ignored. Never blocks.
func (t *ImexTracker) HandleEvent(ev event.Event) {
	switch ev.Type {
	case event.ImexProgress:
		t.signals.Put(imexSignal{progress: ev.Progress()})
	case event.ImexFileWritten:
		t.signals.Put(imexSignal{path: ev.Path(), isFile: true})
	}
}

// WaitFinish blocks until the operation reaches a terminal state and
// returns the written file paths in emission order. A non-positive
// progressTimeout falls back to DefaultProgressTimeout; the timeout
// bounds each wait for the next signal, not the whole operation.
//
// Failure modes: *ImexFailedError when the engine signals terminal
// progress 0 (carrying the files written up to that point), and
// waitq.ErrTimedOut when no signal arrives within progressTimeout.
func (t *ImexTracker) WaitFinish(progressTimeout time.Duration) ([]string, error) {
	if progressTimeout <= 0 {
		progressTimeout = DefaultProgressTimeout
	}

	var files []string

	for {
		sig, err := t.signals.Get(progressTimeout)
		if err != nil {
			return nil, err
		}

		if sig.isFile {
			files = append(files, sig.path)
			continue
		}

		switch sig.progress {
		case event.ProgressFailed:
			return nil, &ImexFailedError{Files: files}
		case event.ProgressSuccess:
			return files, nil
		default:
			// Intermediate percentage, not accumulated.
		}
	}
}
