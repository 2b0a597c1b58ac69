package event

import "testing"

func TestProgressDecoding(t *testing.T) {
	tests := []struct {
		name  string
		data1 any
		want  int
	}{
		{"int payload", 550, 550},
		{"terminal success", ProgressSuccess, 1000},
		{"terminal failure", ProgressFailed, 0},
		{"string payload is not progress", "oops", -1},
		{"nil payload is not progress", nil, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := New(ImexProgress, tt.data1, nil)
			if got := ev.Progress(); got != tt.want {
				t.Errorf("Progress() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPathDecoding(t *testing.T) {
	ev := New(ImexFileWritten, "/tmp/backup.tar", nil)
	if got := ev.Path(); got != "/tmp/backup.tar" {
		t.Errorf("Path() = %q", got)
	}

	if got := New(ImexProgress, 500, nil).Path(); got != "" {
		t.Errorf("Path() on int payload = %q, want empty", got)
	}
}

func TestStringFormat(t *testing.T) {
	ev := Event{Type: ConfigureProgress, Data1: 300, Data2: "probing imap"}
	want := "configure_progress data1=300 data2=probing imap"

	if got := ev.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestSinkFunc(t *testing.T) {
	var seen []Event

	var s Sink = SinkFunc(func(ev Event) { seen = append(seen, ev) })

	s.HandleEvent(New(Info, nil, "hello"))

	if len(seen) != 1 || seen[0].Text() != "hello" {
		t.Fatalf("SinkFunc did not record the event: %v", seen)
	}
}
