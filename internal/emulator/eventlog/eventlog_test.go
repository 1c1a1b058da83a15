package eventlog

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewHasInitialLine(t *testing.T) {
	l := New(nil)
	if diff := cmp.Diff([]string{InitialLine}, l.Snapshot()); diff != "" {
		t.Errorf("initial content mismatch (-want +got):\n%s", diff)
	}
}

func TestAppendKeepsOrder(t *testing.T) {
	l := New(nil)
	l.Clear()
	l.Append("Starting server...")
	l.Appendf("Server started on port %d. Waiting for a client...", 6666)

	want := []string{"Starting server...", "Server started on port 6666. Waiting for a client..."}
	if diff := cmp.Diff(want, l.Snapshot()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if l.Last() != want[1] {
		t.Errorf("Last() = %q", l.Last())
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	l := New(nil)
	snap := l.Snapshot()
	snap[0] = "mutated"
	if l.Snapshot()[0] != InitialLine {
		t.Error("snapshot aliases the log")
	}
}

func TestResetAndClear(t *testing.T) {
	l := New(nil)
	l.Append("a")
	l.Reset("Server stopped")
	if diff := cmp.Diff([]string{"Server stopped"}, l.Snapshot()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	l.Clear()
	if l.Len() != 0 || l.Last() != "" {
		t.Errorf("log not empty after Clear: %v", l.Snapshot())
	}
}

func TestSubscribe(t *testing.T) {
	l := New(nil)

	var got []Event
	cancel := l.Subscribe(func(ev Event) { got = append(got, ev) })

	l.Append("one")
	l.Clear()
	cancel()
	cancel()
	l.Append("two")

	if len(got) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(got), got)
	}
	if got[0].Type != Appended || got[0].Line != "one" {
		t.Errorf("first event = %+v", got[0])
	}
	if got[1].Type != Cleared {
		t.Errorf("second event = %+v", got[1])
	}
}

func TestSubscriberMayReadTheLog(t *testing.T) {
	l := New(nil)
	var n int
	l.Subscribe(func(Event) { n = l.Len() })
	l.Append("x")
	if n != 2 {
		t.Errorf("Len inside subscriber = %d, want 2", n)
	}
}

func TestConcurrentAppend(t *testing.T) {
	l := New(nil)
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 100 {
				l.Append(fmt.Sprintf("%d-%d", i, j))
			}
		}()
	}
	wg.Wait()

	if l.Len() != 801 {
		t.Errorf("Len() = %d, want 801", l.Len())
	}
}
