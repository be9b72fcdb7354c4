package cli

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/toucan4life/gamemap/pkg/graph"
	"github.com/toucan4life/gamemap/pkg/viewer"
)

type tuiHarness struct {
	m     viewModel
	v     *viewer.Viewer
	sched *viewer.ManualScheduler
}

func newTUIHarness(t *testing.T) *tuiHarness {
	t.Helper()
	g := graph.New()
	g.AddNode(13, graph.NodeData{Label: "Catan", Cluster: graph.Cluster(42)})
	g.AddNode(822, graph.NodeData{Label: "Carcassonne", Cluster: graph.Cluster(42)})
	g.AddNode(68448, graph.NodeData{Label: "7 Wonders", Cluster: graph.Cluster(7)})
	g.AddLink(13, 822, graph.LinkData{Weight: 0.2})
	g.AddLink(13, 68448, graph.LinkData{Weight: 0.05})

	sched := viewer.NewManualScheduler()
	surface := viewer.NewMemorySurface()
	v, err := viewer.New(viewer.Options{
		Graph:      g,
		RootNodeID: 13,
		Surface:    surface,
		Scheduler:  sched,
		Steps:      10,
	})
	if err != nil {
		t.Fatalf("viewer.New: %v", err)
	}
	t.Cleanup(v.Dispose)
	surface.Load()

	ev := newEvents()
	t.Cleanup(ev.close)
	return &tuiHarness{m: newViewModel(v, surface, ev, "test"), v: v, sched: sched}
}

func (h *tuiHarness) key(t *testing.T, k string) tea.Cmd {
	t.Helper()
	model, cmd := h.m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
	h.m = model.(viewModel)
	h.sched.RunUntilIdle(50)
	return cmd
}

func (h *tuiHarness) selected(t *testing.T) graph.NodeID {
	t.Helper()
	id, ok := h.v.Selected()
	if !ok {
		t.Fatal("nothing selected")
	}
	return id
}

func TestViewStopSettles(t *testing.T) {
	h := newTUIHarness(t)
	h.sched.Flush()
	if got := h.v.State(); got != viewer.LayingOut {
		t.Fatalf("State() = %v, want laying_out", got)
	}

	h.key(t, "s")
	if got := h.v.State(); got != viewer.Settled {
		t.Fatalf("State() after s = %v, want settled", got)
	}
	if got := h.selected(t); got != 13 {
		t.Errorf("selected %d after settling, want the root", got)
	}
}

func TestViewCycleNeighbors(t *testing.T) {
	h := newTUIHarness(t)
	h.sched.RunUntilIdle(50)

	steps := []struct {
		key  string
		want graph.NodeID
	}{
		{"n", 822},
		{"n", 68448},
		{"n", 822},
		{"p", 68448},
		{"c", 13},
	}
	for _, s := range steps {
		h.key(t, s.key)
		if got := h.selected(t); got != s.want {
			t.Fatalf("after %q selected %d, want %d", s.key, got, s.want)
		}
	}
}

func TestViewResume(t *testing.T) {
	h := newTUIHarness(t)
	h.sched.RunUntilIdle(50)

	model, _ := h.m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	h.m = model.(viewModel)
	if got := h.v.State(); got != viewer.LayingOut {
		t.Errorf("State() after r = %v, want laying_out", got)
	}
	if !strings.Contains(h.m.View(), "steps left") {
		t.Error("view should show the remaining steps while laying out")
	}
}

func TestViewQuit(t *testing.T) {
	h := newTUIHarness(t)

	cmd := h.key(t, "q")
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
	done := make(chan struct{})
	go func() {
		h.m.events.send(logMsg("late"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("send blocked after quit")
	}
}

func TestViewMessages(t *testing.T) {
	h := newTUIHarness(t)
	h.sched.RunUntilIdle(50)

	update := func(msg tea.Msg) {
		model, _ := h.m.Update(msg)
		h.m = model.(viewModel)
	}
	update(logMsg("loaded cluster 42"))
	update(statusMsg(true))
	update(loadErrMsg{err: errors.New("boom")})

	view := h.m.View()
	for _, want := range []string{"loaded cluster 42", "running", "boom", "Catan", "Carcassonne"} {
		if !strings.Contains(view, want) {
			t.Errorf("view is missing %q:\n%s", want, view)
		}
	}

	update(clickMsg(viewer.NodeInfo{ID: 822}))
	if h.m.anchor != 822 {
		t.Errorf("anchor = %d after click, want 822", h.m.anchor)
	}
}

func TestAppendLogKeepsTail(t *testing.T) {
	var logs []string
	for i := 0; i < logPanelLines+3; i++ {
		logs = appendLog(logs, fmt.Sprint(i))
	}
	if len(logs) != logPanelLines {
		t.Fatalf("len = %d, want %d", len(logs), logPanelLines)
	}
	if logs[0] != "3" {
		t.Errorf("oldest line = %q, want %q", logs[0], "3")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"Catan", 10, "Catan"},
		{"Twilight Imperium", 8, "Twiligh…"},
		{"Ästhetik", 8, "Ästhetik"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
