package server

import (
	"sync"
	"time"

	"github.com/toucan4life/gamemap/pkg/graph"
	"github.com/toucan4life/gamemap/pkg/viewer"
)

// maxLogLines bounds the progress log kept per session.
const maxLogLines = 200

type session struct {
	id      string
	cluster graph.ClusterID
	node    graph.NodeID
	depth   int
	created time.Time

	v       *viewer.Viewer
	surface *viewer.MemorySurface
	feed    *viewer.Feed

	// clickMu serializes clicks so each request sees its own result.
	clickMu sync.Mutex

	mu       sync.Mutex
	lastUsed time.Time
	log      []string
	clicked  *viewer.NodeInfo
	running  bool
}

func (s *session) touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

func (s *session) appendLog(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = append(s.log, msg)
	if len(s.log) > maxLogLines {
		s.log = append(s.log[:0], s.log[len(s.log)-maxLogLines:]...)
	}
}

func (s *session) logLines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.log...)
}

func (s *session) setRunning(running bool) {
	s.mu.Lock()
	s.running = running
	s.mu.Unlock()
}

func (s *session) setClicked(info viewer.NodeInfo) {
	s.mu.Lock()
	s.clicked = &info
	s.mu.Unlock()
}

func (s *session) takeClicked() *viewer.NodeInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.clicked
	s.clicked = nil
	return c
}

func (s *session) dispose() {
	s.v.Dispose()
}

// sessions indexes live viewer sessions by id.
type sessions struct {
	mu sync.RWMutex
	m  map[string]*session
}

func newSessions() *sessions {
	return &sessions{m: make(map[string]*session)}
}

func (ss *sessions) add(s *session) {
	ss.mu.Lock()
	ss.m[s.id] = s
	ss.mu.Unlock()
}

// get returns a session and marks it used.
func (ss *sessions) get(id string) (*session, bool) {
	ss.mu.RLock()
	s, ok := ss.m[id]
	ss.mu.RUnlock()
	if ok {
		s.touch()
	}
	return s, ok
}

func (ss *sessions) remove(id string) (*session, bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	s, ok := ss.m[id]
	delete(ss.m, id)
	return s, ok
}

func (ss *sessions) len() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.m)
}

// expired removes and returns the sessions last used before cutoff.
func (ss *sessions) expired(cutoff time.Time) []*session {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	var out []*session
	for id, s := range ss.m {
		s.mu.Lock()
		idle := s.lastUsed.Before(cutoff)
		s.mu.Unlock()
		if idle {
			out = append(out, s)
			delete(ss.m, id)
		}
	}
	return out
}

func (ss *sessions) drain() []*session {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	out := make([]*session, 0, len(ss.m))
	for id, s := range ss.m {
		out = append(out, s)
		delete(ss.m, id)
	}
	return out
}
