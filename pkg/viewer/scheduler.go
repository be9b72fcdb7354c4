package viewer

import (
	"sync"
	"time"
)

// FrameID identifies a pending frame callback. Zero is never a valid id.
type FrameID uint64

// Scheduler runs callbacks before the next repaint.
type Scheduler interface {
	// RequestFrame schedules fn once and returns a handle for CancelFrame.
	RequestFrame(fn func()) FrameID

	// CancelFrame drops a pending callback. Unknown or already-run ids are
	// ignored.
	CancelFrame(id FrameID)
}

// DefaultFrameInterval approximates a 60Hz display refresh.
const DefaultFrameInterval = 16 * time.Millisecond

// =============================================================================
// Timer Scheduler
// =============================================================================

// TimerScheduler runs each frame on its own timer after a fixed interval.
type TimerScheduler struct {
	interval time.Duration

	mu     sync.Mutex
	next   FrameID
	timers map[FrameID]*time.Timer
}

// NewTimerScheduler creates a scheduler that fires frames after interval.
// A non-positive interval uses [DefaultFrameInterval].
func NewTimerScheduler(interval time.Duration) *TimerScheduler {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &TimerScheduler{interval: interval, timers: make(map[FrameID]*time.Timer)}
}

// RequestFrame implements [Scheduler].
func (s *TimerScheduler) RequestFrame(fn func()) FrameID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	id := s.next
	s.timers[id] = time.AfterFunc(s.interval, func() {
		s.mu.Lock()
		_, live := s.timers[id]
		delete(s.timers, id)
		s.mu.Unlock()
		if live {
			fn()
		}
	})
	return id
}

// CancelFrame implements [Scheduler].
func (s *TimerScheduler) CancelFrame(id FrameID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

// Pending returns the number of frames not yet fired.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// =============================================================================
// Manual Scheduler
// =============================================================================

type frame struct {
	id FrameID
	fn func()
}

// ManualScheduler queues frames until the caller flushes them. It is used
// to drive viewers deterministically in tests and headless rendering.
type ManualScheduler struct {
	mu    sync.Mutex
	next  FrameID
	queue []frame
}

// NewManualScheduler creates an empty scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// RequestFrame implements [Scheduler].
func (s *ManualScheduler) RequestFrame(fn func()) FrameID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.queue = append(s.queue, frame{id: s.next, fn: fn})
	return s.next
}

// CancelFrame implements [Scheduler].
func (s *ManualScheduler) CancelFrame(id FrameID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.queue {
		if f.id == id {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return
		}
	}
}

// Pending returns the number of queued frames.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Flush runs the frames queued at the time of the call and returns how many
// ran. Frames requested by those callbacks wait for the next Flush; frames
// cancelled by them do not run.
func (s *ManualScheduler) Flush() int {
	s.mu.Lock()
	last := s.next
	s.mu.Unlock()

	ran := 0
	for {
		s.mu.Lock()
		if len(s.queue) == 0 || s.queue[0].id > last {
			s.mu.Unlock()
			return ran
		}
		f := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		f.fn()
		ran++
	}
}

// RunUntilIdle flushes until no frames are pending or max frames have run,
// and returns the number of frames run.
func (s *ManualScheduler) RunUntilIdle(max int) int {
	ran := 0
	for ran < max && s.Pending() > 0 {
		ran += s.Flush()
	}
	return ran
}
