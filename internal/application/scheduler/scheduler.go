package scheduler

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mediaops/content-approval/internal/domain/entity"
)

// Timer kinds owned by a stage.
const (
	KindAutoApprove = "auto_approve"
	KindEscalation  = "escalation"
)

// Handler receives timer firings. The engine implements it and routes the
// firing through the same per-content serialization used for API calls, so
// a timer never mutates execution state directly.
type Handler interface {
	HandleAutoApprove(contentID, stageID string)
	HandleEscalation(contentID, stageID, target string)
}

type timerKey struct {
	contentID string
	stageID   string
	kind      string
}

// Scheduler owns the per-stage auto-approval and escalation timers. All
// state needed to re-arm timers lives in the persisted execution snapshot,
// so the timer set is re-derivable after a restart.
type Scheduler struct {
	logger  *zap.Logger
	now     func() time.Time
	handler Handler

	mu     sync.Mutex
	timers map[timerKey]*time.Timer
}

// New creates a scheduler. SetHandler must be called before any timer is
// armed.
func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		logger: logger,
		now:    time.Now,
		timers: make(map[timerKey]*time.Timer),
	}
}

// SetHandler wires the timer-firing target. Separate from construction
// because the engine and scheduler reference each other.
func (s *Scheduler) SetHandler(h Handler) {
	s.handler = h
}

// ScheduleStageTimeouts arms the timers configured for a stage, measured
// from the stage's start time. Deadlines already in the past fire
// immediately; this is what replays missed timers after a restart.
func (s *Scheduler) ScheduleStageTimeouts(contentID string, stage *entity.Stage, startedAt time.Time) {
	req := stage.Requirements

	if req.AutoApproveAfterHrs > 0 {
		s.arm(timerKey{contentID, stage.ID, KindAutoApprove},
			s.remaining(startedAt, req.AutoApproveAfterHrs),
			func() { s.handler.HandleAutoApprove(contentID, stage.ID) })
	}

	if req.EscalationHours > 0 && req.EscalationTarget != "" {
		target := req.EscalationTarget
		s.arm(timerKey{contentID, stage.ID, KindEscalation},
			s.remaining(startedAt, req.EscalationHours),
			func() { s.handler.HandleEscalation(contentID, stage.ID, target) })
	}
}

// CancelStageTimers cancels all timers owned by a stage. Must be called on
// every stage completion path so a stale timer cannot fire against a
// superseded stage.
func (s *Scheduler) CancelStageTimers(contentID, stageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, kind := range []string{KindAutoApprove, KindEscalation} {
		key := timerKey{contentID, stageID, kind}
		if t, ok := s.timers[key]; ok {
			t.Stop()
			delete(s.timers, key)
		}
	}
}

// CancelAll cancels every timer for a content item, regardless of stage.
func (s *Scheduler) CancelAll(contentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, t := range s.timers {
		if key.contentID == contentID {
			t.Stop()
			delete(s.timers, key)
		}
	}
}

// Stop cancels every outstanding timer.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, t := range s.timers {
		t.Stop()
		delete(s.timers, key)
	}
}

// PendingCount returns the number of armed timers. Used by tests and the
// health endpoint.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *Scheduler) remaining(startedAt time.Time, hours float64) time.Duration {
	deadline := startedAt.Add(time.Duration(hours * float64(time.Hour)))
	d := deadline.Sub(s.now())
	if d < 0 {
		d = 0
	}
	return d
}

func (s *Scheduler) arm(key timerKey, d time.Duration, fire func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-arming an existing key replaces the old timer.
	if old, ok := s.timers[key]; ok {
		old.Stop()
	}

	s.logger.Debug("Arming stage timer",
		zap.String("content_id", key.contentID),
		zap.String("stage_id", key.stageID),
		zap.String("kind", key.kind),
		zap.Duration("fires_in", d))

	s.timers[key] = time.AfterFunc(d, func() {
		s.mu.Lock()
		delete(s.timers, key)
		s.mu.Unlock()
		fire()
	})
}
