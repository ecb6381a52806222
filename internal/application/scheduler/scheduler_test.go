package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mediaops/content-approval/internal/domain/entity"
)

type recordingHandler struct {
	mu           sync.Mutex
	autoApproves []string
	escalations  []string
	fired        chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{fired: make(chan struct{}, 16)}
}

func (h *recordingHandler) HandleAutoApprove(contentID, stageID string) {
	h.mu.Lock()
	h.autoApproves = append(h.autoApproves, contentID+"/"+stageID)
	h.mu.Unlock()
	h.fired <- struct{}{}
}

func (h *recordingHandler) HandleEscalation(contentID, stageID, target string) {
	h.mu.Lock()
	h.escalations = append(h.escalations, contentID+"/"+stageID+"->"+target)
	h.mu.Unlock()
	h.fired <- struct{}{}
}

func (h *recordingHandler) waitForFiring(t *testing.T) {
	t.Helper()
	select {
	case <-h.fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
}

func stageWith(autoApproveHrs, escalationHrs float64, target string) *entity.Stage {
	return &entity.Stage{
		ID: "review",
		Requirements: entity.StageRequirements{
			AutoApproveAfterHrs: autoApproveHrs,
			EscalationHours:     escalationHrs,
			EscalationTarget:    target,
		},
	}
}

func TestElapsedDeadlineFiresImmediately(t *testing.T) {
	s := New(zap.NewNop())
	h := newRecordingHandler()
	s.SetHandler(h)
	defer s.Stop()

	// Stage started two hours ago with a one-hour deadline: the remaining
	// duration clamps to zero and the timer fires right away.
	s.ScheduleStageTimeouts("content-1", stageWith(1, 0, ""), time.Now().Add(-2*time.Hour))

	h.waitForFiring(t)
	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Equal(t, []string{"content-1/review"}, h.autoApproves)
}

func TestEscalationTimerCarriesTarget(t *testing.T) {
	s := New(zap.NewNop())
	h := newRecordingHandler()
	s.SetHandler(h)
	defer s.Stop()

	s.ScheduleStageTimeouts("content-1", stageWith(0, 1, "editor-in-chief"), time.Now().Add(-2*time.Hour))

	h.waitForFiring(t)
	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Equal(t, []string{"content-1/review->editor-in-chief"}, h.escalations)
}

func TestNoTimersWithoutConfiguration(t *testing.T) {
	s := New(zap.NewNop())
	s.SetHandler(newRecordingHandler())
	defer s.Stop()

	s.ScheduleStageTimeouts("content-1", stageWith(0, 0, ""), time.Now())
	assert.Equal(t, 0, s.PendingCount())

	// Escalation hours without a target arm nothing.
	s.ScheduleStageTimeouts("content-1", stageWith(0, 4, ""), time.Now())
	assert.Equal(t, 0, s.PendingCount())
}

func TestCancelStageTimers(t *testing.T) {
	s := New(zap.NewNop())
	h := newRecordingHandler()
	s.SetHandler(h)
	defer s.Stop()

	s.ScheduleStageTimeouts("content-1", stageWith(1, 1, "lead"), time.Now())
	require.Equal(t, 2, s.PendingCount())

	s.CancelStageTimers("content-1", "review")
	assert.Equal(t, 0, s.PendingCount())
}

func TestCancelAllOnlyAffectsOneContentItem(t *testing.T) {
	s := New(zap.NewNop())
	s.SetHandler(newRecordingHandler())
	defer s.Stop()

	s.ScheduleStageTimeouts("content-1", stageWith(1, 0, ""), time.Now())
	s.ScheduleStageTimeouts("content-2", stageWith(1, 0, ""), time.Now())
	require.Equal(t, 2, s.PendingCount())

	s.CancelAll("content-1")
	assert.Equal(t, 1, s.PendingCount())
}

func TestRearmingReplacesExistingTimer(t *testing.T) {
	s := New(zap.NewNop())
	s.SetHandler(newRecordingHandler())
	defer s.Stop()

	start := time.Now()
	s.ScheduleStageTimeouts("content-1", stageWith(1, 0, ""), start)
	s.ScheduleStageTimeouts("content-1", stageWith(1, 0, ""), start)
	assert.Equal(t, 1, s.PendingCount())
}

func TestStopCancelsEverything(t *testing.T) {
	s := New(zap.NewNop())
	s.SetHandler(newRecordingHandler())

	s.ScheduleStageTimeouts("content-1", stageWith(1, 1, "lead"), time.Now())
	s.ScheduleStageTimeouts("content-2", stageWith(1, 0, ""), time.Now())
	s.Stop()
	assert.Equal(t, 0, s.PendingCount())
}
