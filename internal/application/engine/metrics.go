package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	workflowsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "approval_workflows_started_total",
		Help: "Number of workflow executions started.",
	})
	workflowsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "approval_workflows_completed_total",
		Help: "Number of workflow executions completed.",
	})
	workflowsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "approval_workflows_cancelled_total",
		Help: "Number of workflow executions cancelled, including rejections.",
	})
	stageActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "approval_stage_actions_total",
		Help: "Stage actions processed, by action type.",
	}, []string{"action"})
	timerFirings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "approval_timer_firings_total",
		Help: "Stage timer firings, by timer kind.",
	}, []string{"kind"})
	stalledDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "approval_workflows_stalled_total",
		Help: "Stalled-workflow observations published by the monitor.",
	})
)
