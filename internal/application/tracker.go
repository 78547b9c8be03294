package app

import (
	"sync"
	"time"
)

// RunStatus состояние прогонов для статусного эндпоинта.
type RunStatus struct {
	Running   bool        `json:"running"`
	StartedAt *time.Time  `json:"started_at,omitempty"`
	Runs      int         `json:"runs"`
	Last      *RunSummary `json:"last,omitempty"`
}

// RunTracker хранит состояние текущего и последнего прогона.
type RunTracker struct {
	mu     sync.RWMutex
	status RunStatus
}

// NewRunTracker создаёт трекер
func NewRunTracker() *RunTracker {
	return &RunTracker{}
}

// Status возвращает копию состояния
func (t *RunTracker) Status() RunStatus {
	if t == nil {
		return RunStatus{}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	st := t.status
	if st.Last != nil {
		last := *st.Last
		st.Last = &last
	}
	return st
}

func (t *RunTracker) begin(at time.Time) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.Running = true
	t.status.StartedAt = &at
}

func (t *RunTracker) finish(summary RunSummary) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.Running = false
	t.status.StartedAt = nil
	t.status.Runs++
	t.status.Last = &summary
}
