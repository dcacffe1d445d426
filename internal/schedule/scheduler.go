package schedule

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dpage/maildroid/internal/model"
)

// DueFunc is invoked once per occurrence of a scheduled prompt.
type DueFunc func(prompt model.PromptDefinition)

// Scheduler arms one one-shot timer per prompt and re-arms it after
// every fire, so recurrence is built from single fires rather than
// periodic timers. At most one timer is active per prompt id.
type Scheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	seq    map[string]uint64
	due    DueFunc
	logger *zap.Logger
	now    func() time.Time
}

// New creates a Scheduler that invokes due when a prompt fires.
func New(due DueFunc, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		timers: make(map[string]*time.Timer),
		seq:    make(map[string]uint64),
		due:    due,
		logger: logger,
		now:    time.Now,
	}
}

// SchedulePrompt arms a timer for the prompt's next occurrence,
// replacing any existing timer for the same id. Prompts that are
// disabled, not scheduled, or without a recurrence are left idle.
func (s *Scheduler) SchedulePrompt(prompt model.PromptDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armLocked(prompt)
}

// CancelSchedule stops and removes the prompt's timer. An id with no
// active timer is a no-op.
func (s *Scheduler) CancelSchedule(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(id)
}

// CancelAll stops every timer and prevents pending fires from
// re-arming.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	for id := range s.seq {
		s.seq[id]++
	}
}

// RescheduleAll cancels every timer and re-arms from the given list.
// Call it whenever prompt configuration changes.
func (s *Scheduler) RescheduleAll(prompts []model.PromptDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	for id := range s.seq {
		s.seq[id]++
	}
	for _, prompt := range prompts {
		s.armLocked(prompt)
	}
}

// IsScheduled reports whether the prompt currently has an armed timer.
func (s *Scheduler) IsScheduled(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.timers[id]
	return ok
}

// armLocked cancels any existing timer for the prompt and arms a new
// one if the prompt qualifies. Callers must hold s.mu.
func (s *Scheduler) armLocked(prompt model.PromptDefinition) {
	s.cancelLocked(prompt.ID)

	if !shouldSchedule(prompt) {
		return
	}

	now := s.now()
	next, ok := NextFireTime(*prompt.Recurrence, now)
	if !ok || !next.After(now) {
		return
	}

	gen := s.seq[prompt.ID]
	s.timers[prompt.ID] = time.AfterFunc(next.Sub(now), func() {
		s.fire(prompt, gen)
	})

	s.logger.Debug("prompt scheduled",
		zap.String("prompt", prompt.Name),
		zap.Time("next_fire", next),
	)
}

// cancelLocked stops the timer for id and bumps its sequence so a fire
// already in flight will not re-arm. Callers must hold s.mu.
func (s *Scheduler) cancelLocked(id string) {
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	s.seq[id]++
}

// fire runs when a timer elapses: it invokes the due callback, then
// re-arms the prompt for its following occurrence. A stale sequence
// number means the timer was cancelled or replaced and the fire is
// abandoned.
func (s *Scheduler) fire(prompt model.PromptDefinition, gen uint64) {
	s.mu.Lock()
	if s.seq[prompt.ID] != gen {
		s.mu.Unlock()
		return
	}
	delete(s.timers, prompt.ID)
	s.mu.Unlock()

	s.logger.Debug("prompt due", zap.String("prompt", prompt.Name))
	if s.due != nil {
		s.due(prompt)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq[prompt.ID] == gen {
		s.armLocked(prompt)
	}
}

// shouldSchedule reports whether the prompt qualifies for a timer.
func shouldSchedule(prompt model.PromptDefinition) bool {
	if !prompt.Enabled || prompt.Recurrence == nil {
		return false
	}
	return prompt.TriggerMode == model.TriggerScheduled ||
		prompt.TriggerMode == model.TriggerBoth
}
