package services

import (
	"context"
	"errors"

	"github.com/archivus/sitedocs/pkg/logger"
)

// StepStatus is the outcome of one saga step
type StepStatus string

const (
	StepDone               StepStatus = "done"
	StepFailed             StepStatus = "failed"
	StepCompensated        StepStatus = "compensated"
	StepCompensationFailed StepStatus = "compensation_failed"
)

// StepRecord is one journal entry of a saga run
type StepRecord struct {
	Name   string     `json:"name"`
	Status StepStatus `json:"status"`
	Error  string     `json:"error,omitempty"`
}

type sagaStep struct {
	name     string
	run      func(ctx context.Context) error
	undo     func(ctx context.Context) error
	critical bool
}

// saga runs a multi-step operation across the blob store and the database.
// A failing critical step rolls back the completed steps in reverse order;
// a failing best-effort step is logged and the run continues.
type saga struct {
	op      string
	logger  *logger.Logger
	steps   []sagaStep
	journal []StepRecord
}

func newSaga(op string, log *logger.Logger) *saga {
	return &saga{op: op, logger: log}
}

// step adds a critical step. undo may be nil when the step cannot be reversed.
func (s *saga) step(name string, run, undo func(ctx context.Context) error) *saga {
	s.steps = append(s.steps, sagaStep{name: name, run: run, undo: undo, critical: true})
	return s
}

// bestEffort adds a step whose failure does not stop the run
func (s *saga) bestEffort(name string, run func(ctx context.Context) error) *saga {
	s.steps = append(s.steps, sagaStep{name: name, run: run})
	return s
}

// Journal returns a copy of the step records of the last run
func (s *saga) Journal() []StepRecord {
	return append([]StepRecord(nil), s.journal...)
}

// Failed returns the names of best-effort steps that failed
func (s *saga) Failed() []string {
	var names []string
	for _, rec := range s.journal {
		if rec.Status == StepFailed {
			names = append(names, rec.Name)
		}
	}
	return names
}

func (s *saga) record(name string, status StepStatus, err error) int {
	rec := StepRecord{Name: name, Status: status}
	if err != nil {
		rec.Error = err.Error()
	}
	s.journal = append(s.journal, rec)
	return len(s.journal) - 1
}

type completedStep struct {
	step  sagaStep
	index int
}

func (s *saga) execute(ctx context.Context) error {
	var done []completedStep

	for _, st := range s.steps {
		err := st.run(ctx)
		if err == nil {
			done = append(done, completedStep{step: st, index: s.record(st.name, StepDone, nil)})
			continue
		}

		s.record(st.name, StepFailed, err)
		if !st.critical {
			s.logger.Warn("Non-critical step failed", "op", s.op, "step", st.name, "error", err)
			continue
		}

		s.logger.Error("Step failed, rolling back", "op", s.op, "step", st.name, "error", err)
		return s.rollback(ctx, done, err)
	}

	return nil
}

func (s *saga) rollback(ctx context.Context, done []completedStep, cause error) error {
	// compensation must run even if the request was cancelled
	ctx = context.WithoutCancel(ctx)

	clean := true
	for i := len(done) - 1; i >= 0; i-- {
		c := done[i]
		if c.step.undo == nil {
			// already applied and irreversible
			clean = false
			continue
		}
		if err := c.step.undo(ctx); err != nil {
			clean = false
			s.journal[c.index].Status = StepCompensationFailed
			s.journal[c.index].Error = err.Error()
			s.logger.Error("Compensation failed", "op", s.op, "step", c.step.name, "error", err)
			continue
		}
		s.journal[c.index].Status = StepCompensated
	}

	if clean {
		var e *Error
		if errors.As(cause, &e) {
			e.Steps = s.Journal()
			return e
		}
		return &Error{Kind: KindPersistence, Op: s.op, Message: "operation failed", Err: cause, Steps: s.Journal()}
	}

	return &Error{
		Kind:    KindPartialFailure,
		Op:      s.op,
		Message: "operation partially completed",
		Err:     cause,
		Steps:   s.Journal(),
	}
}
