// ABOUTME: Cooperative run loop: route, execute, merge, persist, suspend at checkpoints, resume, roll back.
// ABOUTME: Suspension is a returned value, not a thrown signal; Resume and Rollback are plain re-entry points.
package loom

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// EngineConfig holds the wiring for the run engine.
type EngineConfig struct {
	Registry      *NodeRegistry       // nil = core nodes only
	Checkpoints   map[StepID]Checkpoint // nil = DefaultCheckpoints
	Store         RunStore            // nil = in-memory only
	Run           RunConfig           // injected collaborators for nodes
	Retry         RetryPolicy         // zero value = no retries
	EventHandler  func(Event)         // optional event callback
	MaxIterations int                 // loop guard, default 500
	NewRunID      func() string       // nil = ULID
}

// Engine drives pipeline runs through the route/execute/merge loop.
// Exactly one step executes at a time per run; the router only ever sees a
// fully-merged state.
type Engine struct {
	cfg   EngineConfig
	mu    sync.RWMutex
	runs  map[string]*Run
	locks map[string]*sync.Mutex
}

// decisionKinds maps decision steps to the artifact kind they control, for
// escalation event reporting.
var decisionKinds = map[StepID]ArtifactKind{
	StepOutlineDecision: KindOutline,
	StepDraftDecision:   KindArticle,
}

// NewEngine creates an engine, filling config defaults.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Registry == nil {
		cfg.Registry = NewNodeRegistry()
	}
	for _, n := range CoreNodes() {
		if cfg.Registry.Get(n.Step()) == nil {
			cfg.Registry.Register(n)
		}
	}
	if cfg.Checkpoints == nil {
		cfg.Checkpoints = DefaultCheckpoints()
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 500
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = RetryPolicyNone()
	}
	if cfg.NewRunID == nil {
		cfg.NewRunID = func() string {
			return ulid.MustNew(ulid.Now(), rand.Reader).String()
		}
	}
	return &Engine{
		cfg:   cfg,
		runs:  make(map[string]*Run),
		locks: make(map[string]*sync.Mutex),
	}
}

// SetEventHandler replaces the event callback. Set this before starting
// runs; events emitted by an in-flight drive may miss a late handler swap.
func (e *Engine) SetEventHandler(h func(Event)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.EventHandler = h
}

// Begin creates and persists a new run seeded with the source documents
// without driving it. Callers that want the run to advance call Drive.
func (e *Engine) Begin(docs []Document) (*Run, error) {
	now := time.Now()
	run := &Run{
		ID:        e.cfg.NewRunID(),
		Status:    RunRunning,
		State:     Apply(NewState(), Update{SourceDocs: docs}),
		Events:    []Event{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	e.mu.Lock()
	e.runs[run.ID] = run
	e.mu.Unlock()

	if e.cfg.Store != nil {
		if err := e.cfg.Store.Create(run); err != nil {
			return nil, fmt.Errorf("persist new run: %w", err)
		}
	}

	e.record(run, Event{Type: EventRunStarted, RunID: run.ID})
	return run, nil
}

// Start creates a new run seeded with the source documents and drives it
// until it completes, fails, or suspends at a checkpoint.
func (e *Engine) Start(ctx context.Context, docs []Document) (*Run, error) {
	run, err := e.Begin(docs)
	if err != nil {
		return nil, err
	}
	lock := e.runLock(run.ID)
	lock.Lock()
	defer lock.Unlock()
	return e.drive(ctx, run)
}

// Drive advances an existing run until it completes, fails, or suspends.
func (e *Engine) Drive(ctx context.Context, id string) (*Run, error) {
	run, err := e.Get(id)
	if err != nil {
		return nil, err
	}
	lock := e.runLock(id)
	lock.Lock()
	defer lock.Unlock()
	return e.drive(ctx, run)
}

// runLock returns the mutex serializing work on one run.
func (e *Engine) runLock(id string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	return l
}

// Get returns a run by ID, checking memory first and the store second.
func (e *Engine) Get(id string) (*Run, error) {
	e.mu.RLock()
	run, ok := e.runs[id]
	e.mu.RUnlock()
	if ok {
		return run, nil
	}
	if e.cfg.Store != nil {
		run, err := e.cfg.Store.Get(id)
		if err != nil {
			return nil, err
		}
		if run != nil {
			e.mu.Lock()
			e.runs[id] = run
			e.mu.Unlock()
			return run, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
}

// List returns metadata for known runs: the store's listing when one is
// configured, otherwise the in-memory runs.
func (e *Engine) List() ([]Meta, error) {
	if e.cfg.Store != nil {
		return e.cfg.Store.List()
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	metas := make([]Meta, 0, len(e.runs))
	for _, run := range e.runs {
		metas = append(metas, run.Meta())
	}
	return metas, nil
}

// Resume merges a human decision into a suspended run and drives it
// forward. The decision is validated and decoded before any state
// mutation; a mismatched approval type is rejected.
func (e *Engine) Resume(ctx context.Context, id string, approval ApprovalType, decision json.RawMessage) (*Run, error) {
	run, err := e.Get(id)
	if err != nil {
		return nil, err
	}
	lock := e.runLock(id)
	lock.Lock()
	defer lock.Unlock()

	if run.Status != RunSuspended {
		return nil, fmt.Errorf("%w: run %s is %s", ErrNotSuspended, id, run.Status)
	}
	if run.State.AwaitingApproval != approval {
		return nil, fmt.Errorf("%w: pending %q, got %q", ErrApprovalMismatch, run.State.AwaitingApproval, approval)
	}

	u, err := DecodeDecision(approval, decision)
	if err != nil {
		return nil, err
	}

	run.State = Apply(run.State, u)
	run.Payload = nil
	run.Status = RunRunning
	e.record(run, Event{Type: EventCheckpointResumed, RunID: run.ID, Step: GateStepFor(approval), Data: map[string]any{"approval": string(approval)}})
	return e.drive(ctx, run)
}

// Rollback rewinds a run to the given rollback point and drives it forward
// again. The point is validated against the static table before any state
// mutation.
func (e *Engine) Rollback(ctx context.Context, id string, point ApprovalType) (*Run, error) {
	run, err := e.Get(id)
	if err != nil {
		return nil, err
	}
	lock := e.runLock(id)
	lock.Lock()
	defer lock.Unlock()

	newState, err := Rollback(run.State, point)
	if err != nil {
		return nil, err
	}

	run.State = newState
	run.Payload = nil
	run.Status = RunRunning
	run.Error = ""
	e.record(run, Event{Type: EventRollbackApplied, RunID: run.ID, Data: map[string]any{"point": string(point)}})
	return e.drive(ctx, run)
}

// drive runs the route/execute/merge loop until the run finishes or
// suspends. Business failures land in the run's error log and terminal
// phase; only contract violations and cancellation surface as Go errors.
func (e *Engine) drive(ctx context.Context, run *Run) (*Run, error) {
	for iteration := 0; iteration < e.cfg.MaxIterations; iteration++ {
		select {
		case <-ctx.Done():
			run.Status = RunCancelled
			e.persist(run)
			return run, ctx.Err()
		default:
		}

		step := Route(run.State)

		if step == StepDone {
			return e.finalize(run), nil
		}

		// A followed override is consumed before the step executes so it
		// short-circuits routing for exactly one step.
		if run.State.RouteOverride == step {
			cleared := StepID("")
			run.State = Apply(run.State, Update{RouteOverride: &cleared})
		}

		if cp, ok := e.cfg.Checkpoints[step]; ok {
			if cp.Skip(run.State) {
				// Re-entrant passage: required input already exists, pass
				// straight through without prompting again.
				if run.State.AwaitingApproval != "" {
					cleared := ApprovalType("")
					run.State = Apply(run.State, Update{AwaitingApproval: &cleared})
				}
				e.record(run, Event{Type: EventCheckpointSkipped, RunID: run.ID, Step: step})
				e.persist(run)
				continue
			}
			return e.suspend(run, cp), nil
		}

		node := e.cfg.Registry.Get(step)
		if node == nil {
			run.Status = RunFailed
			run.Error = fmt.Sprintf("no node registered for step %q", step)
			e.persist(run)
			return run, fmt.Errorf("%w: %q", ErrUnknownStep, step)
		}

		e.record(run, Event{Type: EventStepStarted, RunID: run.ID, Step: step})

		update, err := e.executeWithRetry(ctx, node, run)
		if err != nil {
			if ctx.Err() != nil {
				run.Status = RunCancelled
				e.persist(run)
				return run, ctx.Err()
			}
			e.record(run, Event{Type: EventStepFailed, RunID: run.ID, Step: step, Data: map[string]any{"reason": err.Error()}})
			e.fail(run, step, err)
			return run, nil
		}

		prev := run.State
		run.State = Apply(run.State, update)
		run.UpdatedAt = time.Now()
		e.record(run, Event{Type: EventStepCompleted, RunID: run.ID, Step: step})
		e.recordRevisionEvents(run, step, prev, update)
		e.persist(run)
	}

	return run, fmt.Errorf("run %s exceeded %d iterations, possible routing loop", run.ID, e.cfg.MaxIterations)
}

// suspend parks the run at a checkpoint with its review payload. Setting
// the pending approval flag here is engine bookkeeping for the data-driven
// router; the checkpoint itself only reads.
func (e *Engine) suspend(run *Run, cp Checkpoint) *Run {
	if run.State.AwaitingApproval != cp.Approval {
		approval := cp.Approval
		run.State = Apply(run.State, Update{AwaitingApproval: &approval})
	}
	payload := cp.BuildPayload(run.State)
	run.Payload = &payload
	run.Status = RunSuspended
	e.record(run, Event{Type: EventCheckpointSuspended, RunID: run.ID, Step: cp.Step, Data: map[string]any{"approval": string(cp.Approval)}})
	e.persist(run)
	return run
}

// finalize closes out a run whose router reached StepDone.
func (e *Engine) finalize(run *Run) *Run {
	if run.State.Phase == PhaseFailed {
		run.Status = RunFailed
		e.record(run, Event{Type: EventRunFailed, RunID: run.ID})
	} else {
		run.Status = RunCompleted
		e.record(run, Event{Type: EventRunCompleted, RunID: run.ID})
	}
	e.persist(run)
	return run
}

// fail records a node failure in the run's error log and moves the run to
// the terminal failed phase, preserving the last-known-good phase in the
// error record.
func (e *Engine) fail(run *Run, step StepID, err error) {
	failed := PhaseFailed
	run.State = Apply(run.State, Update{
		Errors: []ErrorRecord{NewErrorRecord(ErrKindNode, run.State.Phase, fmt.Errorf("step %s: %w", step, err))},
		Phase:  &failed,
	})
	run.Status = RunFailed
	run.Error = err.Error()
	e.record(run, Event{Type: EventRunFailed, RunID: run.ID, Step: step, Data: map[string]any{"reason": err.Error()}})
	e.persist(run)
}

// recordRevisionEvents derives revision lifecycle events from a decision
// step's update.
func (e *Engine) recordRevisionEvents(run *Run, step StepID, prev State, u Update) {
	for kind, count := range u.Revisions {
		if count > prev.Revisions[kind] {
			e.record(run, Event{Type: EventRevisionRequested, RunID: run.ID, Step: step, Data: map[string]any{"kind": string(kind), "revision": count}})
		}
	}
	kind, isDecision := decisionKinds[step]
	if isDecision && u.AwaitingApproval != nil && *u.AwaitingApproval != "" {
		if ev, ok := prev.Evaluations[kind]; ok && !ev.Ready {
			e.record(run, Event{Type: EventRevisionEscalated, RunID: run.ID, Step: step, Data: map[string]any{"kind": string(kind), "revisions": prev.Revisions[kind]}})
		}
	}
}

// executeWithRetry runs a node with panic recovery and the configured
// retry policy for transient errors.
func (e *Engine) executeWithRetry(ctx context.Context, node Node, run *Run) (Update, error) {
	policy := e.cfg.Retry
	shouldRetry := policy.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = DefaultShouldRetry
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return Update{}, ctx.Err()
		default:
		}

		update, err := safeRun(ctx, node, run.State, e.cfg.Run)
		if err == nil {
			return update, nil
		}
		lastErr = err

		if attempt < policy.MaxAttempts && shouldRetry(err) {
			e.record(run, Event{Type: EventStepRetrying, RunID: run.ID, Step: node.Step(), Data: map[string]any{"attempt": attempt}})
			sleepWithContext(ctx, policy.Backoff.DelayForAttempt(attempt-1))
			continue
		}
		break
	}
	return Update{}, lastErr
}

// safeRun wraps node.Run with panic recovery so a misbehaving node cannot
// crash the engine.
func safeRun(ctx context.Context, node Node, s State, rc RunConfig) (update Update, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("node panic in step %q: %v\n%s", node.Step(), r, debug.Stack())
			update = Update{}
		}
	}()
	return node.Run(ctx, s, rc)
}

// record appends an event to the run and forwards it to the configured
// callback and store.
func (e *Engine) record(run *Run, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	run.Events = append(run.Events, ev)
	e.mu.RLock()
	handler := e.cfg.EventHandler
	e.mu.RUnlock()
	if handler != nil {
		handler(ev)
	}
	if e.cfg.Store != nil {
		_ = e.cfg.Store.AppendEvent(run.ID, ev)
	}
}

// persist writes the run snapshot through the store, if one is configured.
func (e *Engine) persist(run *Run) {
	run.UpdatedAt = time.Now()
	if e.cfg.Store == nil {
		return
	}
	_ = e.cfg.Store.Update(run)
}
