package depot

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// StageHint places a system in one of the fixed schedule stages. Stages run
// in declaration order; parallelism never crosses a stage boundary.
type StageHint uint8

const (
	StagePreUpdate StageHint = iota
	StageUpdate
	StagePostUpdate
	StageRender

	stageCount
)

func (s StageHint) String() string {
	switch s {
	case StagePreUpdate:
		return "pre_update"
	case StageUpdate:
		return "update"
	case StagePostUpdate:
		return "post_update"
	case StageRender:
		return "render"
	}
	return "unknown"
}

// ErrorPolicy decides how RunSchedule reacts to a failing system.
type ErrorPolicy uint8

const (
	// ErrorPolicyAbort stops dispatching after the failing batch and
	// returns the error. Commands recorded by systems that completed still
	// flush; the failing system's recordings are dropped.
	ErrorPolicyAbort ErrorPolicy = iota
	// ErrorPolicyContinue logs the error, drops the failing system's
	// recordings, and keeps the pass going. The first error is still
	// returned after the pass completes.
	ErrorPolicyContinue
)

// AccessSet declares everything a system touches. The scheduler builds
// parallel batches from these declarations alone, so an undeclared access
// is an undetectable data race.
type AccessSet struct {
	Reads          []ComponentID
	Writes         []ComponentID
	ResourceReads  []ResourceKey
	ResourceWrites []ResourceKey
}

// Merge combines two access sets, typically a system's query plans plus its
// resource usage.
func (a AccessSet) Merge(other AccessSet) AccessSet {
	return AccessSet{
		Reads:          append(append([]ComponentID(nil), a.Reads...), other.Reads...),
		Writes:         append(append([]ComponentID(nil), a.Writes...), other.Writes...),
		ResourceReads:  append(append([]ResourceKey(nil), a.ResourceReads...), other.ResourceReads...),
		ResourceWrites: append(append([]ResourceKey(nil), a.ResourceWrites...), other.ResourceWrites...),
	}
}

func overlapsComponents(a, b []ComponentID) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func overlapsResources(a, b []ResourceKey) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// conflictsWith reports whether the two sets cannot run concurrently: one
// side writes what the other reads or writes, for components or resources.
func (a AccessSet) conflictsWith(b AccessSet) bool {
	if overlapsComponents(a.Writes, b.Writes) ||
		overlapsComponents(a.Writes, b.Reads) ||
		overlapsComponents(b.Writes, a.Reads) {
		return true
	}
	return overlapsResources(a.ResourceWrites, b.ResourceWrites) ||
		overlapsResources(a.ResourceWrites, b.ResourceReads) ||
		overlapsResources(b.ResourceWrites, a.ResourceReads)
}

// SystemContext is what a system sees during Run: the storage, the pass
// tick, the system's change-detection baseline, and a private command
// buffer for deferred structural edits.
type SystemContext struct {
	sto      *Storage
	tick     Tick
	lastRun  Tick
	commands *CommandBuffer
	log      zerolog.Logger
}

// Storage returns the storage the schedule runs against. It is locked for
// structural mutation while any cursor is mid-iteration; use Commands for
// edits.
func (ctx *SystemContext) Storage() *Storage { return ctx.sto }

// Commands returns the system's private command buffer. Recordings flush at
// the end of the pass, merged across systems in registration order.
func (ctx *SystemContext) Commands() *CommandBuffer { return ctx.commands }

// Tick returns the tick of the current pass.
func (ctx *SystemContext) Tick() Tick { return ctx.tick }

// LastRunTick returns the tick of the pass this system last completed, or
// zero before its first run.
func (ctx *SystemContext) LastRunTick() Tick { return ctx.lastRun }

// Logger returns the system-scoped logger.
func (ctx *SystemContext) Logger() *zerolog.Logger { return &ctx.log }

// Cursor returns a cursor over the plan with the system's change-detection
// baseline already applied: Changed and Added terms match what happened
// since this system last ran.
func (ctx *SystemContext) Cursor(plan *QueryPlan) *Cursor {
	return newCursor(plan, ctx.sto).Since(ctx.lastRun)
}

type scheduledSystem struct {
	sys     System
	stage   StageHint
	access  AccessSet
	lastRun Tick
	buffer  CommandBuffer
}

// Scheduler runs registered systems against one storage in fixed stages,
// batching conflict-free systems for parallel execution within each stage.
type Scheduler struct {
	sto     *Storage
	log     zerolog.Logger
	workers int
	policy  ErrorPolicy
	pool    *workerPool
	systems []*scheduledSystem
	batches [stageCount][][]int
	built   bool
}

// SchedulerOption configures a Scheduler at construction.
type SchedulerOption func(*Scheduler)

// WithWorkers bounds the parallel batch width. Values below two run every
// batch inline.
func WithWorkers(n int) SchedulerOption {
	return func(s *Scheduler) { s.workers = n }
}

// WithErrorPolicy sets how RunSchedule reacts to failing systems.
func WithErrorPolicy(policy ErrorPolicy) SchedulerOption {
	return func(s *Scheduler) { s.policy = policy }
}

// WithSchedulerLogger overrides the logger inherited from the storage.
func WithSchedulerLogger(log zerolog.Logger) SchedulerOption {
	return func(s *Scheduler) { s.log = log }
}

func newScheduler(sto *Storage, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		sto:     sto,
		log:     sto.log,
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a system under the stage. Registration order is the tie
// break for batch placement and the merge order for command flushes. A
// system declaring the same component writable twice fails registration.
func (s *Scheduler) Register(sys System, stage StageHint) error {
	if stage >= stageCount {
		return eris.Errorf("depot: unknown stage hint %d", stage)
	}
	access := sys.Access()
	var writable accessBits
	for _, id := range access.Writes {
		if writable[id] {
			return eris.Wrapf(ComponentAccessError{Component: id}, "registering system %s", sys.Name())
		}
		writable[id] = true
	}
	s.systems = append(s.systems, &scheduledSystem{sys: sys, stage: stage, access: access})
	s.built = false
	return nil
}

// Build partitions each stage's systems into conflict-free batches:
// registration order, first batch the system conflicts with nobody in.
// RunSchedule builds lazily, so calling Build is only needed to surface
// the partition for inspection or tests.
func (s *Scheduler) Build() {
	for stage := range s.batches {
		s.batches[stage] = nil
	}
	for idx, sys := range s.systems {
		batches := s.batches[sys.stage]
		placed := false
		for b, batch := range batches {
			conflict := false
			for _, member := range batch {
				if sys.access.conflictsWith(s.systems[member].access) {
					conflict = true
					break
				}
			}
			if !conflict {
				batches[b] = append(batch, idx)
				placed = true
				break
			}
		}
		if !placed {
			s.batches[sys.stage] = append(batches, []int{idx})
		}
	}
	if s.pool == nil {
		s.pool = newWorkerPool(s.workers)
	}
	s.built = true
}

// Close stops the scheduler's worker pool.
func (s *Scheduler) Close() {
	s.pool.Close()
}

// RunSchedule executes one pass: every stage in order, every batch within a
// stage in parallel. After the stages the global tick advances and all
// recorded commands flush in registration order, so structural edits (and
// their Added stamps) land on the next pass's tick.
func (s *Scheduler) RunSchedule(ctx context.Context) error {
	if !s.built {
		s.Build()
	}
	start := time.Now()
	passTick := s.sto.tick
	completed := make([]bool, len(s.systems))

	var firstErr error
	aborted := false
	for stage := StageHint(0); stage < stageCount && !aborted; stage++ {
		for _, batch := range s.batches[stage] {
			if err := ctx.Err(); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				aborted = true
				break
			}
			errs := s.runBatch(batch, passTick)
			for i, err := range errs {
				idx := batch[i]
				if err == nil {
					completed[idx] = true
					continue
				}
				s.log.Error().
					Err(err).
					Str("system", s.systems[idx].sys.Name()).
					Str("stage", stage.String()).
					Msg("system failed")
				if firstErr == nil {
					firstErr = err
				}
				if s.policy == ErrorPolicyAbort {
					aborted = true
				}
			}
			if aborted {
				break
			}
		}
	}

	for idx, ok := range completed {
		if ok {
			s.systems[idx].lastRun = passTick
		}
	}

	// Advance before flushing: values inserted by commands stamp the next
	// pass's tick, so they read as Added to every system on that pass.
	s.sto.advanceTick()
	for _, sys := range s.systems {
		s.sto.commands.merge(&sys.buffer)
	}
	if err := s.sto.commands.Flush(s.sto); err != nil {
		if firstErr == nil {
			firstErr = err
		}
	}
	s.log.Debug().
		Uint32("tick", uint32(passTick)).
		Int("systems", len(s.systems)).
		Bool("aborted", aborted).
		Dur("elapsed", time.Since(start)).
		Msg("schedule pass complete")
	return firstErr
}

// runBatch executes one batch, on the pool when it helps, and returns one
// error slot per member. A panicking system is captured as an error and its
// command recordings are rolled back, same as a returned error.
func (s *Scheduler) runBatch(batch []int, passTick Tick) []error {
	errs := make([]error, len(batch))
	var wg sync.WaitGroup
	for i, idx := range batch {
		i, sys := i, s.systems[idx]
		wg.Add(1)
		s.pool.Submit(func() {
			defer wg.Done()
			errs[i] = s.runSystem(sys, passTick)
		})
	}
	wg.Wait()
	return errs
}

func (s *Scheduler) runSystem(sys *scheduledSystem, passTick Tick) (err error) {
	snapshot := sys.buffer.Snapshot()
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("depot: system %s panicked: %v", sys.sys.Name(), r)
		}
		if err != nil {
			sys.buffer.Restore(snapshot)
		}
	}()
	ctx := &SystemContext{
		sto:      s.sto,
		tick:     passTick,
		lastRun:  sys.lastRun,
		commands: &sys.buffer,
		log:      s.log.With().Str("system", sys.sys.Name()).Logger(),
	}
	return sys.sys.Run(ctx)
}
