package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/viant/simos/internal/idgen"
	"github.com/viant/simos/model/task"
	"github.com/viant/simos/progress"
	"github.com/viant/simos/service/dao"
	"github.com/viant/simos/service/event"
	"github.com/viant/simos/service/executor"
	"github.com/viant/simos/tracing"
)

// Allocator reserves and releases contiguous memory ranges
type Allocator interface {
	Allocate(size uint64) (uint64, error)
	Release(address uint64) error
}

// Config represents scheduler configuration
type Config struct {
	// DispatchYield is the pause after draining the ready queue
	DispatchYield time.Duration `yaml:"dispatchYield"`
}

// DefaultConfig returns the default scheduler configuration
func DefaultConfig() Config {
	return Config{
		DispatchYield: 100 * time.Millisecond,
	}
}

type lifecycle int

const (
	stateNew lifecycle = iota
	stateRunning
	stateStopped
)

// unit is a dispatched task and its completion signal
type unit struct {
	task       *task.Task
	done       chan struct{}
	release    sync.Once
	releaseErr error
	terminated bool // guarded by Service.mux
}

// notice is a lifecycle event waiting in the outbox
type notice struct {
	eventType event.Type
	snapshot  task.Snapshot
}

func (u *unit) finished() bool {
	select {
	case <-u.done:
		return true
	default:
		return false
	}
}

// Snapshot represents the display view of the scheduler
type Snapshot struct {
	Ready   int             `json:"ready"`
	Queued  []task.Snapshot `json:"queued,omitempty"`
	Running []task.Snapshot `json:"running,omitempty"`
}

// Service schedules tasks first-come-first-served
type Service struct {
	config    Config
	allocator Allocator
	executor  executor.Service
	publisher *event.Publisher[task.Snapshot]
	history   dao.Service[int, task.Task]
	progress  *progress.Progress
	runID     string
	log       *logrus.Entry

	lifecycleMux sync.Mutex // serialises Start and Stop
	mux          sync.Mutex
	cond         *sync.Cond
	state        lifecycle
	nextID       int
	ready        []*task.Task
	running      map[int]*unit
	units        sync.WaitGroup
	stopCh       chan struct{}
	loopDone     chan struct{}

	// events are queued under mux and published in order by flush, never
	// while mux is held; publishCtx is cancelled once Stop is requested
	outbox        []notice
	flushMux      sync.Mutex
	publishCtx    context.Context
	cancelPublish context.CancelFunc
}

// New creates a scheduler reserving memory from allocator
func New(allocator Allocator, options ...Option) (*Service, error) {
	if allocator == nil {
		return nil, fmt.Errorf("allocator is required")
	}
	s := &Service{
		config:    DefaultConfig(),
		allocator: allocator,
		running:   make(map[int]*unit),
		log:       logrus.StandardLogger().WithField("type", "scheduler"),
	}
	s.cond = sync.NewCond(&s.mux)
	s.publishCtx, s.cancelPublish = context.WithCancel(context.Background())
	for _, opt := range options {
		opt(s)
	}
	if s.executor == nil {
		s.executor = executor.New()
	}
	if s.runID == "" {
		s.runID = idgen.NewRunID("scheduler")
	}
	return s, nil
}

// CreateProcess admits a task: it reserves size units of memory and appends
// the task to the ready queue. Admission is allowed before Start; the task
// waits queued until the dispatch loop runs.
func (s *Service) CreateProcess(ctx context.Context, label string, size uint64) (pid int, err error) {
	ctx, span := tracing.StartSpan(ctx, "scheduler.CreateProcess", tracing.KindProducer)
	span.WithAttributes(map[string]string{"task.label": label}).WithInt("task.size", int64(size))
	defer func() { tracing.EndSpan(span, err) }()

	if label == "" {
		return 0, fmt.Errorf("%w: label cannot be empty", ErrInvalidArgument)
	}
	if size == 0 {
		return 0, fmt.Errorf("%w: memory request must be > 0", ErrInvalidArgument)
	}

	s.mux.Lock()
	if s.state == stateStopped {
		s.mux.Unlock()
		return 0, ErrStopped
	}
	s.nextID++
	pid = s.nextID
	address, err := s.allocator.Allocate(size)
	if err != nil {
		s.progress.Update(progress.Delta{Rejected: 1})
		s.enqueue(event.TypeRejected, task.Snapshot{ID: pid, Label: label, Size: size})
		s.mux.Unlock()
		s.flush()
		s.log.WithError(err).WithFields(logrus.Fields{"pid": pid, "label": label, "size": size}).Warn("admission failed")
		return 0, fmt.Errorf("%w: process %q: %w", ErrAdmissionFailed, label, err)
	}

	aTask := task.New(pid, label, size, address)
	s.ready = append(s.ready, aTask)
	s.record(ctx, aTask)
	s.enqueue(event.TypeAdmitted, aTask.Snapshot())
	s.progress.Update(progress.Delta{Admitted: 1, Queued: 1})
	s.cond.Signal()
	s.mux.Unlock()
	s.flush()

	s.log.WithFields(logrus.Fields{"pid": pid, "label": label, "size": size, "address": address}).Info("process created")
	span.WithAttributes(map[string]string{"task.pid": strconv.Itoa(pid)})
	return pid, nil
}

// Start launches the dispatch loop. It is a no-op while already running and
// restarts a previously stopped scheduler. ctx only carries values (tracing);
// its cancellation does not stop the loop, Stop does.
func (s *Service) Start(ctx context.Context) error {
	s.lifecycleMux.Lock()
	defer s.lifecycleMux.Unlock()

	s.mux.Lock()
	defer s.mux.Unlock()
	if s.state == stateRunning {
		return nil
	}
	if s.state == stateStopped {
		s.publishCtx, s.cancelPublish = context.WithCancel(context.Background())
	}
	s.state = stateRunning
	s.stopCh = make(chan struct{})
	s.loopDone = make(chan struct{})
	go s.loop(context.WithoutCancel(ctx), s.stopCh, s.loopDone)
	s.log.Info("scheduler started")
	return nil
}

// Stop requests the dispatch loop to exit, waits for it and for every running
// unit to complete, then cancels tasks still queued and releases their
// memory. No task memory reserved by the scheduler outlives Stop returning.
// Stop is idempotent.
func (s *Service) Stop() error {
	s.lifecycleMux.Lock()
	defer s.lifecycleMux.Unlock()

	s.mux.Lock()
	if s.state == stateStopped {
		s.mux.Unlock()
		return nil
	}
	wasRunning := s.state == stateRunning
	s.state = stateStopped
	s.cancelPublish()
	s.cond.Broadcast()
	s.mux.Unlock()

	if wasRunning {
		close(s.stopCh)
		<-s.loopDone
	}

	s.mux.Lock()
	units := make([]*unit, 0, len(s.running))
	for _, u := range s.running {
		units = append(units, u)
	}
	s.mux.Unlock()

	var errs []error
	for _, u := range units {
		<-u.done
		if err := s.release(u); err != nil {
			errs = append(errs, err)
		}
	}
	s.units.Wait()

	ctx := context.Background()
	s.mux.Lock()
	clear(s.running)
	queued := s.ready
	s.ready = nil
	for _, aTask := range queued {
		if err := s.allocator.Release(aTask.Address); err != nil {
			errs = append(errs, fmt.Errorf("failed to release memory of process %d: %w", aTask.ID, err))
		}
		aTask.Cancel()
		s.record(ctx, aTask)
		s.enqueue(event.TypeCancelled, aTask.Snapshot())
		s.progress.Update(progress.Delta{Queued: -1, Cancelled: 1})
	}
	s.mux.Unlock()
	s.flush()

	s.log.WithFields(logrus.Fields{"joined": len(units), "cancelled": len(queued)}).Info("scheduler stopped")
	return errors.Join(errs...)
}

// TerminateProcess waits for the running process to complete naturally,
// releases its memory and removes it from the running table. There is no
// preemptive cancellation; ctx only bounds how long the caller waits.
func (s *Service) TerminateProcess(ctx context.Context, pid int) error {
	s.mux.Lock()
	u, ok := s.running[pid]
	s.mux.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, pid)
	}

	log := s.log.WithFields(logrus.Fields{"pid": pid, "label": u.task.Label})
	log.Info("terminating process, waiting for completion")
	select {
	case <-u.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	err := s.release(u)

	s.mux.Lock()
	if s.running[pid] == u {
		delete(s.running, pid)
	}
	first := !u.terminated
	u.terminated = true
	if first {
		s.enqueue(event.TypeTerminated, u.task.Snapshot())
	}
	s.mux.Unlock()
	if !first {
		return err
	}
	s.flush()
	log.Info("process terminated")
	return err
}

// ListProcesses returns the ready queue and the running table ordered by id
func (s *Service) ListProcesses() Snapshot {
	s.mux.Lock()
	defer s.mux.Unlock()
	ret := Snapshot{Ready: len(s.ready)}
	for _, aTask := range s.ready {
		ret.Queued = append(ret.Queued, aTask.Snapshot())
	}
	for _, u := range s.running {
		ret.Running = append(ret.Running, u.task.Snapshot())
	}
	sort.Slice(ret.Running, func(i, j int) bool { return ret.Running[i].ID < ret.Running[j].ID })
	return ret
}

// Task returns the last recorded state of any admitted task
func (s *Service) Task(ctx context.Context, pid int) (*task.Task, error) {
	if s.history == nil {
		return nil, fmt.Errorf("%w: %d (history disabled)", ErrNotFound, pid)
	}
	ret, err := s.history.Load(ctx, pid)
	if errors.Is(err, dao.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, pid)
	}
	return ret, err
}

// Progress returns the counters tracker, nil when disabled
func (s *Service) Progress() *progress.Progress {
	return s.progress
}

// loop is the dispatch loop: Idle (sweep, wait) then Draining, until stopped
func (s *Service) loop(ctx context.Context, stopCh, done chan struct{}) {
	defer close(done)
	for {
		s.mux.Lock()
		s.sweep()
		for len(s.ready) == 0 && s.state == stateRunning {
			s.cond.Wait()
			s.sweep()
		}
		if s.state != stateRunning {
			s.mux.Unlock()
			return
		}
		for len(s.ready) > 0 {
			aTask := s.ready[0]
			s.ready[0] = nil
			s.ready = s.ready[1:]
			s.dispatch(ctx, aTask)
		}
		s.mux.Unlock()
		s.flush()

		if s.config.DispatchYield <= 0 {
			continue
		}
		timer := time.NewTimer(s.config.DispatchYield)
		select {
		case <-timer.C:
		case <-stopCh:
			timer.Stop()
		}
	}
}

// sweep drops finished units from the running table. Caller holds the lock.
func (s *Service) sweep() {
	for pid, u := range s.running {
		if u.finished() {
			delete(s.running, pid)
		}
	}
}

// dispatch moves a task into the running table and launches it. Caller holds the lock.
func (s *Service) dispatch(ctx context.Context, aTask *task.Task) {
	u := &unit{task: aTask, done: make(chan struct{})}
	aTask.Start()
	s.running[aTask.ID] = u
	s.record(ctx, aTask)
	s.enqueue(event.TypeDispatched, aTask.Snapshot())
	s.progress.Update(progress.Delta{Queued: -1, Running: 1})
	s.log.WithFields(logrus.Fields{"pid": aTask.ID, "label": aTask.Label}).Info("dispatching process")
	s.units.Add(1)
	go s.run(ctx, u)
}

// run executes the unit and releases its memory however the run ends.
// The unit is marked done before its finished event is flushed.
func (s *Service) run(ctx context.Context, u *unit) {
	defer s.units.Done()
	duration := s.execute(ctx, u)
	s.wake()
	s.flush()
	s.log.WithFields(logrus.Fields{"pid": u.task.ID, "label": u.task.Label, "duration": duration}).Info("process finished")
}

func (s *Service) execute(ctx context.Context, u *unit) time.Duration {
	defer close(u.done)

	ctx, span := tracing.StartSpan(ctx, "scheduler.run", tracing.KindConsumer)
	span.WithAttributes(map[string]string{"task.label": u.task.Label}).WithInt("task.pid", int64(u.task.ID))
	ctx = progress.WithTracker(ctx, s.progress)

	duration, err := s.executor.Execute(ctx, u.task)
	if err != nil {
		s.log.WithError(err).WithField("pid", u.task.ID).Warn("process execution failed")
	}
	u.task.Finish(duration)
	releaseErr := s.release(u)
	tracing.EndSpan(span, errors.Join(err, releaseErr))

	s.record(ctx, u.task)
	s.progress.Update(progress.Delta{Running: -1, Finished: 1})
	s.mux.Lock()
	s.enqueue(event.TypeFinished, u.task.Snapshot())
	s.mux.Unlock()
	return duration
}

// wake lets an idle loop sweep finished units
func (s *Service) wake() {
	s.mux.Lock()
	s.cond.Broadcast()
	s.mux.Unlock()
}

// release returns the unit memory to the allocator exactly once
func (s *Service) release(u *unit) error {
	u.release.Do(func() {
		if err := s.allocator.Release(u.task.Address); err != nil {
			u.releaseErr = fmt.Errorf("failed to release memory of process %d: %w", u.task.ID, err)
			s.log.WithError(err).WithField("pid", u.task.ID).Error("memory release failed")
		}
	})
	return u.releaseErr
}

func (s *Service) record(ctx context.Context, aTask *task.Task) {
	if s.history == nil {
		return
	}
	if err := s.history.Save(ctx, aTask); err != nil {
		s.log.WithError(err).WithField("pid", aTask.ID).Warn("failed to record task")
	}
}

// enqueue appends a lifecycle event to the outbox. Caller holds mux.
func (s *Service) enqueue(eventType event.Type, snapshot task.Snapshot) {
	if s.publisher == nil {
		return
	}
	s.outbox = append(s.outbox, notice{eventType: eventType, snapshot: snapshot})
}

// flush publishes the outbox in order. A blocking publish waits at most until
// Stop is requested; events that cannot be delivered are logged and dropped.
func (s *Service) flush() {
	if s.publisher == nil {
		return
	}
	s.flushMux.Lock()
	defer s.flushMux.Unlock()
	for {
		s.mux.Lock()
		pending := s.outbox
		s.outbox = nil
		ctx := s.publishCtx
		s.mux.Unlock()
		if len(pending) == 0 {
			return
		}
		for _, item := range pending {
			anEvent := event.NewEvent(&event.Context{RunID: s.runID, TaskID: item.snapshot.ID, EventType: item.eventType, Label: item.snapshot.Label}, item.snapshot)
			if err := s.publisher.Publish(ctx, anEvent); err != nil {
				s.log.WithError(err).WithFields(logrus.Fields{"event": item.eventType, "pid": item.snapshot.ID}).Warn("failed to publish event")
			}
		}
	}
}
