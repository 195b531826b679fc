package simos

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/viant/simos/internal/idgen"
	mmodel "github.com/viant/simos/model/memory"
	"github.com/viant/simos/model/task"
	"github.com/viant/simos/progress"
	"github.com/viant/simos/service/dao"
	tmemory "github.com/viant/simos/service/dao/task/memory"
	"github.com/viant/simos/service/event"
	"github.com/viant/simos/service/executor"
	"github.com/viant/simos/service/memory"
	"github.com/viant/simos/service/messaging"
	mmemory "github.com/viant/simos/service/messaging/memory"
	"github.com/viant/simos/service/scheduler"
	"github.com/viant/simos/tracing"
)

// Service owns the memory allocator and the scheduler reserving from it
type Service struct {
	config          *Config
	runID           string
	queue           messaging.Queue[event.Event[task.Snapshot]]
	publisher       *event.Publisher[task.Snapshot]
	handler         event.Handler[task.Snapshot]
	listener        *event.Listener[task.Snapshot]
	listenerMux     sync.Mutex
	listening       bool
	history         dao.Service[int, task.Task]
	executor        executor.Service
	executorOptions []executor.Option
	progress        *progress.Progress
	allocator       *memory.Service
	scheduler       *scheduler.Service
	log             *logrus.Entry
}

func (s *Service) init(options []Option) error {
	for _, option := range options {
		option(s)
	}
	if err := s.config.Validate(); err != nil {
		return err
	}
	s.ensureBaseSetup()
	if s.config.Tracing.Enabled {
		if err := tracing.Init(s.config.Tracing.Service, s.config.Tracing.Version, s.config.Tracing.Output); err != nil {
			s.log.WithError(err).Warn("failed to initialise tracing")
		}
	}

	var err error
	if s.allocator, err = memory.New(s.config.Memory.TotalSize, memory.WithLogger(s.log.WithField("type", "memory/allocator"))); err != nil {
		return err
	}
	s.scheduler, err = scheduler.New(s.allocator,
		scheduler.WithConfig(s.config.Scheduler),
		scheduler.WithExecutor(s.executor),
		scheduler.WithPublisher(s.publisher),
		scheduler.WithHistory(s.history),
		scheduler.WithProgress(s.progress),
		scheduler.WithRunID(s.runID),
		scheduler.WithLogger(s.log.WithField("type", "scheduler")))
	return err
}

func (s *Service) ensureBaseSetup() {
	if s.runID == "" {
		s.runID = idgen.NewRunID("simos")
	}
	s.log = s.log.WithField("run", s.runID)
	if s.queue == nil && s.handler != nil {
		s.queue = mmemory.NewQueue[event.Event[task.Snapshot]](s.config.Events)
	}
	if s.queue != nil {
		s.publisher = event.NewPublisher[task.Snapshot](s.queue)
	}
	if s.handler != nil {
		s.listener = event.NewListener(s.publisher, s.handler)
	}
	if s.history == nil {
		s.history = tmemory.New()
	}
	if s.executor == nil {
		options := append([]executor.Option{executor.WithConfig(s.config.Executor)}, s.executorOptions...)
		s.executor = executor.New(options...)
	}
	s.progress = progress.New(s.runID, func(p progress.Progress) {
		s.log.WithFields(logrus.Fields{
			"queued":    p.QueuedTasks,
			"running":   p.RunningTasks,
			"finished":  p.FinishedTasks,
			"rejected":  p.RejectedTasks,
			"cancelled": p.CancelledTasks,
		}).Debug("progress")
	})
}

// Config returns the effective configuration
func (s *Service) Config() *Config {
	return s.config
}

// RunID returns the identifier stamped on every event of this service
func (s *Service) RunID() string {
	return s.runID
}

// Allocator returns the memory allocator
func (s *Service) Allocator() *memory.Service {
	return s.allocator
}

// Scheduler returns the process scheduler
func (s *Service) Scheduler() *scheduler.Service {
	return s.scheduler
}

// Events returns the lifecycle event publisher; consume from it to observe
// tasks. It is nil unless an event queue or handler was configured.
func (s *Service) Events() *event.Publisher[task.Snapshot] {
	return s.publisher
}

// DeadLetters returns the number of events the handler failed to process
func (s *Service) DeadLetters() int {
	return s.publisher.DeadLetters()
}

// Progress returns the aggregated task counters
func (s *Service) Progress() progress.Progress {
	return s.progress.Snapshot()
}

// Stats returns the allocator usage counters
func (s *Service) Stats() mmodel.Stats {
	return s.allocator.Stats()
}

// Regions returns the current memory partition in address order
func (s *Service) Regions() []mmodel.Region {
	return s.allocator.Regions()
}

// Start launches the event listener, if any, and the dispatch loop
func (s *Service) Start(ctx context.Context) error {
	s.listenerMux.Lock()
	if s.listener != nil && !s.listening {
		s.listener.Start(context.WithoutCancel(ctx))
		s.listening = true
	}
	s.listenerMux.Unlock()
	return s.scheduler.Start(ctx)
}

// Stop stops the dispatch loop, reclaims all task memory, then stops the
// event listener
func (s *Service) Stop() error {
	err := s.scheduler.Stop()
	s.listenerMux.Lock()
	if s.listening {
		s.listener.Stop()
		s.listening = false
	}
	s.listenerMux.Unlock()
	return err
}

// CreateProcess admits a process reserving size units of memory
func (s *Service) CreateProcess(ctx context.Context, label string, size uint64) (int, error) {
	return s.scheduler.CreateProcess(ctx, label, size)
}

// TerminateProcess waits for a running process to complete and reclaims it
func (s *Service) TerminateProcess(ctx context.Context, pid int) error {
	return s.scheduler.TerminateProcess(ctx, pid)
}

// ListProcesses returns the ready queue and running table
func (s *Service) ListProcesses() scheduler.Snapshot {
	return s.scheduler.ListProcesses()
}

// Task returns the last recorded state of an admitted task
func (s *Service) Task(ctx context.Context, pid int) (*task.Task, error) {
	return s.scheduler.Task(ctx, pid)
}

// Tasks returns recorded tasks, optionally filtered by state parameters
func (s *Service) Tasks(ctx context.Context, parameters ...*dao.Parameter) ([]*task.Task, error) {
	return s.history.List(ctx, parameters...)
}

// RunWorkload admits every configured workload process in order. Rejected
// admissions do not stop the remaining ones; their errors are joined.
func (s *Service) RunWorkload(ctx context.Context) ([]int, error) {
	var pids []int
	var errs []error
	for _, process := range s.config.Workload {
		pid, err := s.scheduler.CreateProcess(ctx, process.Label, process.Size)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		pids = append(pids, pid)
	}
	if len(errs) > 0 {
		return pids, fmt.Errorf("%d of %d workload processes rejected: %w", len(errs), len(s.config.Workload), errors.Join(errs...))
	}
	return pids, nil
}

// New creates a service from the supplied options
func New(options ...Option) (*Service, error) {
	ret := &Service{
		config: DefaultConfig(),
		log:    logrus.StandardLogger().WithField("type", "simos"),
	}
	if err := ret.init(options); err != nil {
		return nil, err
	}
	return ret, nil
}
