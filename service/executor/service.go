package executor

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/viant/simos/model/task"
	"github.com/viant/simos/progress"
)

// Config represents execution simulation settings
type Config struct {
	// MinDuration and MaxDuration bound the uniformly sampled run time
	MinDuration time.Duration `yaml:"minDuration"`
	MaxDuration time.Duration `yaml:"maxDuration"`
	// Heartbeat is the liveness report interval; zero disables reports
	Heartbeat time.Duration `yaml:"heartbeat"`
}

// DefaultConfig returns the default run time range of 1-5s with a 1s heartbeat
func DefaultConfig() Config {
	return Config{
		MinDuration: time.Second,
		MaxDuration: 5 * time.Second,
		Heartbeat:   time.Second,
	}
}

// Listener is invoked on every heartbeat with the elapsed run time
type Listener func(aTask *task.Task, elapsed time.Duration)

// Service runs a single task to completion and returns how long it ran.
type Service interface {
	Execute(ctx context.Context, aTask *task.Task) (time.Duration, error)
}

// Option is used to customise the executor instance.
type Option func(*service)

// WithConfig sets the duration range and heartbeat
func WithConfig(config Config) Option {
	return func(s *service) {
		s.config = config
	}
}

// WithListener registers a heartbeat callback
func WithListener(l Listener) Option {
	return func(s *service) {
		s.listener = l
	}
}

// WithSeed makes sampled durations reproducible
func WithSeed(seed int64) Option {
	return func(s *service) {
		s.rnd = rand.New(rand.NewSource(seed))
	}
}

// WithLogger sets the logger entry used for liveness reports
func WithLogger(log *logrus.Entry) Option {
	return func(s *service) {
		if log != nil {
			s.log = log
		}
	}
}

type service struct {
	config   Config
	listener Listener
	rnd      *rand.Rand
	rndMux   sync.Mutex
	log      *logrus.Entry
}

// Execute blocks for the sampled duration. Cancelling ctx does not interrupt
// the run: tasks always complete naturally. Heartbeats are counted on the
// progress tracker carried by ctx, if any.
func (s *service) Execute(ctx context.Context, aTask *task.Task) (time.Duration, error) {
	duration := s.sample()
	log := s.log.WithFields(logrus.Fields{"pid": aTask.ID, "label": aTask.Label})
	log.WithField("duration", duration).Debug("task started")

	started := time.Now()
	timer := time.NewTimer(duration)
	defer timer.Stop()
	var heartbeat <-chan time.Time
	if s.config.Heartbeat > 0 {
		ticker := time.NewTicker(s.config.Heartbeat)
		defer ticker.Stop()
		heartbeat = ticker.C
	}
	for {
		select {
		case <-timer.C:
			log.WithField("duration", duration).Debug("task completed")
			return duration, nil
		case <-heartbeat:
			elapsed := time.Since(started)
			log.WithFields(logrus.Fields{"address": aTask.Address, "elapsed": elapsed}).Debug("task working")
			progress.UpdateCtx(ctx, progress.Delta{Heartbeats: 1})
			if s.listener != nil {
				s.listener(aTask, elapsed)
			}
		}
	}
}

func (s *service) sample() time.Duration {
	lo, hi := s.config.MinDuration, s.config.MaxDuration
	if hi <= lo {
		return lo
	}
	s.rndMux.Lock()
	defer s.rndMux.Unlock()
	return lo + time.Duration(s.rnd.Int63n(int64(hi-lo)+1))
}

// New creates an executor
func New(options ...Option) Service {
	ret := &service{
		config: DefaultConfig(),
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		log:    logrus.StandardLogger().WithField("type", "executor"),
	}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

// Fixed returns an executor that always runs for the given duration
func Fixed(duration time.Duration, options ...Option) Service {
	options = append(options, WithConfig(Config{MinDuration: duration, MaxDuration: duration}))
	return New(options...)
}
