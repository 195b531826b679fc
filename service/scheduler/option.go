package scheduler

import (
	"github.com/sirupsen/logrus"
	"github.com/viant/simos/model/task"
	"github.com/viant/simos/progress"
	"github.com/viant/simos/service/dao"
	"github.com/viant/simos/service/event"
	"github.com/viant/simos/service/executor"
)

// Option customises the scheduler
type Option func(*Service)

// WithConfig sets the scheduler configuration
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithExecutor sets the execution unit implementation
func WithExecutor(executor executor.Service) Option {
	return func(s *Service) {
		s.executor = executor
	}
}

// WithPublisher sets the lifecycle event publisher
func WithPublisher(publisher *event.Publisher[task.Snapshot]) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// WithHistory sets the store keeping the last known state of every task
func WithHistory(history dao.Service[int, task.Task]) Option {
	return func(s *Service) {
		s.history = history
	}
}

// WithProgress sets the counters tracker
func WithProgress(tracker *progress.Progress) Option {
	return func(s *Service) {
		s.progress = tracker
	}
}

// WithRunID sets the identifier stamped on published events
func WithRunID(runID string) Option {
	return func(s *Service) {
		s.runID = runID
	}
}

// WithLogger sets the logger entry
func WithLogger(log *logrus.Entry) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}
