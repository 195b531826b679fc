package simos

import (
	"github.com/viant/simos/model/task"
	"github.com/viant/simos/service/dao"
	"github.com/viant/simos/service/event"
	"github.com/viant/simos/service/executor"
	"github.com/viant/simos/service/messaging"
	"github.com/viant/simos/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises the Service
type Option func(s *Service)

// WithConfig sets the configuration; nil keeps the defaults
func WithConfig(config *Config) Option {
	return func(s *Service) {
		if config != nil {
			s.config = config
		}
	}
}

// WithEventHandler enables lifecycle events and delivers each of them to
// handler on a listener goroutine running between Start and Stop. A handler
// error or panic nacks the event for redelivery.
func WithEventHandler(handler event.Handler[task.Snapshot]) Option {
	return func(s *Service) {
		s.handler = handler
	}
}

// WithQueue enables lifecycle events on the supplied queue
func WithQueue(queue messaging.Queue[event.Event[task.Snapshot]]) Option {
	return func(s *Service) {
		s.queue = queue
	}
}

// WithHistory sets the task history DAO
func WithHistory(history dao.Service[int, task.Task]) Option {
	return func(s *Service) {
		s.history = history
	}
}

// WithExecutor replaces the simulated execution unit
func WithExecutor(executor executor.Service) Option {
	return func(s *Service) {
		s.executor = executor
	}
}

// WithExecutorOptions lets the caller supply additional options passed to
// executor.New, for example a heartbeat listener.
func WithExecutorOptions(opts ...executor.Option) Option {
	return func(s *Service) {
		s.executorOptions = append(s.executorOptions, opts...)
	}
}

// WithRunID sets the identifier stamped on every event
func WithRunID(runID string) Option {
	return func(s *Service) {
		s.runID = runID
	}
}

// WithTracing configures OpenTelemetry tracing for the service. If outputFile is empty the
// stdout exporter is used; otherwise traces are written to the supplied file path.
// The first successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		if err := tracing.Init(serviceName, serviceVersion, outputFile); err != nil {
			s.log.WithError(err).Warn("failed to initialise tracing")
		}
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom SpanExporter.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		if err := tracing.InitWithExporter(serviceName, serviceVersion, exporter); err != nil {
			s.log.WithError(err).Warn("failed to initialise tracing")
		}
	}
}
