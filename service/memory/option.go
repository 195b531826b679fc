package memory

import "github.com/sirupsen/logrus"

// Option customises the allocator
type Option func(*Service)

// WithLogger sets the logger entry used for allocation traces
func WithLogger(log *logrus.Entry) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}
