package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/viant/simos/model/memory"
)

// Service partitions the address range [0, total) into regions.
// The regions slice is an arena ordered by Start; splitting and merging are
// insert/erase on it so the ordering invariant holds structurally.
type Service struct {
	total   uint64
	regions []memory.Region
	mux     sync.Mutex
	log     *logrus.Entry
}

// New creates an allocator managing total units, initially one free region
func New(total uint64, options ...Option) (*Service, error) {
	if total == 0 {
		return nil, fmt.Errorf("%w: address space cannot be empty", ErrInvalidSize)
	}
	s := &Service{
		total:   total,
		regions: []memory.Region{{Start: 0, Size: total, Free: true}},
		log:     logrus.StandardLogger().WithField("type", "memory/allocator"),
	}
	for _, opt := range options {
		opt(s)
	}
	s.log.WithField("total", total).Debug("address space initialised")
	return s, nil
}

// Total returns the size of the managed address space
func (s *Service) Total() uint64 {
	return s.total
}

// Allocate reserves size units using first-fit and returns the start address.
// Address 0 is a valid result; failure is reported only through the error.
func (s *Service) Allocate(size uint64) (uint64, error) {
	if size == 0 {
		return 0, fmt.Errorf("%w: cannot allocate 0 units", ErrInvalidSize)
	}
	s.mux.Lock()
	defer s.mux.Unlock()

	for i := range s.regions {
		region := &s.regions[i]
		if !region.Free || region.Size < size {
			continue
		}
		address := region.Start
		if region.Size > size {
			remainder := memory.Region{Start: region.Start + size, Size: region.Size - size, Free: true}
			region.Size = size
			s.regions = append(s.regions, memory.Region{})
			copy(s.regions[i+2:], s.regions[i+1:])
			s.regions[i+1] = remainder
		}
		s.regions[i].Free = false
		s.log.WithFields(logrus.Fields{"size": size, "address": address}).Debug("allocated")
		return address, nil
	}
	s.log.WithField("size", size).Debug("allocation failed, no region large enough")
	return 0, fmt.Errorf("%w: no free region of %d units", ErrOutOfMemory, size)
}

// Release frees the occupied region starting at address and coalesces
func (s *Service) Release(address uint64) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	for i := range s.regions {
		region := &s.regions[i]
		if region.Start != address || region.Free {
			continue
		}
		region.Free = true
		s.log.WithFields(logrus.Fields{"size": region.Size, "address": address}).Debug("released")
		s.coalesce()
		return nil
	}
	return fmt.Errorf("%w: no occupied region at %d", ErrInvalidAddress, address)
}

// coalesce merges every run of adjacent free regions. Caller holds the lock.
func (s *Service) coalesce() {
	if !sort.SliceIsSorted(s.regions, s.less) {
		sort.Slice(s.regions, s.less)
	}
	merged := s.regions[:1]
	for _, next := range s.regions[1:] {
		last := &merged[len(merged)-1]
		if last.Free && next.Free && last.Adjoins(next) {
			last.Size += next.Size
			continue
		}
		merged = append(merged, next)
	}
	s.regions = merged
}

func (s *Service) less(i, j int) bool {
	return s.regions[i].Start < s.regions[j].Start
}

// Stats returns usage counters; Used+Free always equals Total
func (s *Service) Stats() memory.Stats {
	s.mux.Lock()
	defer s.mux.Unlock()
	ret := memory.Stats{Total: s.total, Regions: len(s.regions)}
	for _, region := range s.regions {
		if !region.Free {
			ret.Used += region.Size
			continue
		}
		ret.Free += region.Size
		ret.FreeRegions++
		if region.Size > ret.LargestFree {
			ret.LargestFree = region.Size
		}
	}
	return ret
}

// Regions returns a copy of the partition in address order
func (s *Service) Regions() []memory.Region {
	s.mux.Lock()
	defer s.mux.Unlock()
	return append([]memory.Region(nil), s.regions...)
}
