package memory

import "fmt"

// Region represents a contiguous sub-range of the managed address space
type Region struct {
	Start uint64 `json:"start" yaml:"start"`
	Size  uint64 `json:"size" yaml:"size"`
	Free  bool   `json:"free" yaml:"free"`
}

// End returns the first address past the region
func (r Region) End() uint64 {
	return r.Start + r.Size
}

// Adjoins returns true if next starts exactly where r ends
func (r Region) Adjoins(next Region) bool {
	return r.End() == next.Start
}

func (r Region) String() string {
	state := "occupied"
	if r.Free {
		state = "free"
	}
	return fmt.Sprintf("[%d,%d) %s", r.Start, r.End(), state)
}

// Stats represents aggregated usage of the address space
type Stats struct {
	Total       uint64 `json:"total"`
	Used        uint64 `json:"used"`
	Free        uint64 `json:"free"`
	Regions     int    `json:"regions"`
	FreeRegions int    `json:"freeRegions"`
	LargestFree uint64 `json:"largestFree"`
}
