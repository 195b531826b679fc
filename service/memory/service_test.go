package memory

import (
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/simos/model/memory"
)

// fragmented returns an allocator laid out as [(0,100,F),(100,50,O),(150,200,F)]
func fragmented(t *testing.T) *Service {
	srv, err := New(350)
	require.NoError(t, err)
	for _, size := range []uint64{100, 50, 200} {
		_, err := srv.Allocate(size)
		require.NoError(t, err)
	}
	require.NoError(t, srv.Release(0))
	require.NoError(t, srv.Release(150))
	require.Equal(t, []memory.Region{
		{Start: 0, Size: 100, Free: true},
		{Start: 100, Size: 50, Free: false},
		{Start: 150, Size: 200, Free: true},
	}, srv.Regions())
	return srv
}

func assertTiled(t *testing.T, srv *Service) {
	t.Helper()
	regions := srv.Regions()
	require.NotEmpty(t, regions)
	var sum uint64
	assert.EqualValues(t, 0, regions[0].Start)
	for i, region := range regions {
		assert.NotZero(t, region.Size, "region %d", i)
		sum += region.Size
		if i == 0 {
			continue
		}
		prev := regions[i-1]
		assert.True(t, prev.Adjoins(region), "gap or overlap between %v and %v", prev, region)
		assert.False(t, prev.Free && region.Free, "uncoalesced free pair %v %v", prev, region)
	}
	assert.Equal(t, srv.Total(), sum)
	stats := srv.Stats()
	assert.Equal(t, stats.Total, stats.Used+stats.Free)
}

func TestNew(t *testing.T) {
	_, err := New(0)
	assert.True(t, errors.Is(err, ErrInvalidSize))

	srv, err := New(8192)
	require.NoError(t, err)
	assert.Equal(t, []memory.Region{{Start: 0, Size: 8192, Free: true}}, srv.Regions())
	assert.Equal(t, memory.Stats{Total: 8192, Free: 8192, Regions: 1, FreeRegions: 1, LargestFree: 8192}, srv.Stats())
}

func TestService_Allocate(t *testing.T) {
	testCases := []struct {
		name        string
		total       uint64
		sizes       []uint64
		expect      []uint64
		expectErr   error
		expectStats memory.Stats
	}{
		{
			name:        "first allocation starts at zero",
			total:       100,
			sizes:       []uint64{10},
			expect:      []uint64{0},
			expectStats: memory.Stats{Total: 100, Used: 10, Free: 90, Regions: 2, FreeRegions: 1, LargestFree: 90},
		},
		{
			name:        "consecutive allocations are contiguous",
			total:       100,
			sizes:       []uint64{10, 20, 30},
			expect:      []uint64{0, 10, 30},
			expectStats: memory.Stats{Total: 100, Used: 60, Free: 40, Regions: 4, FreeRegions: 1, LargestFree: 40},
		},
		{
			name:        "exact fit takes region in place",
			total:       100,
			sizes:       []uint64{100},
			expect:      []uint64{0},
			expectStats: memory.Stats{Total: 100, Used: 100, Regions: 1},
		},
		{
			name:        "zero size rejected",
			total:       100,
			sizes:       []uint64{0},
			expectErr:   ErrInvalidSize,
			expectStats: memory.Stats{Total: 100, Free: 100, Regions: 1, FreeRegions: 1, LargestFree: 100},
		},
		{
			name:        "larger than space",
			total:       100,
			sizes:       []uint64{101},
			expectErr:   ErrOutOfMemory,
			expectStats: memory.Stats{Total: 100, Free: 100, Regions: 1, FreeRegions: 1, LargestFree: 100},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv, err := New(tc.total)
			require.NoError(t, err)
			var actual []uint64
			for _, size := range tc.sizes {
				address, err := srv.Allocate(size)
				if tc.expectErr != nil {
					assert.True(t, errors.Is(err, tc.expectErr), "expected %v, got %v", tc.expectErr, err)
					continue
				}
				require.NoError(t, err)
				actual = append(actual, address)
			}
			assert.Equal(t, tc.expect, actual)
			assert.Equal(t, tc.expectStats, srv.Stats())
			assertTiled(t, srv)
		})
	}
}

func TestService_Allocate_FirstFit(t *testing.T) {
	srv := fragmented(t)
	address, err := srv.Allocate(80)
	require.NoError(t, err)
	assert.EqualValues(t, 0, address)
	assert.Equal(t, []memory.Region{
		{Start: 0, Size: 80, Free: false},
		{Start: 80, Size: 20, Free: true},
		{Start: 100, Size: 50, Free: false},
		{Start: 150, Size: 200, Free: true},
	}, srv.Regions())

	// a request not fitting the first hole skips to the next one
	address, err = srv.Allocate(30)
	require.NoError(t, err)
	assert.EqualValues(t, 150, address)
}

func TestService_Release_Coalesce(t *testing.T) {
	srv := fragmented(t)
	_, err := srv.Allocate(80)
	require.NoError(t, err)

	// 80 is not occupied: it is the free remainder
	assert.True(t, errors.Is(srv.Release(80), ErrInvalidAddress))

	require.NoError(t, srv.Release(0))
	assert.Equal(t, []memory.Region{
		{Start: 0, Size: 100, Free: true},
		{Start: 100, Size: 50, Free: false},
		{Start: 150, Size: 200, Free: true},
	}, srv.Regions())

	require.NoError(t, srv.Release(100))
	assert.Equal(t, []memory.Region{{Start: 0, Size: 350, Free: true}}, srv.Regions())
}

func TestService_Release_Neighbours(t *testing.T) {
	srv, err := New(100)
	require.NoError(t, err)
	for _, size := range []uint64{20, 20, 20, 20, 20} {
		_, err := srv.Allocate(size)
		require.NoError(t, err)
	}
	require.NoError(t, srv.Release(20))
	require.NoError(t, srv.Release(60))
	assert.Equal(t, 2, srv.Stats().FreeRegions)

	// freeing the middle block merges both neighbours into one hole
	require.NoError(t, srv.Release(40))
	assert.Equal(t, []memory.Region{
		{Start: 0, Size: 20, Free: false},
		{Start: 20, Size: 60, Free: true},
		{Start: 80, Size: 20, Free: false},
	}, srv.Regions())
}

func TestService_Release_DoubleFree(t *testing.T) {
	srv, err := New(100)
	require.NoError(t, err)
	address, err := srv.Allocate(40)
	require.NoError(t, err)
	_, err = srv.Allocate(40)
	require.NoError(t, err)

	require.NoError(t, srv.Release(address))
	before := srv.Regions()
	err = srv.Release(address)
	assert.True(t, errors.Is(err, ErrInvalidAddress))
	assert.Equal(t, before, srv.Regions())

	assert.True(t, errors.Is(srv.Release(7), ErrInvalidAddress))
	assert.True(t, errors.Is(srv.Release(1000), ErrInvalidAddress))
	assert.Equal(t, before, srv.Regions())
}

func TestService_Allocate_Exhaustion(t *testing.T) {
	srv, err := New(100)
	require.NoError(t, err)
	for _, size := range []uint64{10, 40, 10, 40} {
		_, err := srv.Allocate(size)
		require.NoError(t, err)
	}
	require.NoError(t, srv.Release(0))
	require.NoError(t, srv.Release(50))
	stats := srv.Stats()
	require.EqualValues(t, 20, stats.Free)
	require.EqualValues(t, 10, stats.LargestFree)

	before := srv.Regions()
	_, err = srv.Allocate(15)
	assert.True(t, errors.Is(err, ErrOutOfMemory))
	assert.Equal(t, before, srv.Regions())
}

func TestService_RandomSequence(t *testing.T) {
	srv, err := New(4096)
	require.NoError(t, err)
	rnd := rand.New(rand.NewSource(7))
	var live []uint64
	for i := 0; i < 2000; i++ {
		if len(live) > 0 && rnd.Intn(3) == 0 {
			idx := rnd.Intn(len(live))
			require.NoError(t, srv.Release(live[idx]))
			live = append(live[:idx], live[idx+1:]...)
		} else {
			address, err := srv.Allocate(uint64(rnd.Intn(256) + 1))
			if err != nil {
				require.True(t, errors.Is(err, ErrOutOfMemory))
			} else {
				live = append(live, address)
			}
		}
		if i%50 == 0 {
			assertTiled(t, srv)
		}
	}
	for _, address := range live {
		require.NoError(t, srv.Release(address))
	}
	assertTiled(t, srv)
	assert.Equal(t, []memory.Region{{Start: 0, Size: 4096, Free: true}}, srv.Regions())
}

func TestService_Concurrency(t *testing.T) {
	srv, err := New(1 << 16)
	require.NoError(t, err)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(seed))
			for j := 0; j < 200; j++ {
				address, err := srv.Allocate(uint64(rnd.Intn(64) + 1))
				if err != nil {
					continue
				}
				assert.NoError(t, srv.Release(address))
			}
		}(int64(i))
	}
	wg.Wait()
	assertTiled(t, srv)
	assert.EqualValues(t, 0, srv.Stats().Used)
}
