package pkg

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSpillAppendAndRange(t *testing.T) {
	spill, err := NewSpill[string]()
	require.NoError(t, err)
	defer spill.Close()

	require.NoError(t, spill.Append("first"))
	require.NoError(t, spill.AppendBatch([]string{"second", "third"}))
	require.Equal(t, uint64(3), spill.Len())

	var got []string

	require.NoError(t, spill.Range(func(_ uint64, item string) error {
		got = append(got, item)
		return nil
	}))

	require.Equal(t, []string{"first", "second", "third"}, got)
}

func TestSpillRangeCallbackError(t *testing.T) {
	spill, err := NewSpill[int]()
	require.NoError(t, err)
	defer spill.Close()

	require.NoError(t, spill.AppendBatch([]int{1, 2, 3}))

	boom := errors.New("stop")

	err = spill.Range(func(index uint64, _ int) error {
		if index == 1 {
			return boom
		}

		return nil
	})

	require.ErrorIs(t, err, boom)
}

func TestSpillConcurrentAppend(t *testing.T) {
	spill, err := NewSpill[int]()
	require.NoError(t, err)
	defer spill.Close()

	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := 0; j < 25; j++ {
				_ = spill.Append(j)
			}
		}()
	}

	wg.Wait()

	require.Equal(t, uint64(200), spill.Len())
}

func TestSpillCloseIsIdempotent(t *testing.T) {
	spill, err := NewSpill[int]()
	require.NoError(t, err)

	require.NoError(t, spill.Close())
	require.NoError(t, spill.Close())
}

func TestSpillEmptyRange(t *testing.T) {
	spill, err := NewSpill[struct{ A int }]()
	require.NoError(t, err)
	defer spill.Close()

	calls := 0

	require.NoError(t, spill.Range(func(uint64, struct{ A int }) error {
		calls++
		return nil
	}))

	require.Zero(t, calls)
}
