package systems

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/spaghettifunk/reel/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobSystemValidation(t *testing.T) {
	_, err := NewJobSystem(0, 1)
	assert.ErrorIs(t, err, ErrNoWorkers)
	_, err = NewJobSystem(1, -1)
	assert.ErrorIs(t, err, ErrNegativeChannelSize)
}

func TestJobSystemRunsCallbacks(t *testing.T) {
	js, err := NewJobSystem(3, 2)
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		completed atomic.Int32
		failed    atomic.Int32
		sum       atomic.Int64
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		js.Submit(metadata.JobTask{
			InputParams: i,
			OnStart: func(params interface{}) (interface{}, error) {
				n := params.(int)
				if n%5 == 0 {
					return nil, errors.New("multiple of five")
				}
				return n * 2, nil
			},
			OnComplete: func(result interface{}) {
				completed.Add(1)
				sum.Add(int64(result.(int)))
			},
			OnFailure: func(error) {
				failed.Add(1)
			},
			OnCompletionCallback: wg.Done,
		})
	}
	wg.Wait()

	assert.Equal(t, int32(8), completed.Load())
	assert.Equal(t, int32(2), failed.Load())
	// 2 * (1+2+3+4+6+7+8+9)
	assert.Equal(t, int64(80), sum.Load())
	require.NoError(t, js.Shutdown())
	require.NoError(t, js.Shutdown())
}

func TestJobWithoutEntryPointFails(t *testing.T) {
	js, err := NewJobSystem(1, 0)
	require.NoError(t, err)

	done := make(chan error, 1)
	js.Submit(metadata.JobTask{OnFailure: func(err error) { done <- err }})
	assert.ErrorIs(t, <-done, ErrNoEntryPoint)
	require.NoError(t, js.Shutdown())
}
