package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func drain(t *testing.T, task *UploadTask) []int {
	t.Helper()
	var got []int
	for p := range task.Progress() {
		got = append(got, p)
	}
	return got
}

func TestUploadTask_MonotonicAndEndsAt100(t *testing.T) {
	task := NewUploadTask()
	task.Report(0)
	task.Report(30)
	task.Report(20) // stale
	task.Report(30) // duplicate
	task.Report(150)
	task.Finish("http://store/x", nil)

	got := drain(t, task)
	assert.Equal(t, []int{0, 30, 100}, got)

	url, err := task.Wait()
	require.NoError(t, err)
	assert.Equal(t, "http://store/x", url)
}

func TestUploadTask_FailureKeepsLastProgress(t *testing.T) {
	task := NewUploadTask()
	task.Report(40)
	task.Finish("", errors.New("boom"))

	assert.Equal(t, []int{40}, drain(t, task))

	_, err := task.Wait()
	assert.EqualError(t, err, "boom")
}

func TestUploadTask_NeverBlocksProducer(t *testing.T) {
	task := NewUploadTask()
	for i := 0; i <= 100; i++ {
		task.Report(i)
	}
	task.Finish("u", nil)

	got := drain(t, task)
	require.NotEmpty(t, got)
	assert.Equal(t, 100, got[len(got)-1])
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i], got[i-1])
	}
}

func TestUploadTask_FinishIsIdempotent(t *testing.T) {
	task := NewUploadTask()
	task.Finish("first", nil)
	task.Finish("second", errors.New("ignored"))
	task.Report(10)

	url, err := task.Wait()
	require.NoError(t, err)
	assert.Equal(t, "first", url)
}

func TestProgressReader_ReportsPercentOfTotal(t *testing.T) {
	defer goleak.VerifyNone(t)

	task := NewUploadTask()
	pr := &progressReader{task: task, total: 200}

	n, err := pr.Read(make([]byte, 50))
	require.NoError(t, err)
	assert.Equal(t, 50, n)
	_, _ = pr.Read(make([]byte, 50))
	_, _ = pr.Read(make([]byte, 300)) // retried parts overshoot; clamped
	task.Finish("u", nil)

	assert.Equal(t, []int{25, 50, 100}, drain(t, task))
}
