package stresstest

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRun(key string, startedAt time.Time) *Run {
	return &Run{
		RunKey:       key,
		ResponseSize: 8,
		RequestCount: 100,
		WorkerCount:  4,
		StartedAt:    startedAt,
		Status:       StatusRunning,
	}
}

func TestManager_CreateAndGetRun(t *testing.T) {
	manager := createTestManager(t)

	run := newTestRun("run-a", time.Now())
	require.NoError(t, manager.CreateRun(run))
	assert.NotZero(t, run.ID)

	got, err := manager.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, "run-a", got.RunKey)
	assert.Equal(t, 8, got.ResponseSize)
	assert.Equal(t, 100, got.RequestCount)
	assert.Equal(t, 4, got.WorkerCount)
	assert.Equal(t, StatusRunning, got.Status)
	assert.Nil(t, got.CompletedAt)
	assert.True(t, got.IsRunning())

	byKey, err := manager.GetRunByKey("run-a")
	require.NoError(t, err)
	assert.Equal(t, run.ID, byKey.ID)
}

func TestManager_DuplicateRunKey(t *testing.T) {
	manager := createTestManager(t)

	require.NoError(t, manager.CreateRun(newTestRun("dup", time.Now())))
	assert.Error(t, manager.CreateRun(newTestRun("dup", time.Now())))
}

func TestManager_UpdateRun(t *testing.T) {
	manager := createTestManager(t)

	run := newTestRun("run-b", time.Now())
	require.NoError(t, manager.CreateRun(run))

	completed := time.Now()
	run.CompletedAt = &completed
	run.Status = StatusAborted
	run.TotalGenerated = 60
	run.TotalProcessed = 58
	run.AvgDurationMs = 3
	run.MedianDurationMs = 2
	run.MinDurationMs = 0
	run.MaxDurationMs = 41
	require.NoError(t, manager.UpdateRun(run))

	got, err := manager.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAborted, got.Status)
	assert.Equal(t, 60, got.TotalGenerated)
	assert.Equal(t, 58, got.TotalProcessed)
	assert.Equal(t, int64(3), got.AvgDurationMs)
	assert.Equal(t, int64(41), got.MaxDurationMs)
	require.NotNil(t, got.CompletedAt)
	assert.False(t, got.IsRunning())
}

func TestManager_GetRunNotFound(t *testing.T) {
	manager := createTestManager(t)

	_, err := manager.GetRun(42)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestManager_ListRuns(t *testing.T) {
	manager := createTestManager(t)

	base := time.Now().Add(-time.Hour)
	for i, key := range []string{"oldest", "middle", "newest"} {
		require.NoError(t, manager.CreateRun(newTestRun(key, base.Add(time.Duration(i)*time.Minute))))
	}

	runs, err := manager.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "newest", runs[0].RunKey)
	assert.Equal(t, "oldest", runs[2].RunKey)

	limited, err := manager.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "middle", limited[1].RunKey)
}

func TestManager_Samples(t *testing.T) {
	manager := createTestManager(t)

	run := newTestRun("run-c", time.Now())
	require.NoError(t, manager.CreateRun(run))

	empty, err := manager.GetSamples(run.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NotNil(t, empty)

	// Spans more than one insert batch
	samples := make([]int64, sampleBatchSize+7)
	for i := range samples {
		samples[i] = int64(i / 100)
	}
	require.NoError(t, manager.SaveSamplesBatch(run.ID, samples))

	got, err := manager.GetSamples(run.ID)
	require.NoError(t, err)
	assert.Equal(t, samples, got)
}

func TestManager_DeleteRun(t *testing.T) {
	manager := createTestManager(t)

	run := newTestRun("run-d", time.Now())
	require.NoError(t, manager.CreateRun(run))
	require.NoError(t, manager.SaveSamplesBatch(run.ID, []int64{1, 2, 3}))

	require.NoError(t, manager.DeleteRun(run.ID))

	_, err := manager.GetRun(run.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	samples, err := manager.GetSamples(run.ID)
	require.NoError(t, err)
	assert.Empty(t, samples)

	assert.ErrorIs(t, manager.DeleteRun(run.ID), sql.ErrNoRows)
}
