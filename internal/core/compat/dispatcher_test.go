package compat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-compat/internal/infrastructure/config"
)

func dispatchConfig(queueSize int) config.CompatConfig {
	return config.CompatConfig{
		DispatchWorkers:   1,
		DispatchQueueSize: queueSize,
		DispatchTimeout:   time.Second,
	}
}

func TestDispatcherFansOutToRecorders(t *testing.T) {
	first, second := newRecordingRecorder(), newRecordingRecorder()
	d := NewDispatcher(dispatchConfig(4), nil, first, second)
	d.Start()

	assert.True(t, d.Dispatch("r1", "ar"))
	require.NoError(t, d.Close(context.Background()))

	for _, rec := range []*recordingRecorder{first, second} {
		lang, ok := rec.get("r1")
		assert.True(t, ok)
		assert.Equal(t, "ar", lang)
	}
	assert.Equal(t, int64(1), d.Status().ProcessedCount)
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	rec := newRecordingRecorder()
	metrics := NewMetrics()
	d := NewDispatcher(dispatchConfig(1), metrics, rec)

	// 尚未啟動 worker，佇列只容納一筆
	assert.True(t, d.Dispatch("r1", "en"))
	assert.False(t, d.Dispatch("r2", "en"))

	status := d.Status()
	assert.Equal(t, 1, status.QueueLength)
	assert.Equal(t, int64(1), status.DroppedCount)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.dispatchDropped))

	d.Start()
	require.NoError(t, d.Close(context.Background()))

	_, ok := rec.get("r1")
	assert.True(t, ok, "queued work is drained on close")
	_, ok = rec.get("r2")
	assert.False(t, ok)
}

func TestDispatcherSwallowsRecorderErrors(t *testing.T) {
	failing := newRecordingRecorder()
	failing.err = errors.New("upstream down")
	healthy := newRecordingRecorder()
	metrics := NewMetrics()

	d := NewDispatcher(dispatchConfig(4), metrics, failing, healthy)
	d.Start()
	assert.True(t, d.Dispatch("r1", "fr"))
	require.NoError(t, d.Close(context.Background()))

	_, ok := healthy.get("r1")
	assert.True(t, ok)
	assert.Equal(t, int64(1), d.Status().FailedCount)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.dispatchFailed))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.dispatchProcessed))
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	d := NewDispatcher(dispatchConfig(4), nil, newRecordingRecorder())
	d.Start()
	require.NoError(t, d.Close(context.Background()))
	require.NoError(t, d.Close(context.Background()))

	assert.False(t, d.Dispatch("r1", "en"))
	assert.Equal(t, int64(1), d.Status().DroppedCount)
}

func TestDispatcherWithoutRecordersOrReceiver(t *testing.T) {
	var nilDispatcher *Dispatcher
	assert.False(t, nilDispatcher.Dispatch("r1", "en"))

	d := NewDispatcher(dispatchConfig(4), nil)
	assert.False(t, d.Dispatch("r1", "en"))
	assert.Zero(t, d.Status().DroppedCount)
}
