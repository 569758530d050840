package compat

import (
	"context"
	"sync"
	"sync/atomic"

	"recipe-compat/internal/infrastructure/config"
	"recipe-compat/internal/pkg/common"

	"go.uber.org/zap"
)

// LanguageRecorder 保存食譜偵測到的語言
type LanguageRecorder interface {
	RecordLanguage(ctx context.Context, recipeID, language string) error
}

// languageTask 待寫入的偵測結果
type languageTask struct {
	recipeID string
	language string
}

// DispatchStatus 派送佇列狀態
type DispatchStatus struct {
	QueueLength    int   `json:"queue_length"`
	MaxQueueSize   int   `json:"max_queue_size"`
	Workers        int   `json:"workers"`
	ProcessedCount int64 `json:"processed_count"`
	DroppedCount   int64 `json:"dropped_count"`
	FailedCount    int64 `json:"failed_count"`
}

// Dispatcher 非同步寫回偵測語言。Dispatch 不會阻塞，佇列已滿時直接丟棄，
// 寫入錯誤只記錄日誌
type Dispatcher struct {
	config    config.CompatConfig
	recorders []LanguageRecorder
	metrics   *Metrics
	queue     chan languageTask
	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
	processed int64
	dropped   int64
	failed    int64
}

// NewDispatcher 創建派送器，需呼叫 Start 啟動 worker
func NewDispatcher(cfg config.CompatConfig, metrics *Metrics, recorders ...LanguageRecorder) *Dispatcher {
	size := cfg.DispatchQueueSize
	if size <= 0 {
		size = 1
	}
	return &Dispatcher{
		config:    cfg,
		recorders: recorders,
		metrics:   metrics,
		queue:     make(chan languageTask, size),
		done:      make(chan struct{}),
	}
}

// Start 啟動 worker
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		workers := d.config.DispatchWorkers
		if workers <= 0 {
			workers = 1
		}
		for i := 0; i < workers; i++ {
			d.wg.Add(1)
			go d.worker()
		}
		common.LogInfo("Language dispatcher started",
			zap.Int("workers", workers),
			zap.Int("max_queue_size", cap(d.queue)),
		)
	})
}

// Dispatch 將偵測結果加入佇列，回傳是否成功加入
func (d *Dispatcher) Dispatch(recipeID, language string) bool {
	if d == nil || len(d.recorders) == 0 {
		return false
	}

	select {
	case <-d.done:
		d.drop(recipeID, "closed")
		return false
	default:
	}

	select {
	case d.queue <- languageTask{recipeID: recipeID, language: language}:
		return true
	default:
		d.drop(recipeID, "full")
		return false
	}
}

func (d *Dispatcher) drop(recipeID, reason string) {
	atomic.AddInt64(&d.dropped, 1)
	d.metrics.dispatchDrop()
	common.LogWarn("Language persistence dropped",
		zap.String("recipe_id", recipeID),
		zap.String("reason", reason),
	)
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case task := <-d.queue:
			d.process(task)
		case <-d.done:
			// 關閉前處理剩餘項目
			for {
				select {
				case task := <-d.queue:
					d.process(task)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) process(task languageTask) {
	for _, r := range d.recorders {
		ctx, cancel := d.taskContext()
		err := r.RecordLanguage(ctx, task.recipeID, task.language)
		cancel()
		if err != nil {
			atomic.AddInt64(&d.failed, 1)
			d.metrics.dispatchFailure()
			common.LogWarn("Failed to persist detected language",
				zap.String("recipe_id", task.recipeID),
				zap.String("language", task.language),
				zap.Error(err),
			)
		}
	}
	atomic.AddInt64(&d.processed, 1)
	d.metrics.dispatchDone()
}

func (d *Dispatcher) taskContext() (context.Context, context.CancelFunc) {
	if d.config.DispatchTimeout > 0 {
		return context.WithTimeout(context.Background(), d.config.DispatchTimeout)
	}
	return context.WithCancel(context.Background())
}

// Status 取得佇列狀態
func (d *Dispatcher) Status() DispatchStatus {
	return DispatchStatus{
		QueueLength:    len(d.queue),
		MaxQueueSize:   cap(d.queue),
		Workers:        d.config.DispatchWorkers,
		ProcessedCount: atomic.LoadInt64(&d.processed),
		DroppedCount:   atomic.LoadInt64(&d.dropped),
		FailedCount:    atomic.LoadInt64(&d.failed),
	}
}

// Close 停止接收新項目，等待 worker 處理完佇列或直到 ctx 結束
func (d *Dispatcher) Close(ctx context.Context) error {
	d.closeOnce.Do(func() { close(d.done) })

	finished := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
