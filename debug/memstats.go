package debug

// Periodic runtime metrics logger enabled when config.Debug is true.
// Emits goroutine count, heap and stack usage at a fixed interval, to help
// spot leaks in long capture sessions.

import (
	"log/slog"
	"runtime"
	"runtime/metrics"
	"time"
)

// StartMemLogger launches a goroutine that logs runtime stats every interval.
// It is lightweight; disable by running without the debug flag.
func StartMemLogger(interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		samples := []metrics.Sample{{Name: "/sched/goroutines:goroutines"}}
		for range t.C {
			metrics.Read(samples)
			goroutines := samples[0].Value.Uint64()
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			logger.Info("memstats",
				slog.Uint64("goroutines", goroutines),
				slog.Uint64("heap_alloc", ms.HeapAlloc),
				slog.Uint64("heap_inuse", ms.HeapInuse),
				slog.Uint64("stack_inuse", uint64(ms.StackInuse)),
				slog.Uint64("num_gc", uint64(ms.NumGC)),
			)
		}
	}()
}
