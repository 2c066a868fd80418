package orchestrate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

func runLogWriter(lines <-chan string) {
	for s := range lines {
		fmt.Println(s)
	}
}

// runHeartbeat periodically reports batch progress while workers run.
func runHeartbeat(ctx context.Context, interval time.Duration, totalFiles int, mu *sync.Mutex, done *int, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mu.Lock()
			d := *done
			mu.Unlock()
			logger.Info("heartbeat", "done", d, "total", totalFiles)
		}
	}
}
