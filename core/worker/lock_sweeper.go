package worker

import (
	"context"
	"time"

	"github.com/devtlco1/E-Jibaya-sub000/core/api/services"
	"github.com/devtlco1/E-Jibaya-sub000/core/global"
	"github.com/devtlco1/E-Jibaya-sub000/core/logger"
)

// LockSweeperWorker worker để tự động giải phóng các lease sửa bản ghi đã hết hạn
// Client offline giữa chừng không tự release được nên worker dọn thay
type LockSweeperWorker struct {
	lockService *services.RecordLockService
	interval    time.Duration // Khoảng thời gian giữa các lần quét
}

// NewLockSweeperWorker tạo mới LockSweeperWorker
// Interval đọc từ config (LOCK_SWEEP_INTERVAL_SECONDS), tối thiểu 10 giây
func NewLockSweeperWorker(lockService *services.RecordLockService) *LockSweeperWorker {
	interval := 1 * time.Minute
	if cfg := global.MongoDB_ServerConfig; cfg != nil && cfg.LockSweepIntervalSeconds > 0 {
		interval = time.Duration(cfg.LockSweepIntervalSeconds) * time.Second
	}
	if interval < 10*time.Second {
		interval = 10 * time.Second
	}

	return &LockSweeperWorker{
		lockService: lockService,
		interval:    interval,
	}
}

// Start bắt đầu background worker để release các lease hết hạn
// Worker chạy định kỳ theo interval cho tới khi context bị hủy
func (w *LockSweeperWorker) Start(ctx context.Context) {
	log := logger.GetAppLogger()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.WithFields(map[string]interface{}{
		"interval": w.interval.String(),
	}).Info("🔄 [LOCK_SWEEPER] Starting Lock Sweeper Worker...")

	for {
		select {
		case <-ctx.Done():
			log.Info("🔄 [LOCK_SWEEPER] Lock Sweeper Worker stopped")
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.WithFields(map[string]interface{}{
							"panic": r,
						}).Error("🔄 [LOCK_SWEEPER] Panic khi quét lease hết hạn, sẽ tiếp tục ở lần chạy tiếp theo")
					}
				}()

				releasedCount, err := w.lockService.ReleaseExpiredLocks(ctx)
				if err != nil {
					log.WithError(err).Error("🔄 [LOCK_SWEEPER] Failed to release expired locks")
					return
				}

				if releasedCount > 0 {
					log.WithFields(map[string]interface{}{
						"releasedCount": releasedCount,
					}).Info("🔄 [LOCK_SWEEPER] Released expired locks")
				}
				// releasedCount = 0 không log (giảm log noise)
			}()
		}
	}
}
