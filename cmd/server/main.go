package main

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v3"

	models "github.com/devtlco1/E-Jibaya-sub000/core/api/models/mongodb"
	"github.com/devtlco1/E-Jibaya-sub000/core/api/services"
	"github.com/devtlco1/E-Jibaya-sub000/core/global"
	"github.com/devtlco1/E-Jibaya-sub000/core/logger"
	"github.com/devtlco1/E-Jibaya-sub000/core/notification"
	"github.com/devtlco1/E-Jibaya-sub000/core/reconcile"
	"github.com/devtlco1/E-Jibaya-sub000/core/worker"
)

// initLogger khởi tạo và cấu hình logger cho toàn bộ ứng dụng
func initLogger() {
	// Logger tự đọc environment variables để cấu hình
	if err := logger.Init(nil); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	log := logger.GetAppLogger()
	log.Info("Logger system initialized successfully")
}

// initReconciler nối reconciler với notification hub: mỗi phản ứng của
// reconciler trở thành một thông báo đẩy xuống các client SSE đang mở.
func initReconciler(recordService *services.RecordService, hub *notification.Hub) *reconcile.Reconciler {
	return reconcile.NewReconciler(recordService, reconcile.Callbacks{
		OnRefresh: func(reason string) {
			hub.Publish(notification.NewViewRefresh(reason))
		},
		OnNewRecord: func(record models.Record) {
			hub.Publish(notification.NewRecordCreated(record))
		},
		OnRecordUpdated: func(record models.Record) {
			hub.Publish(notification.NewRecordUpdated(record))
		},
		OnChannelError: func(err error) {
			hub.Publish(notification.NewChannelError(err))
		},
	})
}

// main_thread khởi tạo và chạy Fiber server
func main_thread(hub *notification.Hub) {
	app := InitFiberApp(hub)

	cfg := global.MongoDB_ServerConfig
	address := ":" + cfg.Address

	log := logger.GetAppLogger()
	log.WithFields(map[string]interface{}{
		"address":  address,
		"protocol": "HTTP",
	}).Info("Starting Fiber server...")

	if err := app.Listen(address, fiber.ListenConfig{}); err != nil {
		log.Fatalf("Error in Fiber Listen: %v", err)
	}
}

// Hàm main
func main() {
	// Khởi tạo logger
	initLogger()

	// Khởi tạo các biến toàn cục
	InitGlobal()

	// Khởi tạo registry
	InitRegistry()

	// Khởi tạo dữ liệu mặc định
	InitDefaultData()

	log := logger.GetAppLogger()

	recordService, err := services.NewRecordService()
	if err != nil {
		log.Fatalf("Failed to create record service: %v", err)
	}

	// Hub phát thông báo realtime cho các client SSE
	hub := notification.NewHub(64)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Reconciler hợp nhất push event và poll đếm thành luồng thông báo
	rec := initReconciler(recordService, hub)
	rec.Start(ctx)
	defer rec.Close()

	// Worker dọn lease sửa bản ghi đã hết hạn, chạy nền với recover
	lockService := services.NewRecordLockService(recordService)
	sweeper := worker.NewLockSweeperWorker(lockService)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(map[string]interface{}{
					"panic": r,
				}).Error("🔄 [LOCK_SWEEPER] Worker goroutine panic")
			}
		}()

		log.Info("🔄 [LOCK_SWEEPER] Starting lock sweeper worker...")
		sweeper.Start(ctx)
		log.Warn("🔄 [LOCK_SWEEPER] Worker đã dừng (có thể do context cancelled)")
	}()

	// Chạy Fiber server trên main thread
	main_thread(hub)
}
