package handler

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/devtlco1/E-Jibaya-sub000/core/logger"
	"github.com/devtlco1/E-Jibaya-sub000/core/notification"
)

// heartbeatInterval là chu kỳ gửi comment giữ kết nối SSE qua proxy
const heartbeatInterval = 15 * time.Second

// RecordStreamHandler đẩy thông báo thay đổi bản ghi xuống client qua SSE.
// Mỗi kết nối là một subscriber của notification.Hub; reconciler publish vào
// hub, handler chỉ lo serialize và flush.
type RecordStreamHandler struct {
	hub *notification.Hub
}

// NewRecordStreamHandler tạo mới RecordStreamHandler
func NewRecordStreamHandler(hub *notification.Hub) *RecordStreamHandler {
	return &RecordStreamHandler{hub: hub}
}

// HandleStream mở stream SSE cho client
func (h *RecordStreamHandler) HandleStream(c fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	// Tắt buffering của nginx để event đến client ngay
	c.Set("X-Accel-Buffering", "no")

	ch, cancel := h.hub.Subscribe()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		for {
			select {
			case n, ok := <-ch:
				if !ok {
					return
				}
				payload, err := json.Marshal(n)
				if err != nil {
					logger.WithModule("stream").WithError(err).Warn("Không serialize được thông báo")
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", n.EventType, payload)
				if err := w.Flush(); err != nil {
					// Client đã ngắt kết nối
					return
				}
			case <-heartbeat.C:
				fmt.Fprint(w, ": heartbeat\n\n")
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})

	return nil
}
