package notification

import (
	"sync"

	"github.com/devtlco1/E-Jibaya-sub000/core/logger"
)

// Hub fan-out thông báo tới các subscriber (mỗi kết nối SSE là một subscriber).
// Channel của subscriber có buffer; subscriber đọc chậm bị drop thông báo thay
// vì block publisher.
type Hub struct {
	mu          sync.Mutex
	subscribers map[int]chan Notification
	nextID      int
	bufferSize  int
}

// NewHub tạo hub với buffer mỗi subscriber
func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = 32
	}
	return &Hub{
		subscribers: make(map[int]chan Notification),
		bufferSize:  bufferSize,
	}
}

// Subscribe đăng ký một subscriber mới, trả về channel nhận thông báo và hàm
// hủy đăng ký. Hàm hủy đóng channel, gọi nhiều lần vô hại.
func (h *Hub) Subscribe() (<-chan Notification, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Notification, h.bufferSize)
	h.subscribers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subscribers, id)
			close(ch)
		})
	}

	return ch, cancel
}

// Publish gửi thông báo tới mọi subscriber, không block
func (h *Hub) Publish(n Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subscribers {
		select {
		case ch <- n:
		default:
			// Subscriber đầy buffer: drop, client sẽ bắt kịp qua poll/refetch
			logger.WithModule("notification").WithFields(map[string]interface{}{
				"subscriber": id,
				"event_type": n.EventType,
			}).Warn("Subscriber chậm, drop thông báo")
		}
	}
}

// Count trả về số subscriber đang mở
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}
