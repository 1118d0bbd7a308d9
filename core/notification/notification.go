// Package notification chuyển các sự kiện của reconciler thành thông báo
// user-facing và fan-out tới các client đang mở stream SSE.
package notification

import (
	"fmt"
	"time"

	models "github.com/devtlco1/E-Jibaya-sub000/core/api/models/mongodb"
)

// Các loại event hiển thị cho người dùng
const (
	EventRecordCreated = "record_created"
	EventRecordUpdated = "record_updated"
	EventRecordDeleted = "record_deleted"
	EventViewRefresh   = "view_refresh"
	EventChannelError  = "channel_error"
)

// Các mức độ nghiêm trọng
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
	SeverityInfo     = "info"
)

// Notification là một thông báo gửi xuống client qua SSE
type Notification struct {
	EventType string `json:"eventType"`
	Severity  string `json:"severity"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	RecordID  string `json:"recordId,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// GetSeverityFromEventType infer severity từ eventType
func GetSeverityFromEventType(eventType string) string {
	switch eventType {
	case EventChannelError:
		return SeverityHigh
	case EventRecordDeleted:
		return SeverityMedium
	case EventRecordCreated, EventRecordUpdated:
		return SeverityInfo
	default:
		return SeverityLow
	}
}

func newNotification(eventType, title, message, recordID string) Notification {
	return Notification{
		EventType: eventType,
		Severity:  GetSeverityFromEventType(eventType),
		Title:     title,
		Message:   message,
		RecordID:  recordID,
		Timestamp: time.Now().UnixMilli(),
	}
}

// NewRecordCreated tạo thông báo có bản ghi mới trong view
func NewRecordCreated(record models.Record) Notification {
	return newNotification(
		EventRecordCreated,
		"Có bản ghi mới",
		fmt.Sprintf("Thuê bao %s (số tài khoản %s) vừa được thu thập", record.SubscriberName, record.AccountNumber),
		record.ID.Hex(),
	)
}

// NewRecordUpdated tạo thông báo bản ghi trong view bị sửa
func NewRecordUpdated(record models.Record) Notification {
	return newNotification(
		EventRecordUpdated,
		"Bản ghi đã cập nhật",
		fmt.Sprintf("Bản ghi của thuê bao %s vừa được cập nhật", record.SubscriberName),
		record.ID.Hex(),
	)
}

// NewViewRefresh tạo thông báo view cần refetch (client tự gọi lại API trang)
func NewViewRefresh(reason string) Notification {
	return newNotification(
		EventViewRefresh,
		"Dữ liệu đã thay đổi",
		reason,
		"",
	)
}

// NewChannelError tạo thông báo kênh realtime gặp lỗi
func NewChannelError(err error) Notification {
	message := "Kênh realtime gặp lỗi, dữ liệu sẽ cập nhật chậm hơn"
	if err != nil {
		message = fmt.Sprintf("%s: %v", message, err)
	}
	return newNotification(EventChannelError, "Mất kết nối realtime", message, "")
}
