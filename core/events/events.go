// Package events cung cấp cơ chế event trung tâm khi dữ liệu thay đổi qua CRUD.
// Các service CRUD không cần override từng method: BaseServiceMongoImpl tự động phát event.
// Logic phản ứng (reconciler, cache invalidation, stream SSE, ...) đăng ký qua OnDataChanged.
package events

import (
	"context"
	"sync"
)

// OpInsert, OpUpdate, OpUpsert, OpDelete là các loại thao tác CRUD.
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// DataChangeEvent mô tả sự kiện thay đổi dữ liệu.
// Document là bản ghi sau khi thay đổi (nil nếu delete).
// Previous là bản ghi trước khi thay đổi (nil nếu insert); cần cho việc
// phân loại update (chỉ đổi field lock? chỉ đổi verification?).
type DataChangeEvent struct {
	CollectionName string
	Operation      string
	Document       interface{}
	Previous       interface{}
}

// DataChangeHandler xử lý sự kiện thay đổi dữ liệu.
type DataChangeHandler func(ctx context.Context, e DataChangeEvent)

// Unsubscribe hủy đăng ký handler. Gọi nhiều lần vô hại.
type Unsubscribe func()

var (
	handlers   = map[int]DataChangeHandler{}
	nextID     int
	handlersMu sync.RWMutex
)

// OnDataChanged đăng ký handler, trả về hàm hủy đăng ký.
// Reconciler dùng hàm hủy này khi Close để teardown xác định.
func OnDataChanged(h DataChangeHandler) Unsubscribe {
	handlersMu.Lock()
	defer handlersMu.Unlock()
	id := nextID
	nextID++
	handlers[id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			handlersMu.Lock()
			defer handlersMu.Unlock()
			delete(handlers, id)
		})
	}
}

// EmitDataChanged phát sự kiện. Gọi từ BaseServiceMongoImpl sau mỗi CRUD thành công.
// Mỗi handler chạy trong goroutine riêng, panic được recover để không ảnh hưởng handler khác.
func EmitDataChanged(ctx context.Context, e DataChangeEvent) {
	handlersMu.RLock()
	list := make([]DataChangeHandler, 0, len(handlers))
	for _, h := range handlers {
		list = append(list, h)
	}
	handlersMu.RUnlock()

	for _, h := range list {
		go func(fn DataChangeHandler) {
			defer func() {
				if r := recover(); r != nil {
					// Nuốt panic của handler; logger có thể chưa init khi event chạy sớm
					_ = r
				}
			}()
			fn(ctx, e)
		}(h)
	}
}
