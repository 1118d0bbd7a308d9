package reconcile

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/devtlco1/E-Jibaya-sub000/core/api/models/mongodb"
)

// RecordCache giữ bản sao các bản ghi đang hiển thị trong view.
// Update chỉ-đổi-lock được patch tại chỗ vào cache, không refetch.
type RecordCache struct {
	mu      sync.RWMutex
	records map[primitive.ObjectID]models.Record
}

// NewRecordCache tạo cache rỗng
func NewRecordCache() *RecordCache {
	return &RecordCache{
		records: make(map[primitive.ObjectID]models.Record),
	}
}

// Put thêm hoặc thay bản ghi trong cache
func (c *RecordCache) Put(record models.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[record.ID] = record
}

// Get trả về bản ghi theo id
func (c *RecordCache) Get(id primitive.ObjectID) (models.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.records[id]
	return r, ok
}

// Remove xóa bản ghi khỏi cache
func (c *RecordCache) Remove(id primitive.ObjectID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.records, id)
}

// PatchLock cập nhật ba field lock của bản ghi trong cache tại chỗ.
// Bản ghi không có trong cache thì bỏ qua, trả về false.
func (c *RecordCache) PatchLock(id primitive.ObjectID, lockedBy *primitive.ObjectID, lockedAt, lockExpiresAt *int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.records[id]
	if !ok {
		return false
	}
	r.LockedBy = lockedBy
	r.LockedAt = lockedAt
	r.LockExpiresAt = lockExpiresAt
	c.records[id] = r
	return true
}

// Len trả về số bản ghi đang cache
func (c *RecordCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Clear xóa sạch cache (dùng khi filter đổi)
func (c *RecordCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = make(map[primitive.ObjectID]models.Record)
}
