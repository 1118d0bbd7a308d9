package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRecordCache(t *testing.T) {
	cache := NewRecordCache()
	record := *baseRecord()

	t.Run("put rồi get", func(t *testing.T) {
		cache.Put(record)
		got, ok := cache.Get(record.ID)
		assert.True(t, ok)
		assert.Equal(t, record.AccountNumber, got.AccountNumber)
		assert.Equal(t, 1, cache.Len())
	})

	t.Run("patch lock tại chỗ", func(t *testing.T) {
		userID := primitive.NewObjectID()
		lockedAt := int64(1_700_000_000_000)
		expiresAt := lockedAt + 30*60*1000

		ok := cache.PatchLock(record.ID, &userID, &lockedAt, &expiresAt)
		assert.True(t, ok)

		got, _ := cache.Get(record.ID)
		assert.Equal(t, userID, *got.LockedBy)
		assert.Equal(t, expiresAt, *got.LockExpiresAt)
		// Field nghiệp vụ không bị đụng
		assert.Equal(t, record.AccountNumber, got.AccountNumber)
	})

	t.Run("patch clear lock", func(t *testing.T) {
		ok := cache.PatchLock(record.ID, nil, nil, nil)
		assert.True(t, ok)
		got, _ := cache.Get(record.ID)
		assert.Nil(t, got.LockedBy)
		assert.Nil(t, got.LockedAt)
		assert.Nil(t, got.LockExpiresAt)
	})

	t.Run("patch bản ghi không có trong cache", func(t *testing.T) {
		assert.False(t, cache.PatchLock(primitive.NewObjectID(), nil, nil, nil))
	})

	t.Run("remove và clear", func(t *testing.T) {
		cache.Remove(record.ID)
		_, ok := cache.Get(record.ID)
		assert.False(t, ok)

		cache.Put(record)
		cache.Clear()
		assert.Equal(t, 0, cache.Len())
	})
}
