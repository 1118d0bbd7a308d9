package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	models "github.com/devtlco1/E-Jibaya-sub000/core/api/models/mongodb"
	"github.com/devtlco1/E-Jibaya-sub000/core/common"
)

func milliPtr(v int64) *int64 {
	return &v
}

// fakeLockStore là store in-memory cho lock service: nhận đúng các filter
// mà service build (điều kiện $or của acquire, scope theo holder của
// release/extend, quét $lt của sweeper) và áp $set lên bản ghi khớp.
type fakeLockStore struct {
	mu      sync.Mutex
	records map[primitive.ObjectID]models.Record
}

func newFakeLockStore(records ...models.Record) *fakeLockStore {
	f := &fakeLockStore{records: map[primitive.ObjectID]models.Record{}}
	for _, r := range records {
		f.records[r.ID] = r
	}
	return f
}

func (f *fakeLockStore) get(id primitive.ObjectID) models.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[id]
}

func (f *fakeLockStore) FindOneAndUpdate(_ context.Context, filter interface{}, update interface{}, _ *options.FindOneAndUpdateOptions) (models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ud, ok := update.(*UpdateData)
	if !ok {
		return models.Record{}, common.ErrInvalidFormat
	}

	for id, r := range f.records {
		if matchLockFilter(r, filter) {
			applyLockSet(&r, ud.Set)
			f.records[id] = r
			return r, nil
		}
	}
	return models.Record{}, common.ErrNotFound
}

func (f *fakeLockStore) FindOneById(_ context.Context, id primitive.ObjectID) (models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.records[id]
	if !ok {
		return models.Record{}, common.ErrNotFound
	}
	return r, nil
}

func (f *fakeLockStore) UpdateMany(_ context.Context, filter interface{}, update interface{}, _ *options.UpdateOptions) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ud, ok := update.(*UpdateData)
	if !ok {
		return 0, common.ErrInvalidFormat
	}

	var modified int64
	for id, r := range f.records {
		if matchLockFilter(r, filter) {
			applyLockSet(&r, ud.Set)
			f.records[id] = r
			modified++
		}
	}
	return modified, nil
}

func matchLockFilter(r models.Record, filter interface{}) bool {
	m, ok := filter.(bson.M)
	if !ok {
		return false
	}

	for key, cond := range m {
		switch key {
		case "_id":
			id, ok := cond.(primitive.ObjectID)
			if !ok || r.ID != id {
				return false
			}
		case "$or":
			branches, ok := cond.([]bson.M)
			if !ok {
				return false
			}
			any := false
			for _, branch := range branches {
				if matchLockFilter(r, branch) {
					any = true
					break
				}
			}
			if !any {
				return false
			}
		case "lockedBy":
			if !matchLockedBy(r.LockedBy, cond) {
				return false
			}
		case "lockExpiresAt":
			if !matchLockExpiry(r.LockExpiresAt, cond) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func matchLockedBy(field *primitive.ObjectID, cond interface{}) bool {
	switch v := cond.(type) {
	case nil:
		return field == nil
	case primitive.ObjectID:
		return field != nil && *field == v
	case bson.M:
		if ne, ok := v["$ne"]; ok && ne == nil {
			return field != nil
		}
	}
	return false
}

func matchLockExpiry(field *int64, cond interface{}) bool {
	switch v := cond.(type) {
	case int64:
		return field != nil && *field == v
	case bson.M:
		if lt, ok := v["$lt"].(int64); ok {
			return field != nil && *field < lt
		}
	}
	return false
}

func applyLockSet(r *models.Record, set map[string]interface{}) {
	for key, val := range set {
		switch key {
		case "lockedBy":
			if val == nil {
				r.LockedBy = nil
			} else {
				id := val.(primitive.ObjectID)
				r.LockedBy = &id
			}
		case "lockedAt":
			if val == nil {
				r.LockedAt = nil
			} else {
				v := val.(int64)
				r.LockedAt = &v
			}
		case "lockExpiresAt":
			if val == nil {
				r.LockExpiresAt = nil
			} else {
				v := val.(int64)
				r.LockExpiresAt = &v
			}
		}
	}
}

// lockedRecord tạo bản ghi đang bị holder giữ lease với hạn cho trước
func lockedRecord(holder primitive.ObjectID, expiresAt int64) models.Record {
	now := time.Now().UnixMilli()
	return models.Record{
		ID:            primitive.NewObjectID(),
		LockedBy:      &holder,
		LockedAt:      &now,
		LockExpiresAt: &expiresAt,
	}
}

func unlockedRecord() models.Record {
	return models.Record{ID: primitive.NewObjectID()}
}

func assertUnlocked(t *testing.T, r models.Record) {
	t.Helper()
	assert.Nil(t, r.LockedBy)
	assert.Nil(t, r.LockedAt)
	assert.Nil(t, r.LockExpiresAt)
}

func TestAcquireLock(t *testing.T) {
	ttl := 30 * time.Minute
	ctx := context.Background()

	t.Run("bản ghi chưa khóa thì acquire được, set cả ba field", func(t *testing.T) {
		record := unlockedRecord()
		store := newFakeLockStore(record)
		svc := newRecordLockService(store, ttl)
		user := primitive.NewObjectID()

		before := time.Now().UnixMilli()
		locked, err := svc.AcquireLock(ctx, record.ID, user)
		require.NoError(t, err)

		require.NotNil(t, locked.LockedBy)
		assert.Equal(t, user, *locked.LockedBy)
		require.NotNil(t, locked.LockedAt)
		require.NotNil(t, locked.LockExpiresAt)
		assert.GreaterOrEqual(t, *locked.LockExpiresAt, before+ttl.Milliseconds())
	})

	t.Run("user khác giữ lease còn sống thì conflict, lease giữ nguyên", func(t *testing.T) {
		holder := primitive.NewObjectID()
		expires := time.Now().UnixMilli() + 10*60*1000
		record := lockedRecord(holder, expires)
		store := newFakeLockStore(record)
		svc := newRecordLockService(store, ttl)

		_, err := svc.AcquireLock(ctx, record.ID, primitive.NewObjectID())
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrLockConflict)

		var customErr *common.Error
		require.True(t, errors.As(err, &customErr))
		assert.Equal(t, common.StatusLocked, customErr.StatusCode)

		stored := store.get(record.ID)
		assert.Equal(t, holder, *stored.LockedBy)
		assert.Equal(t, expires, *stored.LockExpiresAt)
	})

	t.Run("lease hết hạn thì user khác chiếm được", func(t *testing.T) {
		holder := primitive.NewObjectID()
		record := lockedRecord(holder, time.Now().UnixMilli()-1)
		store := newFakeLockStore(record)
		svc := newRecordLockService(store, ttl)
		newUser := primitive.NewObjectID()

		locked, err := svc.AcquireLock(ctx, record.ID, newUser)
		require.NoError(t, err)
		assert.Equal(t, newUser, *locked.LockedBy)
	})

	t.Run("holder acquire lại để làm mới hạn lease", func(t *testing.T) {
		holder := primitive.NewObjectID()
		oldExpires := time.Now().UnixMilli() + 60*1000
		record := lockedRecord(holder, oldExpires)
		store := newFakeLockStore(record)
		svc := newRecordLockService(store, ttl)

		locked, err := svc.AcquireLock(ctx, record.ID, holder)
		require.NoError(t, err)
		assert.Equal(t, holder, *locked.LockedBy)
		assert.Greater(t, *locked.LockExpiresAt, oldExpires)
	})

	t.Run("bản ghi không tồn tại", func(t *testing.T) {
		store := newFakeLockStore()
		svc := newRecordLockService(store, ttl)

		_, err := svc.AcquireLock(ctx, primitive.NewObjectID(), primitive.NewObjectID())
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestReleaseLock(t *testing.T) {
	ttl := 30 * time.Minute
	ctx := context.Background()

	t.Run("holder release thì clear cả ba field", func(t *testing.T) {
		holder := primitive.NewObjectID()
		record := lockedRecord(holder, time.Now().UnixMilli()+10*60*1000)
		store := newFakeLockStore(record)
		svc := newRecordLockService(store, ttl)

		require.NoError(t, svc.ReleaseLock(ctx, record.ID, holder))
		assertUnlocked(t, store.get(record.ID))
	})

	t.Run("không phải holder thì no-op, lease của holder giữ nguyên", func(t *testing.T) {
		holder := primitive.NewObjectID()
		expires := time.Now().UnixMilli() + 10*60*1000
		record := lockedRecord(holder, expires)
		store := newFakeLockStore(record)
		svc := newRecordLockService(store, ttl)

		require.NoError(t, svc.ReleaseLock(ctx, record.ID, primitive.NewObjectID()))

		stored := store.get(record.ID)
		require.NotNil(t, stored.LockedBy)
		assert.Equal(t, holder, *stored.LockedBy)
		assert.Equal(t, expires, *stored.LockExpiresAt)
	})

	t.Run("release hai lần vô hại", func(t *testing.T) {
		holder := primitive.NewObjectID()
		record := lockedRecord(holder, time.Now().UnixMilli()+10*60*1000)
		store := newFakeLockStore(record)
		svc := newRecordLockService(store, ttl)

		require.NoError(t, svc.ReleaseLock(ctx, record.ID, holder))
		require.NoError(t, svc.ReleaseLock(ctx, record.ID, holder))
		assertUnlocked(t, store.get(record.ID))
	})
}

func TestCheckLock(t *testing.T) {
	ttl := 30 * time.Minute
	ctx := context.Background()

	t.Run("bản ghi chưa khóa", func(t *testing.T) {
		record := unlockedRecord()
		store := newFakeLockStore(record)
		svc := newRecordLockService(store, ttl)

		status, err := svc.CheckLock(ctx, record.ID)
		require.NoError(t, err)
		assert.False(t, status.IsLocked)
		assert.Nil(t, status.LockedBy)
	})

	t.Run("lease còn sống thì trả holder và hạn", func(t *testing.T) {
		holder := primitive.NewObjectID()
		expires := time.Now().UnixMilli() + 10*60*1000
		record := lockedRecord(holder, expires)
		store := newFakeLockStore(record)
		svc := newRecordLockService(store, ttl)

		status, err := svc.CheckLock(ctx, record.ID)
		require.NoError(t, err)
		assert.True(t, status.IsLocked)
		assert.Equal(t, holder, *status.LockedBy)
		assert.Equal(t, expires, *status.LockExpiresAt)
	})

	t.Run("lease hết hạn thì self-heal rồi báo không khóa", func(t *testing.T) {
		holder := primitive.NewObjectID()
		record := lockedRecord(holder, time.Now().UnixMilli()-1)
		store := newFakeLockStore(record)
		svc := newRecordLockService(store, ttl)

		status, err := svc.CheckLock(ctx, record.ID)
		require.NoError(t, err)
		assert.False(t, status.IsLocked)

		// Ba field lock đã được dọn hộ holder cũ ngay trên store
		assertUnlocked(t, store.get(record.ID))
	})
}

func TestExtendLock(t *testing.T) {
	ttl := 30 * time.Minute
	ctx := context.Background()

	t.Run("holder extend thì hạn được đẩy thêm một TTL", func(t *testing.T) {
		holder := primitive.NewObjectID()
		oldExpires := time.Now().UnixMilli() + 60*1000
		record := lockedRecord(holder, oldExpires)
		store := newFakeLockStore(record)
		svc := newRecordLockService(store, ttl)

		extended, err := svc.ExtendLock(ctx, record.ID, holder)
		require.NoError(t, err)
		assert.True(t, extended)
		assert.Greater(t, *store.get(record.ID).LockExpiresAt, oldExpires)
	})

	t.Run("không phải holder thì extended=false, hạn giữ nguyên", func(t *testing.T) {
		holder := primitive.NewObjectID()
		expires := time.Now().UnixMilli() + 60*1000
		record := lockedRecord(holder, expires)
		store := newFakeLockStore(record)
		svc := newRecordLockService(store, ttl)

		extended, err := svc.ExtendLock(ctx, record.ID, primitive.NewObjectID())
		require.NoError(t, err)
		assert.False(t, extended)
		assert.Equal(t, expires, *store.get(record.ID).LockExpiresAt)
	})
}

func TestReleaseExpiredLocks(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UnixMilli()

	expired := lockedRecord(primitive.NewObjectID(), now-1)
	alive := lockedRecord(primitive.NewObjectID(), now+10*60*1000)
	free := unlockedRecord()

	store := newFakeLockStore(expired, alive, free)
	svc := newRecordLockService(store, 30*time.Minute)

	released, err := svc.ReleaseExpiredLocks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), released)

	assertUnlocked(t, store.get(expired.ID))
	assert.NotNil(t, store.get(alive.ID).LockedBy)
}

// Kịch bản hai thu ngân tranh một bản ghi: A giữ, B bị chặn, A trả,
// B mới acquire được.
func TestLockHandoff(t *testing.T) {
	ctx := context.Background()
	record := unlockedRecord()
	store := newFakeLockStore(record)
	svc := newRecordLockService(store, 30*time.Minute)

	userA := primitive.NewObjectID()
	userB := primitive.NewObjectID()

	_, err := svc.AcquireLock(ctx, record.ID, userA)
	require.NoError(t, err)

	_, err = svc.AcquireLock(ctx, record.ID, userB)
	assert.ErrorIs(t, err, common.ErrLockConflict)

	require.NoError(t, svc.ReleaseLock(ctx, record.ID, userA))

	locked, err := svc.AcquireLock(ctx, record.ID, userB)
	require.NoError(t, err)
	assert.Equal(t, userB, *locked.LockedBy)
}

func TestIsExpired(t *testing.T) {
	now := time.Now().UnixMilli()

	assert.True(t, isExpired(nil, now))
	assert.True(t, isExpired(milliPtr(now-1), now))
	assert.False(t, isExpired(milliPtr(now), now))
	assert.False(t, isExpired(milliPtr(now+60_000), now))
}

func TestDefaultLockTTL(t *testing.T) {
	assert.Equal(t, 30*time.Minute, DefaultLockTTL)
}
