package reconcile

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/devtlco1/E-Jibaya-sub000/core/api/dto"
	models "github.com/devtlco1/E-Jibaya-sub000/core/api/models/mongodb"
	"github.com/devtlco1/E-Jibaya-sub000/core/events"
)

// fakeStore giả lập phần truy vấn Store cho poll loop
type fakeStore struct {
	mu       sync.Mutex
	count    int64
	countErr error
	latest   models.Record
}

func (f *fakeStore) CountRecords(_ context.Context, _ *dto.RecordFilterInput) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count, f.countErr
}

func (f *fakeStore) LatestRecord(_ context.Context, _ *dto.RecordFilterInput) (models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest, nil
}

func (f *fakeStore) setCount(n int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count = n
}

// recorder đếm số lần từng callback được gọi
type recorder struct {
	refresh     atomic.Int32
	newRecord   atomic.Int32
	updated     atomic.Int32
	lockPatched atomic.Int32
	counters    atomic.Int32
}

func (rec *recorder) callbacks() Callbacks {
	return Callbacks{
		OnRefresh:       func(string) { rec.refresh.Add(1) },
		OnNewRecord:     func(models.Record) { rec.newRecord.Add(1) },
		OnRecordUpdated: func(models.Record) { rec.updated.Add(1) },
		OnLockPatched:   func(models.Record) { rec.lockPatched.Add(1) },
		OnCounters:      func() { rec.counters.Add(1) },
	}
}

func newTestReconciler(store Store, cb Callbacks, interval time.Duration) *Reconciler {
	r := NewReconciler(store, cb)
	r.interval = interval
	return r
}

func TestReconcilerPoll(t *testing.T) {
	t.Run("tick đầu chỉ lập baseline, không notify", func(t *testing.T) {
		store := &fakeStore{count: 5}
		rec := &recorder{}
		r := newTestReconciler(store, rec.callbacks(), 10*time.Millisecond)
		r.Start(context.Background())
		defer r.Close()

		time.Sleep(60 * time.Millisecond)
		assert.Zero(t, rec.newRecord.Load())
		assert.Zero(t, rec.refresh.Load())
	})

	t.Run("đếm tăng so với baseline thì notify và refresh", func(t *testing.T) {
		store := &fakeStore{count: 5, latest: *baseRecord()}
		rec := &recorder{}
		r := newTestReconciler(store, rec.callbacks(), 10*time.Millisecond)
		r.Start(context.Background())
		defer r.Close()

		// Chờ baseline lập xong rồi mới tăng đếm
		time.Sleep(30 * time.Millisecond)
		store.setCount(6)

		assert.Eventually(t, func() bool {
			return rec.newRecord.Load() >= 1 && rec.refresh.Load() >= 1 && rec.counters.Load() >= 1
		}, time.Second, 5*time.Millisecond)

		// Bản ghi mới nhất được đưa vào cache
		_, ok := r.Cache().Get(store.latest.ID)
		assert.True(t, ok)
	})

	t.Run("đếm giảm không notify", func(t *testing.T) {
		store := &fakeStore{count: 5}
		rec := &recorder{}
		r := newTestReconciler(store, rec.callbacks(), 10*time.Millisecond)
		r.Start(context.Background())
		defer r.Close()

		time.Sleep(30 * time.Millisecond)
		store.setCount(3)
		time.Sleep(50 * time.Millisecond)

		assert.Zero(t, rec.newRecord.Load())
	})

	t.Run("đổi filter reset baseline", func(t *testing.T) {
		store := &fakeStore{count: 5}
		rec := &recorder{}
		r := newTestReconciler(store, rec.callbacks(), 10*time.Millisecond)
		r.Start(context.Background())
		defer r.Close()

		time.Sleep(30 * time.Millisecond)
		r.SetFilter(&dto.RecordFilterInput{Region: "north"})
		store.setCount(8)
		time.Sleep(50 * time.Millisecond)

		// Tick đầu sau khi đổi filter chỉ lập baseline mới
		assert.Zero(t, rec.newRecord.Load())
		assert.Equal(t, 0, r.Cache().Len())
	})
}

func TestReconcilerPush(t *testing.T) {
	longPoll := time.Hour // poll không được chen vào test push

	emit := func(r *Reconciler, op string, prev, cur interface{}) {
		events.EmitDataChanged(context.Background(), events.DataChangeEvent{
			CollectionName: r.colName,
			Operation:      op,
			Document:       cur,
			Previous:       prev,
		})
	}

	t.Run("insert khớp filter thì notify và refetch trang", func(t *testing.T) {
		rec := &recorder{}
		r := newTestReconciler(&fakeStore{}, rec.callbacks(), longPoll)
		r.Start(context.Background())
		defer r.Close()

		record := *baseRecord()
		emit(r, events.OpInsert, nil, record)

		assert.Eventually(t, func() bool {
			return rec.newRecord.Load() == 1 &&
				rec.refresh.Load() == 1 &&
				rec.counters.Load() == 1
		}, time.Second, 5*time.Millisecond)

		_, ok := r.Cache().Get(record.ID)
		assert.True(t, ok)
	})

	t.Run("insert ngoài filter không notify nhưng vẫn refresh counters", func(t *testing.T) {
		rec := &recorder{}
		r := newTestReconciler(&fakeStore{}, rec.callbacks(), longPoll)
		r.SetFilter(&dto.RecordFilterInput{Region: "north"})
		r.Start(context.Background())
		defer r.Close()

		record := *baseRecord() // region south
		emit(r, events.OpInsert, nil, record)

		// Counters đếm trên toàn tập nên vẫn phải refresh
		assert.Eventually(t, func() bool {
			return rec.counters.Load() == 1
		}, time.Second, 5*time.Millisecond)

		assert.Zero(t, rec.newRecord.Load())
		assert.Zero(t, rec.refresh.Load())
		assert.Equal(t, 0, r.Cache().Len())
	})

	t.Run("update chỉ đổi lock thì patch im lặng", func(t *testing.T) {
		rec := &recorder{}
		r := newTestReconciler(&fakeStore{}, rec.callbacks(), longPoll)
		r.Start(context.Background())
		defer r.Close()

		prev := *baseRecord()
		r.Cache().Put(prev)

		cur := prev
		userID := primitive.NewObjectID()
		now := time.Now().UnixMilli()
		expires := now + 30*60*1000
		cur.LockedBy = &userID
		cur.LockedAt = &now
		cur.LockExpiresAt = &expires

		emit(r, events.OpUpdate, prev, cur)

		assert.Eventually(t, func() bool {
			return rec.lockPatched.Load() == 1
		}, time.Second, 5*time.Millisecond)

		assert.Zero(t, rec.updated.Load())
		assert.Zero(t, rec.refresh.Load())

		cached, _ := r.Cache().Get(prev.ID)
		assert.Equal(t, userID, *cached.LockedBy)
	})

	t.Run("update chỉ đổi verification thì im lặng hoàn toàn", func(t *testing.T) {
		rec := &recorder{}
		r := newTestReconciler(&fakeStore{}, rec.callbacks(), longPoll)
		r.Start(context.Background())
		defer r.Close()

		prev := *baseRecord()
		cur := prev
		verifier := primitive.NewObjectID()
		now := time.Now().UnixMilli()
		cur.IsVerified = true
		cur.VerifiedBy = &verifier
		cur.VerifiedAt = &now

		emit(r, events.OpUpdate, prev, cur)

		assert.Eventually(t, func() bool {
			_, ok := r.Cache().Get(cur.ID)
			return ok
		}, time.Second, 5*time.Millisecond)

		assert.Zero(t, rec.updated.Load())
		assert.Zero(t, rec.refresh.Load())
		assert.Zero(t, rec.newRecord.Load())
	})

	t.Run("update nghiệp vụ thì notify và refresh", func(t *testing.T) {
		rec := &recorder{}
		r := newTestReconciler(&fakeStore{}, rec.callbacks(), longPoll)
		r.Start(context.Background())
		defer r.Close()

		prev := *baseRecord()
		cur := prev
		cur.CurrentReading = prev.CurrentReading + 100
		cur.Consumption = 100

		emit(r, events.OpUpdate, prev, cur)

		assert.Eventually(t, func() bool {
			return rec.updated.Load() == 1 && rec.refresh.Load() == 1
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("update làm bản ghi rời filter thì refresh", func(t *testing.T) {
		rec := &recorder{}
		r := newTestReconciler(&fakeStore{}, rec.callbacks(), longPoll)
		r.SetFilter(&dto.RecordFilterInput{Region: "south"})
		r.Start(context.Background())
		defer r.Close()

		prev := *baseRecord() // region south
		r.Cache().Put(prev)
		cur := prev
		cur.Region = "north"

		emit(r, events.OpUpdate, prev, cur)

		assert.Eventually(t, func() bool {
			return rec.refresh.Load() == 1
		}, time.Second, 5*time.Millisecond)

		assert.Zero(t, rec.updated.Load())
		_, ok := r.Cache().Get(prev.ID)
		assert.False(t, ok)
	})

	t.Run("delete luôn refresh", func(t *testing.T) {
		rec := &recorder{}
		r := newTestReconciler(&fakeStore{}, rec.callbacks(), longPoll)
		r.Start(context.Background())
		defer r.Close()

		prev := *baseRecord()
		r.Cache().Put(prev)

		emit(r, events.OpDelete, prev, nil)

		assert.Eventually(t, func() bool {
			return rec.refresh.Load() == 1 && rec.counters.Load() == 1
		}, time.Second, 5*time.Millisecond)

		_, ok := r.Cache().Get(prev.ID)
		assert.False(t, ok)
	})

	t.Run("event của collection khác bị bỏ qua", func(t *testing.T) {
		rec := &recorder{}
		r := newTestReconciler(&fakeStore{}, rec.callbacks(), longPoll)
		r.Start(context.Background())
		defer r.Close()

		events.EmitDataChanged(context.Background(), events.DataChangeEvent{
			CollectionName: "users",
			Operation:      events.OpInsert,
			Document:       *baseRecord(),
		})

		time.Sleep(50 * time.Millisecond)
		assert.Zero(t, rec.newRecord.Load())
	})
}

func TestReconcilerLifecycle(t *testing.T) {
	t.Run("state chuyển qua subscribed rồi disconnected", func(t *testing.T) {
		r := newTestReconciler(&fakeStore{}, Callbacks{}, time.Hour)
		assert.Equal(t, StateDisconnected, r.State())

		r.Start(context.Background())
		assert.Equal(t, StateSubscribed, r.State())

		r.Close()
		assert.Equal(t, StateDisconnected, r.State())
	})

	t.Run("sau close không callback nào được phát", func(t *testing.T) {
		rec := &recorder{}
		r := newTestReconciler(&fakeStore{}, rec.callbacks(), time.Hour)
		r.Start(context.Background())
		r.Close()

		events.EmitDataChanged(context.Background(), events.DataChangeEvent{
			CollectionName: r.colName,
			Operation:      events.OpInsert,
			Document:       *baseRecord(),
		})

		time.Sleep(50 * time.Millisecond)
		assert.Zero(t, rec.newRecord.Load())
	})

	t.Run("close nhiều lần vô hại", func(t *testing.T) {
		r := newTestReconciler(&fakeStore{}, Callbacks{}, time.Hour)
		r.Start(context.Background())
		r.Close()
		assert.NotPanics(t, r.Close)
	})

	t.Run("lỗi kênh push chuyển state, poll vẫn là lưới an toàn", func(t *testing.T) {
		var gotErr error
		r := newTestReconciler(&fakeStore{}, Callbacks{
			OnChannelError: func(err error) { gotErr = err },
		}, time.Hour)
		r.Start(context.Background())
		defer r.Close()

		r.FireChannelError(assert.AnError)

		assert.Equal(t, StateChannelError, r.State())
		assert.Equal(t, assert.AnError, gotErr)
	})

	t.Run("callback panic không làm chết reconciler", func(t *testing.T) {
		r := newTestReconciler(&fakeStore{}, Callbacks{
			OnRefresh: func(string) { panic("hook hỏng") },
		}, time.Hour)
		r.Start(context.Background())
		defer r.Close()

		assert.NotPanics(t, func() { r.fireRefresh("test") })
	})
}
