package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/devtlco1/E-Jibaya-sub000/core/api/dto"
	models "github.com/devtlco1/E-Jibaya-sub000/core/api/models/mongodb"
	"github.com/devtlco1/E-Jibaya-sub000/core/api/services"
	"github.com/devtlco1/E-Jibaya-sub000/core/events"
	"github.com/devtlco1/E-Jibaya-sub000/core/global"
	"github.com/devtlco1/E-Jibaya-sub000/core/logger"
)

// DefaultPollInterval là chu kỳ poll đếm mặc định
const DefaultPollInterval = 2 * time.Second

// State là trạng thái kênh push của reconciler
type State int32

const (
	StateDisconnected State = iota
	StateSubscribing
	StateSubscribed
	StateChannelError
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateSubscribing:
		return "subscribing"
	case StateSubscribed:
		return "subscribed"
	case StateChannelError:
		return "channel_error"
	default:
		return "unknown"
	}
}

// Store là phần truy vấn Store mà poll loop cần. RecordService thỏa interface
// này; test dùng fake.
type Store interface {
	CountRecords(ctx context.Context, filter *dto.RecordFilterInput) (int64, error)
	LatestRecord(ctx context.Context, filter *dto.RecordFilterInput) (models.Record, error)
}

// Callbacks là các hook mà tầng trên (SSE stream, notification) đăng ký.
// Hook nil được bỏ qua. Mọi hook chạy dưới recover.
type Callbacks struct {
	// OnRefresh: view cần refetch trang hiện tại, reason để log
	OnRefresh func(reason string)
	// OnNewRecord: có bản ghi mới khớp filter, cần notify người dùng
	OnNewRecord func(record models.Record)
	// OnRecordUpdated: bản ghi trong view bị sửa field nghiệp vụ
	OnRecordUpdated func(record models.Record)
	// OnLockPatched: lock của bản ghi đổi, đã patch cache, không notify
	OnLockPatched func(record models.Record)
	// OnCounters: số liệu đếm (tổng, theo status) cần tính lại
	OnCounters func()
	// OnChannelError: kênh push gặp lỗi, poll vẫn chạy làm lưới an toàn
	OnChannelError func(err error)
}

// Reconciler hợp nhất hai tín hiệu thay đổi dữ liệu thành một luồng phản ứng
// duy nhất cho view bản ghi:
//
//   - push: event từ bus dữ liệu, đến ngay nhưng có thể rớt
//   - poll: đếm theo filter mỗi chu kỳ, chậm nhưng không bao giờ rớt
//
// Cùng một thay đổi có thể đến từ cả hai đường; mọi phản ứng đều idempotent
// (refetch, patch cache) nên double-notify vô hại.
type Reconciler struct {
	store Store
	cache *RecordCache
	cb    Callbacks

	interval  time.Duration
	subscribe func(events.DataChangeHandler) events.Unsubscribe
	colName   string

	mu        sync.Mutex
	filter    *dto.RecordFilterInput
	state     State
	lastCount int64
	unsub     events.Unsubscribe
	done      chan struct{}
	closed    bool
}

// NewReconciler tạo reconciler với chu kỳ poll đọc từ config.
// Chưa chạy gì cho tới khi gọi Start.
func NewReconciler(store Store, cb Callbacks) *Reconciler {
	interval := DefaultPollInterval
	if cfg := global.MongoDB_ServerConfig; cfg != nil && cfg.PollIntervalSeconds > 0 {
		interval = time.Duration(cfg.PollIntervalSeconds) * time.Second
	}

	colName := global.MongoDB_ColNames.Records
	if colName == "" {
		colName = "records"
	}

	return &Reconciler{
		store:     store,
		cache:     NewRecordCache(),
		cb:        cb,
		interval:  interval,
		subscribe: events.OnDataChanged,
		colName:   colName,
		state:     StateDisconnected,
		done:      make(chan struct{}),
	}
}

// Cache trả về cache bản ghi của view
func (r *Reconciler) Cache() *RecordCache {
	return r.cache
}

// State trả về trạng thái kênh push hiện tại
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// SetFilter thay filter hiện hành của view. Poll tick và push handler kế tiếp
// đọc filter mới. Baseline đếm và cache bị reset vì không còn so sánh được.
func (r *Reconciler) SetFilter(filter *dto.RecordFilterInput) {
	r.mu.Lock()
	r.filter = filter
	r.lastCount = 0
	r.mu.Unlock()

	r.cache.Clear()
}

// currentFilter đọc filter hiện hành
func (r *Reconciler) currentFilter() *dto.RecordFilterInput {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter
}

// Start đăng ký kênh push và chạy poll loop nền.
// Gọi lại sau Close không làm gì.
func (r *Reconciler) Start(ctx context.Context) {
	r.mu.Lock()
	if r.closed || r.unsub != nil {
		r.mu.Unlock()
		return
	}
	r.state = StateSubscribing
	r.mu.Unlock()

	unsub := r.subscribe(r.handlePush)

	r.mu.Lock()
	r.unsub = unsub
	r.state = StateSubscribed
	r.mu.Unlock()

	logger.WithModule("reconcile").WithFields(logrus.Fields{
		"poll_interval": r.interval.String(),
	}).Info("Reconciler đã subscribe kênh push, bắt đầu poll")

	go r.pollLoop(ctx)
}

// Close dừng poll loop và hủy đăng ký push. Teardown xác định: sau khi Close
// trả về, không callback nào được phát thêm từ tick hoặc event mới.
// Gọi nhiều lần vô hại.
func (r *Reconciler) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.state = StateDisconnected
	unsub := r.unsub
	close(r.done)
	r.mu.Unlock()

	if unsub != nil {
		unsub()
	}

	logger.WithModule("reconcile").Info("Reconciler đã teardown")
}

// ==========================================================================
// Poll loop
// ==========================================================================

// pollLoop đếm theo filter hiện hành mỗi chu kỳ. Đếm tăng so với baseline là
// dấu hiệu có bản ghi mới mà push có thể đã rớt.
func (r *Reconciler) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case <-ticker.C:
			r.pollTick(ctx)
		}
	}
}

// pollTick chạy một chu kỳ poll. Lỗi truy vấn chỉ log rồi chờ tick sau;
// poll là lưới an toàn nên không được chết vì một tick hỏng.
func (r *Reconciler) pollTick(ctx context.Context) {
	filter := r.currentFilter()

	count, err := r.store.CountRecords(ctx, filter)
	if err != nil {
		logger.WithModule("reconcile").WithError(err).Warn("Poll tick đếm thất bại, chờ tick sau")
		return
	}

	r.mu.Lock()
	last := r.lastCount
	r.lastCount = count
	r.mu.Unlock()

	// last == 0 là baseline chưa lập (tick đầu hoặc vừa đổi filter):
	// chỉ ghi nhận, không notify để khỏi báo giả khi load lần đầu
	if count > last && last > 0 {
		logger.WithModule("reconcile").WithFields(logrus.Fields{
			"last":  last,
			"count": count,
		}).Debug("Poll phát hiện bản ghi mới")

		latest, err := r.store.LatestRecord(ctx, filter)
		if err == nil {
			r.cache.Put(latest)
			r.fireNewRecord(latest)
		} else {
			logger.WithModule("reconcile").WithError(err).Warn("Không đọc được bản ghi mới nhất sau poll")
		}
		r.fireRefresh("poll_count_increase")
		r.fireCounters()
	}
}

// ==========================================================================
// Push handler
// ==========================================================================

// handlePush nhận event từ bus dữ liệu và phân loại phản ứng.
// Event của collection khác hoặc không carry được Record thì bỏ qua.
func (r *Reconciler) handlePush(ctx context.Context, e events.DataChangeEvent) {
	if e.CollectionName != r.colName {
		return
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	filter := r.filter
	r.mu.Unlock()

	cur := asRecord(e.Document)
	prev := asRecord(e.Previous)

	switch e.Operation {
	case events.OpInsert:
		r.handleInsert(filter, cur)
	case events.OpUpdate, events.OpUpsert:
		r.handleUpdate(filter, prev, cur)
	case events.OpDelete:
		r.handleDelete(prev)
	}
}

func (r *Reconciler) handleInsert(filter *dto.RecordFilterInput, cur *models.Record) {
	if cur == nil {
		return
	}

	// Counters phụ đếm trên toàn tập nên phải refresh kể cả khi bản ghi mới
	// nằm ngoài filter hiện hành
	r.fireCounters()

	if !services.MatchesRecordFilter(filter, cur) {
		return
	}

	r.cache.Put(*cur)
	r.fireNewRecord(*cur)
	r.fireRefresh("new_record")
}

func (r *Reconciler) handleUpdate(filter *dto.RecordFilterInput, prev, cur *models.Record) {
	if cur == nil {
		return
	}

	matchesNow := services.MatchesRecordFilter(filter, cur)
	matchedBefore := prev != nil && services.MatchesRecordFilter(filter, prev)
	_, inCache := r.cache.Get(cur.ID)

	// Bản ghi rời khỏi filter sau update: bỏ khỏi view
	if !matchesNow {
		if matchedBefore || inCache {
			r.cache.Remove(cur.ID)
			r.fireRefresh("record_left_filter")
			r.fireCounters()
		}
		return
	}

	switch ClassifyUpdate(prev, cur) {
	case UpdateNone:
		return

	case UpdateLockOnly:
		// Lock đổi không phải thay đổi dữ liệu: patch cache tại chỗ, im lặng
		if !r.cache.PatchLock(cur.ID, cur.LockedBy, cur.LockedAt, cur.LockExpiresAt) {
			r.cache.Put(*cur)
		}
		r.fireLockPatched(*cur)

	case UpdateVerificationOnly:
		// Flow đối soát có messaging riêng: cập nhật cache, không notify
		r.cache.Put(*cur)

	case UpdateVerificationMixed:
		// Verification kèm field khác: refetch nhưng suppress notify chung
		r.cache.Put(*cur)
		r.fireRefresh("verification_with_changes")
		r.fireCounters()

	default:
		// Bản ghi vừa vào filter sau update cũng đi nhánh này
		r.cache.Put(*cur)
		r.fireRecordUpdated(*cur)
		r.fireRefresh("record_updated")
		r.fireCounters()
	}
}

func (r *Reconciler) handleDelete(prev *models.Record) {
	if prev == nil {
		return
	}
	// Delete luôn refetch, kể cả bản ghi ngoài filter: đếm tổng đã đổi
	r.cache.Remove(prev.ID)
	r.fireRefresh("record_deleted")
	r.fireCounters()
}

// asRecord rút Record từ payload event (service phát giá trị models.Record)
func asRecord(v interface{}) *models.Record {
	switch rec := v.(type) {
	case models.Record:
		return &rec
	case *models.Record:
		return rec
	default:
		return nil
	}
}

// ==========================================================================
// Callback dispatch, mỗi hook chạy dưới recover
// ==========================================================================

func (r *Reconciler) fireRefresh(reason string) {
	if r.cb.OnRefresh == nil {
		return
	}
	safeFire(func() { r.cb.OnRefresh(reason) })
}

func (r *Reconciler) fireNewRecord(record models.Record) {
	if r.cb.OnNewRecord == nil {
		return
	}
	safeFire(func() { r.cb.OnNewRecord(record) })
}

func (r *Reconciler) fireRecordUpdated(record models.Record) {
	if r.cb.OnRecordUpdated == nil {
		return
	}
	safeFire(func() { r.cb.OnRecordUpdated(record) })
}

func (r *Reconciler) fireLockPatched(record models.Record) {
	if r.cb.OnLockPatched == nil {
		return
	}
	safeFire(func() { r.cb.OnLockPatched(record) })
}

func (r *Reconciler) fireCounters() {
	if r.cb.OnCounters == nil {
		return
	}
	safeFire(r.cb.OnCounters)
}

// FireChannelError báo lỗi kênh push cho tầng trên và chuyển state.
// Poll loop vẫn chạy nên dữ liệu mới vẫn đến, chỉ chậm hơn.
//
// Bus in-process hiện tại không tự fail nên chưa có caller nào trong server;
// đây là entrypoint cho transport push ngoài (Mongo change stream, websocket)
// báo lỗi kênh khi được nối vào subscribe.
func (r *Reconciler) FireChannelError(err error) {
	r.mu.Lock()
	if !r.closed {
		r.state = StateChannelError
	}
	r.mu.Unlock()

	logger.WithModule("reconcile").WithError(err).Error("Kênh push gặp lỗi, dựa vào poll")

	if r.cb.OnChannelError != nil {
		safeFire(func() { r.cb.OnChannelError(err) })
	}
}

func safeFire(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.WithModule("reconcile").WithFields(logrus.Fields{
				"panic": rec,
			}).Error("Callback panic, đã recover")
		}
	}()
	fn()
}
