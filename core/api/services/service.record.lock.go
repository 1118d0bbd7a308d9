package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	models "github.com/devtlco1/E-Jibaya-sub000/core/api/models/mongodb"
	"github.com/devtlco1/E-Jibaya-sub000/core/common"
	"github.com/devtlco1/E-Jibaya-sub000/core/global"
	"github.com/devtlco1/E-Jibaya-sub000/core/logger"
)

// DefaultLockTTL là TTL mặc định của lease sửa bản ghi
const DefaultLockTTL = 30 * time.Minute

// recordLockStore là phần truy cập Store mà lock service cần.
// RecordService thỏa interface này; test dùng store in-memory.
type recordLockStore interface {
	FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts *options.FindOneAndUpdateOptions) (models.Record, error)
	FindOneById(ctx context.Context, id primitive.ObjectID) (models.Record, error)
	UpdateMany(ctx context.Context, filter interface{}, update interface{}, opts *options.UpdateOptions) (int64, error)
}

// RecordLockService quản lý lease sửa bản ghi: ba field lock trên chính bản
// ghi (lockedBy, lockedAt, lockExpiresAt) là lock, không có bảng lock riêng.
//
// Mọi mutation lock phải đi qua service này (hoặc lock sweeper); không code
// path nào khác được ghi ba field đó.
type RecordLockService struct {
	records recordLockStore
	ttl     time.Duration
}

// NewRecordLockService tạo mới RecordLockService, TTL đọc từ config
func NewRecordLockService(records *RecordService) *RecordLockService {
	ttl := DefaultLockTTL
	if cfg := global.MongoDB_ServerConfig; cfg != nil && cfg.LockTTLMinutes > 0 {
		ttl = time.Duration(cfg.LockTTLMinutes) * time.Minute
	}
	return newRecordLockService(records, ttl)
}

func newRecordLockService(records recordLockStore, ttl time.Duration) *RecordLockService {
	return &RecordLockService{
		records: records,
		ttl:     ttl,
	}
}

// TTL trả về thời gian sống của lease
func (s *RecordLockService) TTL() time.Duration {
	return s.ttl
}

// isExpired kiểm tra lease đã quá hạn tại thời điểm nowMilli chưa.
// lockExpiresAt nil coi như hết hạn (lease không tồn tại).
func isExpired(lockExpiresAt *int64, nowMilli int64) bool {
	if lockExpiresAt == nil {
		return true
	}
	return *lockExpiresAt < nowMilli
}

// AcquireLock xin lease sửa bản ghi cho user.
//
// Acquire nguyên tử bằng FindOneAndUpdate với filter điều kiện: chỉ ghi khi
// chưa ai giữ, chính user đang giữ, hoặc lease cũ đã hết hạn. Hai client cùng
// thấy lockedBy rỗng thì chỉ một client thắng ở phía Store.
//
// Trả về ErrLockConflict khi user khác đang giữ lease còn sống. Không tự retry.
func (s *RecordLockService) AcquireLock(ctx context.Context, recordID, userID primitive.ObjectID) (models.Record, error) {
	var zero models.Record

	now := time.Now().UnixMilli()
	expiresAt := now + s.ttl.Milliseconds()

	filter := bson.M{
		"_id": recordID,
		"$or": []bson.M{
			{"lockedBy": nil},
			{"lockedBy": userID},
			{"lockExpiresAt": bson.M{"$lt": now}},
		},
	}
	update := &UpdateData{
		Set: map[string]interface{}{
			"lockedBy":      userID,
			"lockedAt":      now,
			"lockExpiresAt": expiresAt,
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	locked, err := s.records.FindOneAndUpdate(ctx, filter, update, opts)
	if err == nil {
		logger.WithModule("lock").WithFields(logrus.Fields{
			"record_id":  recordID.Hex(),
			"user_id":    userID.Hex(),
			"expires_at": expiresAt,
		}).Debug("Đã acquire lease sửa bản ghi")
		return locked, nil
	}

	if !errors.Is(err, common.ErrNotFound) {
		return zero, err
	}

	// Filter không match: hoặc bản ghi không tồn tại, hoặc user khác đang
	// giữ lease còn sống. Đọc lại để phân biệt.
	current, findErr := s.records.FindOneById(ctx, recordID)
	if findErr != nil {
		return zero, findErr
	}

	holder := ""
	if current.LockedBy != nil {
		holder = current.LockedBy.Hex()
	}
	return zero, common.NewError(
		common.ErrCodeLockConflict,
		fmt.Sprintf("Bản ghi đang được user %s giữ quyền sửa", holder),
		common.StatusLocked,
		bson.M{"lockedBy": holder, "lockExpiresAt": current.LockExpiresAt},
	)
}

// ReleaseLock trả lease: clear cả ba field lock, scoped theo holder.
// Không phải holder (hoặc bản ghi không khóa) là no-op, không lỗi: release
// idempotent và không bao giờ tháo lease của người khác.
func (s *RecordLockService) ReleaseLock(ctx context.Context, recordID, userID primitive.ObjectID) error {
	filter := bson.M{
		"_id":      recordID,
		"lockedBy": userID,
	}

	err := s.clearLockFields(ctx, filter)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// Không phải holder hoặc đã unlock: no-op
			return nil
		}
		return err
	}

	logger.WithModule("lock").WithFields(logrus.Fields{
		"record_id": recordID.Hex(),
		"user_id":   userID.Hex(),
	}).Debug("Đã release lease sửa bản ghi")
	return nil
}

// CheckLock trả về trạng thái lock của bản ghi.
// Lease đã quá hạn tại thời điểm đọc thì tự release hộ holder cũ (self-heal)
// rồi báo IsLocked=false.
func (s *RecordLockService) CheckLock(ctx context.Context, recordID primitive.ObjectID) (*models.LockStatus, error) {
	record, err := s.records.FindOneById(ctx, recordID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UnixMilli()

	if record.LockedBy == nil {
		return &models.LockStatus{IsLocked: false}, nil
	}

	if isExpired(record.LockExpiresAt, now) {
		// Lease hết hạn: dọn hộ holder cũ, scoped theo holder để không đè
		// lease mới nếu có ai vừa acquire xen giữa
		staleFilter := bson.M{
			"_id":      recordID,
			"lockedBy": *record.LockedBy,
		}
		if record.LockExpiresAt != nil {
			staleFilter["lockExpiresAt"] = *record.LockExpiresAt
		}
		if err := s.clearLockFields(ctx, staleFilter); err != nil && !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		logger.WithModule("lock").WithFields(logrus.Fields{
			"record_id":   recordID.Hex(),
			"stale_owner": record.LockedBy.Hex(),
		}).Debug("Lease hết hạn, đã tự release hộ holder cũ")
		return &models.LockStatus{IsLocked: false}, nil
	}

	return &models.LockStatus{
		IsLocked:      true,
		LockedBy:      record.LockedBy,
		LockExpiresAt: record.LockExpiresAt,
	}, nil
}

// ExtendLock đẩy hạn lease thêm một TTL kể từ bây giờ, scoped theo holder
// giống release. Không phải holder thì không đổi gì và trả extended=false.
func (s *RecordLockService) ExtendLock(ctx context.Context, recordID, userID primitive.ObjectID) (bool, error) {
	now := time.Now().UnixMilli()
	expiresAt := now + s.ttl.Milliseconds()

	filter := bson.M{
		"_id":      recordID,
		"lockedBy": userID,
	}
	update := &UpdateData{
		Set: map[string]interface{}{
			"lockExpiresAt": expiresAt,
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	_, err := s.records.FindOneAndUpdate(ctx, filter, update, opts)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// ReleaseExpiredLocks clear lease của mọi bản ghi có hạn đã qua.
// Lock sweeper gọi định kỳ; client offline giữa chừng không thể tự release
// nên Store phải dọn thay. Trả về số lease đã clear.
func (s *RecordLockService) ReleaseExpiredLocks(ctx context.Context) (int64, error) {
	now := time.Now().UnixMilli()

	filter := bson.M{
		"lockedBy":      bson.M{"$ne": nil},
		"lockExpiresAt": bson.M{"$lt": now},
	}
	update := &UpdateData{
		Set: map[string]interface{}{
			"lockedBy":      nil,
			"lockedAt":      nil,
			"lockExpiresAt": nil,
		},
	}

	return s.records.UpdateMany(ctx, filter, update, nil)
}

// clearLockFields đặt cả ba field lock về null trong một update.
// Invariant: ba field set/clear cùng nhau, không bao giờ lệch.
func (s *RecordLockService) clearLockFields(ctx context.Context, filter bson.M) error {
	update := &UpdateData{
		Set: map[string]interface{}{
			"lockedBy":      nil,
			"lockedAt":      nil,
			"lockExpiresAt": nil,
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	_, err := s.records.FindOneAndUpdate(ctx, filter, update, opts)
	return err
}
