package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	models "github.com/devtlco1/E-Jibaya-sub000/core/api/models/mongodb"
)

func baseRecord() *models.Record {
	return &models.Record{
		ID:             primitive.NewObjectID(),
		SubscriberName: "Trần Thị Bình",
		AccountNumber:  "ACC-2024-0007",
		MeterNumber:    "MTR-1234",
		Region:         "south",
		Zone:           "z2",
		Block:          "b1",
		CurrentReading: 1200,
		Status:         models.RecordStatusPending,
		Category:       models.RecordCategoryWater,
	}
}

func clone(r *models.Record) *models.Record {
	c := *r
	return &c
}

func TestClassifyUpdate(t *testing.T) {
	userID := primitive.NewObjectID()
	now := int64(1_700_000_000_000)

	t.Run("không field nào đổi", func(t *testing.T) {
		prev := baseRecord()
		cur := clone(prev)
		cur.UpdatedAt = now
		assert.Equal(t, UpdateNone, ClassifyUpdate(prev, cur))
	})

	t.Run("chỉ ba field lock đổi", func(t *testing.T) {
		prev := baseRecord()
		cur := clone(prev)
		expires := now + 30*60*1000
		cur.LockedBy = &userID
		cur.LockedAt = &now
		cur.LockExpiresAt = &expires
		assert.Equal(t, UpdateLockOnly, ClassifyUpdate(prev, cur))
	})

	t.Run("release lock cũng là lock-only", func(t *testing.T) {
		prev := baseRecord()
		expires := now + 10_000
		prev.LockedBy = &userID
		prev.LockedAt = &now
		prev.LockExpiresAt = &expires
		cur := clone(prev)
		cur.LockedBy = nil
		cur.LockedAt = nil
		cur.LockExpiresAt = nil
		assert.Equal(t, UpdateLockOnly, ClassifyUpdate(prev, cur))
	})

	t.Run("chỉ verification đổi", func(t *testing.T) {
		prev := baseRecord()
		cur := clone(prev)
		cur.IsVerified = true
		cur.VerifiedBy = &userID
		cur.VerifiedAt = &now
		assert.Equal(t, UpdateVerificationOnly, ClassifyUpdate(prev, cur))
	})

	t.Run("verification kèm field nghiệp vụ", func(t *testing.T) {
		prev := baseRecord()
		cur := clone(prev)
		cur.IsVerified = true
		cur.VerifiedBy = &userID
		cur.VerifiedAt = &now
		cur.Status = models.RecordStatusVerified
		assert.Equal(t, UpdateVerificationMixed, ClassifyUpdate(prev, cur))
	})

	t.Run("field nghiệp vụ thường đổi", func(t *testing.T) {
		prev := baseRecord()
		cur := clone(prev)
		cur.CurrentReading = 1350
		cur.Consumption = 150
		assert.Equal(t, UpdateOrdinary, ClassifyUpdate(prev, cur))
	})

	t.Run("lock đổi kèm nghiệp vụ vẫn là ordinary", func(t *testing.T) {
		prev := baseRecord()
		cur := clone(prev)
		cur.LockedBy = &userID
		cur.Note = "đã ghé nhà, chưa gặp"
		assert.Equal(t, UpdateOrdinary, ClassifyUpdate(prev, cur))
	})

	t.Run("gán agent là thay đổi nghiệp vụ", func(t *testing.T) {
		prev := baseRecord()
		cur := clone(prev)
		agent := primitive.NewObjectID()
		cur.AgentID = &agent
		assert.Equal(t, UpdateOrdinary, ClassifyUpdate(prev, cur))
	})

	t.Run("thiếu bản trước coi là ordinary", func(t *testing.T) {
		assert.Equal(t, UpdateOrdinary, ClassifyUpdate(nil, baseRecord()))
	})

	t.Run("thiếu bản sau là none", func(t *testing.T) {
		assert.Equal(t, UpdateNone, ClassifyUpdate(baseRecord(), nil))
	})
}
