// Package reconcile giữ view bản ghi (phân trang + filter) tươi gần realtime
// bằng hai tín hiệu dư thừa: push event từ bus dữ liệu và poll đếm định kỳ.
package reconcile

import (
	models "github.com/devtlco1/E-Jibaya-sub000/core/api/models/mongodb"
)

// UpdateClass phân loại một update để quyết định phản ứng của reconciler
type UpdateClass int

const (
	// UpdateOrdinary: field nghiệp vụ thường đổi: refetch trang + notify
	UpdateOrdinary UpdateClass = iota
	// UpdateLockOnly: chỉ ba field lock đổi: patch cache tại chỗ, im lặng
	UpdateLockOnly
	// UpdateVerificationOnly: chỉ field verification đổi: không notify,
	// không refetch (flow đối soát có messaging riêng)
	UpdateVerificationOnly
	// UpdateVerificationMixed: verification đổi kèm field khác: refetch
	// nhưng không phát notify "đã cập nhật" chung
	UpdateVerificationMixed
	// UpdateNone: không field nào đáng quan tâm đổi
	UpdateNone
)

func int64PtrEqual(a, b *int64) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	if a == nil {
		return true
	}
	return *a == *b
}

// lockChanged kiểm tra ba field lock có đổi giữa hai bản không
func lockChanged(prev, cur *models.Record) bool {
	prevBy := prev.LockedBy
	curBy := cur.LockedBy
	if (prevBy == nil) != (curBy == nil) {
		return true
	}
	if prevBy != nil && *prevBy != *curBy {
		return true
	}
	return !int64PtrEqual(prev.LockedAt, cur.LockedAt) ||
		!int64PtrEqual(prev.LockExpiresAt, cur.LockExpiresAt)
}

// verificationChanged kiểm tra các field đối soát có đổi không
func verificationChanged(prev, cur *models.Record) bool {
	if prev.IsVerified != cur.IsVerified || prev.VerifyNote != cur.VerifyNote {
		return true
	}
	prevBy := prev.VerifiedBy
	curBy := cur.VerifiedBy
	if (prevBy == nil) != (curBy == nil) {
		return true
	}
	if prevBy != nil && *prevBy != *curBy {
		return true
	}
	return !int64PtrEqual(prev.VerifiedAt, cur.VerifiedAt)
}

// businessChanged kiểm tra các field nghiệp vụ thường (ngoài lock và
// verification) có đổi không. UpdatedAt không tính: mọi update đều đổi nó.
func businessChanged(prev, cur *models.Record) bool {
	if prev.SubscriberName != cur.SubscriberName ||
		prev.AccountNumber != cur.AccountNumber ||
		prev.MeterNumber != cur.MeterNumber ||
		prev.Phone != cur.Phone ||
		prev.Region != cur.Region ||
		prev.Zone != cur.Zone ||
		prev.Block != cur.Block ||
		prev.Address != cur.Address ||
		prev.PreviousReading != cur.PreviousReading ||
		prev.CurrentReading != cur.CurrentReading ||
		prev.Consumption != cur.Consumption ||
		prev.Amount != cur.Amount ||
		prev.Phase != cur.Phase ||
		prev.Category != cur.Category ||
		prev.Status != cur.Status ||
		prev.BranchID != cur.BranchID ||
		prev.Note != cur.Note {
		return true
	}

	prevAgent := prev.AgentID
	curAgent := cur.AgentID
	if (prevAgent == nil) != (curAgent == nil) {
		return true
	}
	if prevAgent != nil && *prevAgent != *curAgent {
		return true
	}

	return false
}

// ClassifyUpdate phân loại một update dựa trên bản trước và bản sau.
// Thiếu bản trước (prev nil) thì không phân biệt được: coi là ordinary.
func ClassifyUpdate(prev, cur *models.Record) UpdateClass {
	if cur == nil {
		return UpdateNone
	}
	if prev == nil {
		return UpdateOrdinary
	}

	lock := lockChanged(prev, cur)
	verification := verificationChanged(prev, cur)
	business := businessChanged(prev, cur)

	switch {
	case !lock && !verification && !business:
		return UpdateNone
	case lock && !verification && !business:
		return UpdateLockOnly
	case verification && !business:
		// Lock đổi kèm verification vẫn thuộc nhánh verification: notify
		// chung bị suppress, lock được patch riêng qua cache
		return UpdateVerificationOnly
	case verification && business:
		return UpdateVerificationMixed
	default:
		return UpdateOrdinary
	}
}
