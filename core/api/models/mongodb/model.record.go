package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Trạng thái thu thập của bản ghi
const (
	RecordStatusPending   = "pending"   // Chưa thu thập
	RecordStatusCollected = "collected" // Đã thu thập chỉ số
	RecordStatusVerified  = "verified"  // Đã đối soát
	RecordStatusRejected  = "rejected"  // Bị trả lại, cần thu thập lại
)

// Loại hình dịch vụ của bản ghi
const (
	RecordCategoryElectricity = "electricity"
	RecordCategoryWater       = "water"
)

// Record là đơn vị dữ liệu thu thập chỉ số điện nước của một hộ.
// Collection: records
//
// Ba field lock (lockedBy, lockedAt, lockExpiresAt) tạo thành lease sửa bản ghi:
// set cùng nhau khi acquire, clear cùng nhau khi release/hết hạn. Bản ghi kiêm
// luôn vai trò lock, không có bảng lock riêng. Chỉ RecordLockService và lock
// sweeper được ghi ba field này.
type Record struct {
	ID primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`

	// Thông tin hộ sử dụng
	SubscriberName string `json:"subscriberName" bson:"subscriberName" index:"text"`          // Tên chủ hộ
	AccountNumber  string `json:"accountNumber" bson:"accountNumber" index:"unique"`          // Số tài khoản khách hàng
	MeterNumber    string `json:"meterNumber,omitempty" bson:"meterNumber,omitempty" index:"single"` // Số công tơ
	Phone          string `json:"phone,omitempty" bson:"phone,omitempty"`

	// Phân vùng địa lý
	Region string `json:"region,omitempty" bson:"region,omitempty" index:"single;compound:region_zone_block"` // Vùng
	Zone   string `json:"zone,omitempty" bson:"zone,omitempty" index:"compound:region_zone_block"`            // Khu
	Block  string `json:"block,omitempty" bson:"block,omitempty" index:"compound:region_zone_block"`          // Lô
	Address string `json:"address,omitempty" bson:"address,omitempty"`

	// Chỉ số và thành tiền
	PreviousReading float64 `json:"previousReading" bson:"previousReading"` // Chỉ số kỳ trước
	CurrentReading  float64 `json:"currentReading" bson:"currentReading"`   // Chỉ số kỳ này
	Consumption     float64 `json:"consumption" bson:"consumption"`         // Sản lượng tiêu thụ
	Amount          float64 `json:"amount" bson:"amount"`                   // Thành tiền
	Phase           string  `json:"phase,omitempty" bson:"phase,omitempty"` // Pha (điện 1 pha / 3 pha)

	// Phân loại và trạng thái
	Category string `json:"category" bson:"category" index:"single"`        // electricity | water
	Status   string `json:"status" bson:"status" index:"single" default:"pending"` // pending | collected | verified | rejected

	// Cờ đối soát
	IsVerified   bool   `json:"isVerified" bson:"isVerified" index:"single"` // Đã đối soát xong
	VerifiedBy   *primitive.ObjectID `json:"verifiedBy,omitempty" bson:"verifiedBy,omitempty"`
	VerifiedAt   *int64 `json:"verifiedAt,omitempty" bson:"verifiedAt,omitempty"`
	VerifyNote   string `json:"verifyNote,omitempty" bson:"verifyNote,omitempty"`

	// Phân công
	AgentID  *primitive.ObjectID `json:"agentId,omitempty" bson:"agentId,omitempty" index:"single"` // Thu ngân phụ trách
	BranchID string              `json:"branchId,omitempty" bson:"branchId,omitempty" index:"single"` // Chi nhánh quản lý

	// Lease sửa bản ghi
	LockedBy      *primitive.ObjectID `json:"lockedBy,omitempty" bson:"lockedBy,omitempty"`
	LockedAt      *int64              `json:"lockedAt,omitempty" bson:"lockedAt,omitempty"`
	LockExpiresAt *int64              `json:"lockExpiresAt,omitempty" bson:"lockExpiresAt,omitempty" index:"single"`

	Note string `json:"note,omitempty" bson:"note,omitempty"`

	// Timestamps
	CreatedAt int64 `json:"createdAt" bson:"createdAt" index:"single,order:-1"`
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"`
}

// LockStatus là kết quả của thao tác checkLock.
type LockStatus struct {
	IsLocked      bool                `json:"isLocked"`
	LockedBy      *primitive.ObjectID `json:"lockedBy,omitempty"`
	LockExpiresAt *int64              `json:"lockExpiresAt,omitempty"`
}
