// Package dto chứa các cấu trúc input/output cho API.
package dto

// RecordCreateInput dữ liệu đầu vào để tạo bản ghi thu thập
type RecordCreateInput struct {
	SubscriberName  string  `json:"subscriberName" validate:"required,no_xss"`
	AccountNumber   string  `json:"accountNumber" validate:"required"`
	MeterNumber     string  `json:"meterNumber,omitempty"`
	Phone           string  `json:"phone,omitempty"`
	Region          string  `json:"region,omitempty"`
	Zone            string  `json:"zone,omitempty"`
	Block           string  `json:"block,omitempty"`
	Address         string  `json:"address,omitempty" validate:"omitempty,no_xss"`
	PreviousReading float64 `json:"previousReading,omitempty"`
	CurrentReading  float64 `json:"currentReading,omitempty"`
	Amount          float64 `json:"amount,omitempty"`
	Phase           string  `json:"phase,omitempty"`
	Category        string  `json:"category" validate:"required,oneof=electricity water"`
	AgentID         string  `json:"agentId,omitempty" validate:"omitempty,exists=users"`
	BranchID        string  `json:"branchId,omitempty"`
	Note            string  `json:"note,omitempty" validate:"omitempty,no_xss"`
}

// RecordUpdateInput dữ liệu đầu vào để cập nhật bản ghi.
// Không chứa các field lock; lease chỉ đi qua các endpoint lock.
type RecordUpdateInput struct {
	SubscriberName  *string  `json:"subscriberName,omitempty" validate:"omitempty,no_xss"`
	MeterNumber     *string  `json:"meterNumber,omitempty"`
	Phone           *string  `json:"phone,omitempty"`
	Region          *string  `json:"region,omitempty"`
	Zone            *string  `json:"zone,omitempty"`
	Block           *string  `json:"block,omitempty"`
	Address         *string  `json:"address,omitempty" validate:"omitempty,no_xss"`
	PreviousReading *float64 `json:"previousReading,omitempty"`
	CurrentReading  *float64 `json:"currentReading,omitempty"`
	Amount          *float64 `json:"amount,omitempty"`
	Phase           *string  `json:"phase,omitempty"`
	Status          *string  `json:"status,omitempty" validate:"omitempty,oneof=pending collected verified rejected"`
	AgentID         *string  `json:"agentId,omitempty" validate:"omitempty,exists=users"`
	BranchID        *string  `json:"branchId,omitempty"`
	Note            *string  `json:"note,omitempty" validate:"omitempty,no_xss"`
}

// RecordVerifyInput dữ liệu đầu vào cho thao tác đối soát
type RecordVerifyInput struct {
	IsVerified bool   `json:"isVerified"`
	VerifyNote string `json:"verifyNote,omitempty" validate:"omitempty,no_xss"`
}

// RecordFilterInput là tập predicate lọc bản ghi do client giữ.
// Dùng cho cả truy vấn Store lẫn kiểm tra cục bộ xem một push event có
// liên quan đến trang đang hiển thị hay không.
type RecordFilterInput struct {
	Name          string `json:"name,omitempty" query:"name"`                   // Substring tên chủ hộ
	Search        string `json:"search,omitempty" query:"search"`               // Substring số tài khoản / số công tơ
	Region        string `json:"region,omitempty" query:"region"`
	Zone          string `json:"zone,omitempty" query:"zone"`
	Block         string `json:"block,omitempty" query:"block"`
	Status        string `json:"status,omitempty" query:"status"`
	Verified      *bool  `json:"verified,omitempty" query:"verified"`
	Category      string `json:"category,omitempty" query:"category"`
	Phase         string `json:"phase,omitempty" query:"phase"`
	AgentID       string `json:"agentId,omitempty" query:"agentId"`
	BranchID      string `json:"branchId,omitempty" query:"branchId"`
}
