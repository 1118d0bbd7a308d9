package dto

// UserLoginInput dữ liệu đăng nhập
type UserLoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserCreateInput dữ liệu tạo người dùng mới (admin tạo tài khoản thu ngân)
type UserCreateInput struct {
	Name     string `json:"name" validate:"required,no_xss"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,strong_password"`
	Role     string `json:"role,omitempty" validate:"omitempty,oneof=admin agent"`
	BranchID string `json:"branchId,omitempty"`
}

// UserUpdateInput dữ liệu cập nhật người dùng
type UserUpdateInput struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,no_xss"`
	Password *string `json:"password,omitempty" validate:"omitempty,strong_password"`
	Role     *string `json:"role,omitempty" validate:"omitempty,oneof=admin agent"`
	BranchID *string `json:"branchId,omitempty"`
	IsBlock  *bool   `json:"isBlock,omitempty"`
}

// UserLoginResult kết quả đăng nhập
type UserLoginResult struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}
