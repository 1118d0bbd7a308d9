package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Vai trò người dùng
const (
	RoleAdmin = "admin" // Quản trị dashboard
	RoleAgent = "agent" // Thu ngân hiện trường
)

// User định nghĩa mô hình người dùng (admin dashboard + thu ngân hiện trường)
type User struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	Email     string             `json:"email" bson:"email" index:"unique"`
	Password  string             `json:"-" bson:"password,omitempty"`
	Role      string             `json:"role" bson:"role" default:"agent"` // admin | agent
	BranchID  string             `json:"branchId,omitempty" bson:"branchId,omitempty" index:"single"`
	Token     string             `json:"token,omitempty" bson:"token,omitempty"`
	IsBlock   bool               `json:"-" bson:"isBlock"`
	BlockNote string             `json:"-" bson:"blockNote,omitempty"`
	CreatedAt int64              `json:"createdAt" bson:"createdAt"`
	UpdatedAt int64              `json:"updatedAt" bson:"updatedAt"`
}
