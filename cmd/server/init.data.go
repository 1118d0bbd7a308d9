package main

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/devtlco1/E-Jibaya-sub000/core/api/dto"
	models "github.com/devtlco1/E-Jibaya-sub000/core/api/models/mongodb"
	"github.com/devtlco1/E-Jibaya-sub000/core/api/services"
	"github.com/devtlco1/E-Jibaya-sub000/core/global"
	"github.com/devtlco1/E-Jibaya-sub000/core/logger"
)

// InitDefaultData tạo tài khoản admin mặc định khi hệ thống chưa có user nào.
// Email/password đọc từ config (ADMIN_EMAIL, ADMIN_PASSWORD); không có
// ADMIN_PASSWORD thì bỏ qua, user đầu tiên đăng ký sẽ tự động là admin.
func InitDefaultData() {
	log := logger.GetAppLogger()
	log.Info("🔄 [INIT] Starting InitDefaultData...")

	cfg := global.MongoDB_ServerConfig

	userService, err := services.NewUserService()
	if err != nil {
		log.Fatalf("Failed to initialize user service: %v", err)
	}

	total, err := userService.CountDocuments(context.TODO(), bson.M{})
	if err != nil {
		log.Fatalf("Failed to count users: %v", err)
	}

	if total > 0 {
		log.Info("✅ [INIT] Users already exist, skipping default admin")
		return
	}

	if cfg.AdminPassword == "" {
		log.Info("ADMIN_PASSWORD not set")
		log.Info("User đầu tiên được tạo sẽ tự động trở thành admin")
		return
	}

	admin, err := userService.Create(context.TODO(), &dto.UserCreateInput{
		Name:     "Administrator",
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		Role:     models.RoleAdmin,
	})
	if err != nil {
		log.Fatalf("Failed to create default admin: %v", err)
	}

	log.Infof("✅ [INIT] Default admin created (ID: %s)", admin.ID.Hex())
}
