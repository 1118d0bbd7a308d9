package main

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/devtlco1/E-Jibaya-sub000/config"
	models "github.com/devtlco1/E-Jibaya-sub000/core/api/models/mongodb"
	"github.com/devtlco1/E-Jibaya-sub000/core/database"
	"github.com/devtlco1/E-Jibaya-sub000/core/global"
)

// Hàm khởi tạo các biến toàn cục
func InitGlobal() {
	initColNames()         // Khởi tạo tên các collection trong database
	initValidator()        // Khởi tạo validator
	initConfig()           // Khởi tạo cấu hình server
	initDatabase_MongoDB() // Khởi tạo kết nối database
}

// Hàm khởi tạo tên các collection trong database
func initColNames() {
	global.MongoDB_ColNames.Users = "users"
	global.MongoDB_ColNames.Records = "records"

	logrus.Info("Initialized collection names")
}

// Hàm khởi tạo validator (global.InitValidator đăng ký custom validators: no_xss, strong_password, exists)
func initValidator() {
	global.InitValidator()
	logrus.Info("Initialized validator")
}

// Hàm khởi tạo cấu hình server
func initConfig() {
	global.MongoDB_ServerConfig = config.NewConfig()
	if global.MongoDB_ServerConfig == nil {
		logrus.Fatalf("Failed to initialize config: config is nil")
	}
	logrus.Info("Initialized server config")
}

// Hàm khởi tạo kết nối database
func initDatabase_MongoDB() {
	var err error
	global.MongoDB_Session, err = database.Connect(global.MongoDB_ServerConfig.MongoDB_ConnectionURI)
	if err != nil {
		logrus.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	logrus.Info("Connected to MongoDB")

	// Khởi tạo db và collections nếu chưa có
	if err := database.EnsureDatabaseAndCollections(global.MongoDB_Session); err != nil {
		logrus.Fatalf("Failed to ensure database and collections: %v", err)
	}
	logrus.Info("Ensured database and collections")

	// Khởi tạo các index cho các collection theo tag trên model
	dbName := global.MongoDB_ServerConfig.MongoDB_DBName
	db := global.MongoDB_Session.Database(dbName)
	if err := database.CreateIndexes(context.TODO(), db.Collection(global.MongoDB_ColNames.Users), models.User{}); err != nil {
		logrus.Errorf("Failed to create indexes for users: %v", err)
	}
	if err := database.CreateIndexes(context.TODO(), db.Collection(global.MongoDB_ColNames.Records), models.Record{}); err != nil {
		logrus.Errorf("Failed to create indexes for records: %v", err)
	}
	logrus.Info("Created collection indexes")
}
