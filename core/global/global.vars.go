package global

import (
	"github.com/devtlco1/E-Jibaya-sub000/config"
	"github.com/devtlco1/E-Jibaya-sub000/core/registry"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoDB_CollectionName chứa tên các collection trong MongoDB
type MongoDB_CollectionName struct {
	Users   string // Tên collection cho người dùng (admin + thu ngân hiện trường)
	Records string // Tên collection cho bản ghi thu thập chỉ số
}

// Các biến toàn cục
var Validate *validator.Validate                // Biến để xác thực dữ liệu
var MongoDB_Session *mongo.Client               // Phiên kết nối tới MongoDB
var MongoDB_ServerConfig *config.Configuration  // Cấu hình của server
var MongoDB_ColNames = MongoDB_CollectionName{} // Tên các collection

// Các Registry
var RegistryCollections = registry.NewRegistry[*mongo.Collection]() // Registry chứa các collections
var RegistryDatabase = registry.NewRegistry[*mongo.Database]()      // Registry chứa các databases
