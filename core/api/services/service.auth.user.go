package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/devtlco1/E-Jibaya-sub000/core/api/dto"
	models "github.com/devtlco1/E-Jibaya-sub000/core/api/models/mongodb"
	"github.com/devtlco1/E-Jibaya-sub000/core/common"
	"github.com/devtlco1/E-Jibaya-sub000/core/global"
	"github.com/devtlco1/E-Jibaya-sub000/core/logger"
	"github.com/devtlco1/E-Jibaya-sub000/core/utility"
)

// UserService là cấu trúc chứa các phương thức liên quan đến người dùng
type UserService struct {
	*BaseServiceMongoImpl[models.User]
	collection *mongo.Collection
}

// NewUserService tạo mới UserService
func NewUserService() (*UserService, error) {
	userCollection, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.Users)
	if !exist {
		return nil, fmt.Errorf("failed to get users collection: %v", common.ErrNotFound)
	}

	return &UserService{
		BaseServiceMongoImpl: NewBaseServiceMongo[models.User](userCollection),
		collection:           userCollection,
	}, nil
}

// Create tạo người dùng mới.
// User đầu tiên của hệ thống luôn là admin, bất kể role trong input.
func (s *UserService) Create(ctx context.Context, input *dto.UserCreateInput) (models.User, error) {
	var zero models.User

	if err := global.Validate.Struct(input); err != nil {
		return zero, common.NewError(common.ErrCodeValidationInput, common.MsgValidationError, common.StatusBadRequest, err)
	}

	exists, err := s.DocumentExists(ctx, bson.M{"email": input.Email})
	if err != nil {
		return zero, err
	}
	if exists {
		return zero, common.NewError(common.ErrCodeValidationInput, "Email đã được sử dụng", common.StatusConflict, nil)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return zero, common.NewError(common.ErrCodeInternalServer, common.MsgInternalError, common.StatusInternalServerError, err)
	}

	role := input.Role
	if role == "" {
		role = models.RoleAgent
	}

	total, err := s.CountDocuments(ctx, bson.M{})
	if err != nil {
		return zero, err
	}
	if total == 0 {
		role = models.RoleAdmin
	}

	user := models.User{
		Name:     input.Name,
		Email:    input.Email,
		Password: string(hashed),
		Role:     role,
		BranchID: input.BranchID,
	}

	created, err := s.InsertOne(ctx, user)
	if err != nil {
		return zero, err
	}

	logger.WithModule("auth").WithFields(map[string]interface{}{
		"user_id": created.ID.Hex(),
		"role":    created.Role,
	}).Info("Đã tạo người dùng mới")

	created.Password = ""
	return created, nil
}

// Login xác thực email/password và trả về JWT token
func (s *UserService) Login(ctx context.Context, input *dto.UserLoginInput) (*dto.UserLoginResult, error) {
	if err := global.Validate.Struct(input); err != nil {
		return nil, common.NewError(common.ErrCodeValidationInput, common.MsgValidationError, common.StatusBadRequest, err)
	}

	user, err := s.FindOne(ctx, bson.M{"email": input.Email}, nil)
	if err != nil {
		// Không lộ việc email có tồn tại hay không
		return nil, common.ErrInvalidCredentials
	}

	if user.IsBlock {
		return nil, common.ErrUserBlocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return nil, common.ErrInvalidCredentials
	}

	token, err := utility.CreateToken(user.ID.Hex(), user.Role, global.MongoDB_ServerConfig.JwtSecret)
	if err != nil {
		return nil, common.NewError(common.ErrCodeInternalServer, common.MsgInternalError, common.StatusInternalServerError, err)
	}

	// Lưu token mới nhất để có thể thu hồi khi block user
	_, err = s.UpdateById(ctx, user.ID, &UpdateData{Set: map[string]interface{}{"token": token}})
	if err != nil {
		return nil, err
	}

	user.Password = ""
	user.Token = ""
	return &dto.UserLoginResult{Token: token, User: user}, nil
}

// Update cập nhật người dùng theo input partial
func (s *UserService) Update(ctx context.Context, id primitive.ObjectID, input *dto.UserUpdateInput) (models.User, error) {
	var zero models.User

	if err := global.Validate.Struct(input); err != nil {
		return zero, common.NewError(common.ErrCodeValidationInput, common.MsgValidationError, common.StatusBadRequest, err)
	}

	set := bson.M{}
	if input.Name != nil {
		set["name"] = *input.Name
	}
	if input.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return zero, common.NewError(common.ErrCodeInternalServer, common.MsgInternalError, common.StatusInternalServerError, err)
		}
		set["password"] = string(hashed)
	}
	if input.Role != nil {
		set["role"] = *input.Role
	}
	if input.BranchID != nil {
		set["branchId"] = *input.BranchID
	}
	if input.IsBlock != nil {
		set["isBlock"] = *input.IsBlock
		if *input.IsBlock {
			// Thu hồi token khi block
			set["token"] = ""
		}
	}

	if len(set) == 0 {
		return s.FindOneById(ctx, id)
	}

	updated, err := s.UpdateById(ctx, id, &UpdateData{Set: set})
	if err != nil {
		return zero, err
	}

	updated.Password = ""
	return updated, nil
}
