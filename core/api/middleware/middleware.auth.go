package middleware

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"

	models "github.com/devtlco1/E-Jibaya-sub000/core/api/models/mongodb"
	"github.com/devtlco1/E-Jibaya-sub000/core/api/services"
	"github.com/devtlco1/E-Jibaya-sub000/core/common"
	"github.com/devtlco1/E-Jibaya-sub000/core/global"
	"github.com/devtlco1/E-Jibaya-sub000/core/logger"
	"github.com/devtlco1/E-Jibaya-sub000/core/utility"
)

// AuthManager quản lý xác thực người dùng
type AuthManager struct {
	UserCRUD *services.UserService
	Cache    *utility.Cache
}

var (
	authManagerInstance *AuthManager
	authManagerOnce     sync.Once
)

// GetAuthManager trả về instance duy nhất của AuthManager (singleton pattern)
func GetAuthManager() *AuthManager {
	authManagerOnce.Do(func() {
		var err error
		authManagerInstance, err = newAuthManager()
		if err != nil {
			panic(err)
		}
	})
	return authManagerInstance
}

// newAuthManager khởi tạo một instance mới của AuthManager (private constructor)
func newAuthManager() (*AuthManager, error) {
	userService, err := services.NewUserService()
	if err != nil {
		return nil, err
	}

	return &AuthManager{
		UserCRUD: userService,
		// Cache user theo token, TTL 5 phút, dọn dẹp mỗi 10 phút
		Cache: utility.NewCache(5*time.Minute, 10*time.Minute),
	}, nil
}

// findUserByToken tìm user theo token, có cache để giảm query mỗi request
func (am *AuthManager) findUserByToken(c fiber.Ctx, token string) (models.User, error) {
	cacheKey := "user_token:" + token
	if cached, found := am.Cache.Get(cacheKey); found {
		return cached.(models.User), nil
	}

	user, err := am.UserCRUD.FindOne(c.Context(), bson.M{"token": token}, nil)
	if err != nil {
		return models.User{}, err
	}

	am.Cache.Set(cacheKey, user)
	return user, nil
}

// handleErrorResponse trả lỗi xác thực cho client theo format response chung
func handleErrorResponse(c fiber.Ctx, err error) {
	var customErr *common.Error
	if errors.As(err, &customErr) {
		c.Set("Content-Type", "application/json; charset=utf-8")
		c.Status(customErr.StatusCode).JSON(fiber.Map{
			"code":    customErr.Code.Code,
			"message": customErr.Message,
			"status":  "error",
		})
		return
	}

	c.Set("Content-Type", "application/json; charset=utf-8")
	c.Status(common.StatusUnauthorized).JSON(fiber.Map{
		"code":    common.ErrCodeAuthToken.Code,
		"message": err.Error(),
		"status":  "error",
	})
}

// AuthMiddleware middleware xác thực cho Fiber.
// Parse Bearer token, validate chữ ký + hạn, rồi đối chiếu với token đang lưu
// trên user (token bị clear khi block là bị thu hồi ngay).
func AuthMiddleware() fiber.Handler {
	authManager := GetAuthManager()

	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			logger.GetAppLogger().WithFields(logrus.Fields{
				"path":   c.Path(),
				"method": c.Method(),
			}).Warn("❌ [AUTH] Missing Authorization header")
			handleErrorResponse(c, common.ErrTokenMissing)
			return nil
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			handleErrorResponse(c, common.ErrTokenInvalid)
			return nil
		}
		token := parts[1]

		claims, err := utility.ParseToken(token, global.MongoDB_ServerConfig.JwtSecret)
		if err != nil {
			handleErrorResponse(c, err)
			return nil
		}

		user, err := authManager.findUserByToken(c, token)
		if err != nil {
			// Token hợp lệ về chữ ký nhưng không còn gắn với user nào
			// (đã logout, đã login nơi khác, hoặc đã bị thu hồi)
			logger.GetAppLogger().WithFields(logrus.Fields{
				"path":    c.Path(),
				"user_id": claims.UserID,
			}).Warn("❌ [AUTH] Token không còn hiệu lực")
			handleErrorResponse(c, common.ErrTokenInvalid)
			return nil
		}

		if user.IsBlock {
			handleErrorResponse(c, common.ErrUserBlocked)
			return nil
		}

		c.Locals("user_id", user.ID.Hex())
		c.Locals("user_role", user.Role)

		return c.Next()
	}
}

// RequireRole middleware kiểm tra role, dùng sau AuthMiddleware.
// Route admin-only gắn RequireRole(models.RoleAdmin).
func RequireRole(role string) fiber.Handler {
	return func(c fiber.Ctx) error {
		userRole, ok := c.Locals("user_role").(string)
		if !ok || userRole != role {
			handleErrorResponse(c, common.NewError(
				common.ErrCodeAuthRole,
				"Không có quyền thực hiện thao tác này",
				common.StatusForbidden,
				nil,
			))
			return nil
		}
		return c.Next()
	}
}
