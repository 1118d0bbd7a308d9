package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/devtlco1/E-Jibaya-sub000/core/api/dto"
	models "github.com/devtlco1/E-Jibaya-sub000/core/api/models/mongodb"
	"github.com/devtlco1/E-Jibaya-sub000/core/api/services"
	"go.mongodb.org/mongo-driver/bson"
)

// UserHandler xử lý các route người dùng và xác thực
type UserHandler struct {
	*BaseHandler[models.User, dto.UserCreateInput, dto.UserUpdateInput]
	userService *services.UserService
}

// NewUserHandler tạo mới UserHandler
func NewUserHandler() (*UserHandler, error) {
	userService, err := services.NewUserService()
	if err != nil {
		return nil, err
	}

	return &UserHandler{
		BaseHandler: NewBaseHandler[models.User, dto.UserCreateInput, dto.UserUpdateInput](userService),
		userService: userService,
	}, nil
}

// HandleLogin xác thực email/password và trả về JWT token
func (h *UserHandler) HandleLogin(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		var input dto.UserLoginInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		result, err := h.userService.Login(c.Context(), &input)
		h.HandleResponse(c, result, err)
		return nil
	})
}

// HandleMe trả về thông tin user hiện tại theo token
func (h *UserHandler) HandleMe(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		userID, err := GetUserIDFromContext(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		user, err := h.userService.FindOneById(c.Context(), userID)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		user.Password = ""
		user.Token = ""
		h.HandleResponse(c, user, nil)
		return nil
	})
}

// HandleCreate tạo người dùng mới (admin-only route)
func (h *UserHandler) HandleCreate(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		var input dto.UserCreateInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		user, err := h.userService.Create(c.Context(), &input)
		h.HandleResponse(c, user, err)
		return nil
	})
}

// HandleUpdate cập nhật người dùng theo input partial
func (h *UserHandler) HandleUpdate(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		id, err := ParseObjectID(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		var input dto.UserUpdateInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		user, err := h.userService.Update(c.Context(), id, &input)
		h.HandleResponse(c, user, err)
		return nil
	})
}

// HandleFindPage trả về một trang người dùng
func (h *UserHandler) HandleFindPage(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		page, limit := h.ParsePagination(c)

		result, err := h.userService.FindWithPagination(c.Context(), bson.M{}, page, limit, nil)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		// Không trả password/token ra ngoài
		for i := range result.Items {
			result.Items[i].Password = ""
			result.Items[i].Token = ""
		}
		h.HandleResponse(c, result, nil)
		return nil
	})
}
