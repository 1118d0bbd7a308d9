package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/devtlco1/E-Jibaya-sub000/core/api/services"
)

// RecordLockHandler xử lý các route lease sửa bản ghi.
// User id lấy từ token (Locals), không nhận từ body để client không thể
// acquire/release hộ người khác.
type RecordLockHandler struct {
	lockService *services.RecordLockService
}

// NewRecordLockHandler tạo mới RecordLockHandler
func NewRecordLockHandler() (*RecordLockHandler, error) {
	recordService, err := services.NewRecordService()
	if err != nil {
		return nil, err
	}

	return &RecordLockHandler{
		lockService: services.NewRecordLockService(recordService),
	}, nil
}

// HandleAcquire xin lease sửa bản ghi.
// Trả về 423 Locked kèm thông tin holder khi user khác đang giữ lease còn sống.
func (h *RecordLockHandler) HandleAcquire(c fiber.Ctx) error {
	recordID, err := ParseObjectID(c)
	if err != nil {
		HandleResponse(c, nil, err)
		return nil
	}

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		HandleResponse(c, nil, err)
		return nil
	}

	data, err := h.lockService.AcquireLock(c.Context(), recordID, userID)
	HandleResponse(c, data, err)
	return nil
}

// HandleRelease trả lease. Không phải holder là no-op, vẫn trả success.
func (h *RecordLockHandler) HandleRelease(c fiber.Ctx) error {
	recordID, err := ParseObjectID(c)
	if err != nil {
		HandleResponse(c, nil, err)
		return nil
	}

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		HandleResponse(c, nil, err)
		return nil
	}

	err = h.lockService.ReleaseLock(c.Context(), recordID, userID)
	HandleResponse(c, nil, err)
	return nil
}

// HandleCheck trả về trạng thái lock hiện tại của bản ghi
func (h *RecordLockHandler) HandleCheck(c fiber.Ctx) error {
	recordID, err := ParseObjectID(c)
	if err != nil {
		HandleResponse(c, nil, err)
		return nil
	}

	status, err := h.lockService.CheckLock(c.Context(), recordID)
	HandleResponse(c, status, err)
	return nil
}

// HandleExtend đẩy hạn lease thêm một TTL kể từ bây giờ
func (h *RecordLockHandler) HandleExtend(c fiber.Ctx) error {
	recordID, err := ParseObjectID(c)
	if err != nil {
		HandleResponse(c, nil, err)
		return nil
	}

	userID, err := GetUserIDFromContext(c)
	if err != nil {
		HandleResponse(c, nil, err)
		return nil
	}

	extended, err := h.lockService.ExtendLock(c.Context(), recordID, userID)
	HandleResponse(c, fiber.Map{"extended": extended}, err)
	return nil
}
