package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/devtlco1/E-Jibaya-sub000/core/api/dto"
	models "github.com/devtlco1/E-Jibaya-sub000/core/api/models/mongodb"
	"github.com/devtlco1/E-Jibaya-sub000/core/api/services"
	"github.com/devtlco1/E-Jibaya-sub000/core/common"
)

// RecordHandler xử lý các route bản ghi thu thập chỉ số
type RecordHandler struct {
	*BaseHandler[models.Record, dto.RecordCreateInput, dto.RecordUpdateInput]
	recordService *services.RecordService
}

// NewRecordHandler tạo mới RecordHandler
func NewRecordHandler() (*RecordHandler, error) {
	recordService, err := services.NewRecordService()
	if err != nil {
		return nil, err
	}

	return &RecordHandler{
		BaseHandler:   NewBaseHandler[models.Record, dto.RecordCreateInput, dto.RecordUpdateInput](recordService),
		recordService: recordService,
	}, nil
}

// parseFilter bind RecordFilterInput từ query string
func (h *RecordHandler) parseFilter(c fiber.Ctx) (*dto.RecordFilterInput, error) {
	var filter dto.RecordFilterInput
	if err := c.Bind().Query(&filter); err != nil {
		return nil, common.NewError(common.ErrCodeValidationFormat, common.MsgValidationError, common.StatusBadRequest, err)
	}
	return &filter, nil
}

// HandleCreate tạo bản ghi mới
func (h *RecordHandler) HandleCreate(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		var input dto.RecordCreateInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		data, err := h.recordService.Create(c.Context(), &input)
		h.HandleResponse(c, data, err)
		return nil
	})
}

// HandleUpdate cập nhật bản ghi theo input partial
func (h *RecordHandler) HandleUpdate(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		id, err := ParseObjectID(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		var input dto.RecordUpdateInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		data, err := h.recordService.Update(c.Context(), id, &input)
		h.HandleResponse(c, data, err)
		return nil
	})
}

// HandleVerify đánh dấu bản ghi đã/chưa đối soát
func (h *RecordHandler) HandleVerify(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		id, err := ParseObjectID(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		verifierID, err := GetUserIDFromContext(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		var input dto.RecordVerifyInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		data, err := h.recordService.Verify(c.Context(), id, verifierID, &input)
		h.HandleResponse(c, data, err)
		return nil
	})
}

// HandleFindPage trả về một trang bản ghi theo filter, mới nhất trước
func (h *RecordHandler) HandleFindPage(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		filter, err := h.parseFilter(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		page, limit := h.ParsePagination(c)

		data, err := h.recordService.FindPage(c.Context(), filter, page, limit)
		h.HandleResponse(c, data, err)
		return nil
	})
}

// HandleCount đếm bản ghi theo filter; client poll endpoint này mỗi chu kỳ
// để phát hiện bản ghi mới khi kênh push rớt event
func (h *RecordHandler) HandleCount(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		filter, err := h.parseFilter(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		count, err := h.recordService.CountRecords(c.Context(), filter)
		h.HandleResponse(c, fiber.Map{"count": count}, err)
		return nil
	})
}

// HandleLatest trả về bản ghi mới nhất khớp filter
func (h *RecordHandler) HandleLatest(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		filter, err := h.parseFilter(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		data, err := h.recordService.LatestRecord(c.Context(), filter)
		h.HandleResponse(c, data, err)
		return nil
	})
}
