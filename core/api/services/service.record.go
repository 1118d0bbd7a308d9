package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/devtlco1/E-Jibaya-sub000/core/api/dto"
	models "github.com/devtlco1/E-Jibaya-sub000/core/api/models/mongodb"
	"github.com/devtlco1/E-Jibaya-sub000/core/common"
	"github.com/devtlco1/E-Jibaya-sub000/core/global"
	"github.com/devtlco1/E-Jibaya-sub000/core/utility"
)

// RecordService là service nghiệp vụ cho bản ghi thu thập chỉ số
type RecordService struct {
	*BaseServiceMongoImpl[models.Record]
	collection *mongo.Collection
}

// NewRecordService tạo mới RecordService
func NewRecordService() (*RecordService, error) {
	recordCollection, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.Records)
	if !exist {
		return nil, fmt.Errorf("failed to get records collection: %v", common.ErrNotFound)
	}

	return &RecordService{
		BaseServiceMongoImpl: NewBaseServiceMongo[models.Record](recordCollection),
		collection:           recordCollection,
	}, nil
}

// Create tạo bản ghi mới từ input
func (s *RecordService) Create(ctx context.Context, input *dto.RecordCreateInput) (models.Record, error) {
	var zero models.Record

	if err := global.Validate.Struct(input); err != nil {
		return zero, common.NewError(common.ErrCodeValidationInput, common.MsgValidationError, common.StatusBadRequest, err)
	}

	record := models.Record{
		SubscriberName:  input.SubscriberName,
		AccountNumber:   input.AccountNumber,
		MeterNumber:     input.MeterNumber,
		Phone:           input.Phone,
		Region:          input.Region,
		Zone:            input.Zone,
		Block:           input.Block,
		Address:         input.Address,
		PreviousReading: input.PreviousReading,
		CurrentReading:  input.CurrentReading,
		Consumption:     input.CurrentReading - input.PreviousReading,
		Amount:          input.Amount,
		Phase:           input.Phase,
		Category:        input.Category,
		Status:          models.RecordStatusPending,
		BranchID:        input.BranchID,
		Note:            input.Note,
	}

	if input.AgentID != "" {
		agentID, err := utility.String2ObjectID(input.AgentID)
		if err != nil {
			return zero, common.ErrInvalidFormat
		}
		record.AgentID = &agentID
	}

	return s.InsertOne(ctx, record)
}

// Update cập nhật bản ghi theo input partial.
// Các field lock không đi qua đây (invariant: chỉ lock service ghi chúng).
func (s *RecordService) Update(ctx context.Context, id primitive.ObjectID, input *dto.RecordUpdateInput) (models.Record, error) {
	var zero models.Record

	if err := global.Validate.Struct(input); err != nil {
		return zero, common.NewError(common.ErrCodeValidationInput, common.MsgValidationError, common.StatusBadRequest, err)
	}

	set := bson.M{}
	if input.SubscriberName != nil {
		set["subscriberName"] = *input.SubscriberName
	}
	if input.MeterNumber != nil {
		set["meterNumber"] = *input.MeterNumber
	}
	if input.Phone != nil {
		set["phone"] = *input.Phone
	}
	if input.Region != nil {
		set["region"] = *input.Region
	}
	if input.Zone != nil {
		set["zone"] = *input.Zone
	}
	if input.Block != nil {
		set["block"] = *input.Block
	}
	if input.Address != nil {
		set["address"] = *input.Address
	}
	if input.PreviousReading != nil {
		set["previousReading"] = *input.PreviousReading
	}
	if input.CurrentReading != nil {
		set["currentReading"] = *input.CurrentReading
	}
	if input.Amount != nil {
		set["amount"] = *input.Amount
	}
	if input.Phase != nil {
		set["phase"] = *input.Phase
	}
	if input.Status != nil {
		set["status"] = *input.Status
	}
	if input.BranchID != nil {
		set["branchId"] = *input.BranchID
	}
	if input.Note != nil {
		set["note"] = *input.Note
	}
	if input.AgentID != nil {
		if *input.AgentID == "" {
			set["agentId"] = nil
		} else {
			agentID, err := utility.String2ObjectID(*input.AgentID)
			if err != nil {
				return zero, common.ErrInvalidFormat
			}
			set["agentId"] = agentID
		}
	}

	// Sản lượng tính lại nếu một trong hai chỉ số đổi
	if input.PreviousReading != nil || input.CurrentReading != nil {
		existing, err := s.FindOneById(ctx, id)
		if err != nil {
			return zero, err
		}
		prev := existing.PreviousReading
		cur := existing.CurrentReading
		if input.PreviousReading != nil {
			prev = *input.PreviousReading
		}
		if input.CurrentReading != nil {
			cur = *input.CurrentReading
		}
		set["consumption"] = cur - prev
	}

	if len(set) == 0 {
		return s.FindOneById(ctx, id)
	}

	return s.UpdateById(ctx, id, &UpdateData{Set: set})
}

// Verify đánh dấu bản ghi đã/chưa đối soát.
// Flow đối soát có messaging riêng; reconciler sẽ không phát notify chung
// cho update chỉ đổi các field verification.
func (s *RecordService) Verify(ctx context.Context, id primitive.ObjectID, verifierID primitive.ObjectID, input *dto.RecordVerifyInput) (models.Record, error) {
	set := bson.M{
		"isVerified": input.IsVerified,
		"verifyNote": input.VerifyNote,
	}
	if input.IsVerified {
		set["verifiedBy"] = verifierID
		set["verifiedAt"] = utility.CurrentTimeInMilli()
		set["status"] = models.RecordStatusVerified
	} else {
		set["verifiedBy"] = nil
		set["verifiedAt"] = nil
	}

	return s.UpdateById(ctx, id, &UpdateData{Set: set})
}

// CountRecords đếm bản ghi theo filter hiện hành; poll tick của reconciler
// dùng truy vấn rẻ này thay vì fetch cả trang.
func (s *RecordService) CountRecords(ctx context.Context, filter *dto.RecordFilterInput) (int64, error) {
	return s.CountDocuments(ctx, BuildRecordFilter(filter))
}

// LatestRecord trả về bản ghi mới nhất khớp filter (theo createdAt giảm dần)
func (s *RecordService) LatestRecord(ctx context.Context, filter *dto.RecordFilterInput) (models.Record, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return s.FindOne(ctx, BuildRecordFilter(filter), opts)
}

// FindPage trả về một trang bản ghi theo filter, mới nhất trước
func (s *RecordService) FindPage(ctx context.Context, filter *dto.RecordFilterInput, page, limit int64) (*models.PaginateResult[models.Record], error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return s.FindWithPagination(ctx, BuildRecordFilter(filter), page, limit, opts)
}
