package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/devtlco1/E-Jibaya-sub000/core/api/dto"
	models "github.com/devtlco1/E-Jibaya-sub000/core/api/models/mongodb"
)

func sampleRecord() *models.Record {
	agentID := primitive.NewObjectID()
	return &models.Record{
		ID:             primitive.NewObjectID(),
		SubscriberName: "Nguyễn Văn An",
		AccountNumber:  "ACC-2024-0042",
		MeterNumber:    "MTR-7781",
		Region:         "north",
		Zone:           "z1",
		Block:          "b3",
		Status:         models.RecordStatusCollected,
		IsVerified:     false,
		Category:       models.RecordCategoryElectricity,
		Phase:          "1",
		AgentID:        &agentID,
		BranchID:       "branch-01",
	}
}

func TestBuildRecordFilter_Empty(t *testing.T) {
	assert.Equal(t, bson.M{}, BuildRecordFilter(nil))
	assert.Equal(t, bson.M{}, BuildRecordFilter(&dto.RecordFilterInput{}))
}

func TestBuildRecordFilter_Fields(t *testing.T) {
	verified := true
	f := &dto.RecordFilterInput{
		Name:     "an",
		Search:   "ACC",
		Region:   "north",
		Status:   models.RecordStatusCollected,
		Verified: &verified,
		Category: models.RecordCategoryWater,
	}

	filter := BuildRecordFilter(f)

	assert.Equal(t, bson.M{"$regex": "an", "$options": "i"}, filter["subscriberName"])
	assert.Equal(t, "north", filter["region"])
	assert.Equal(t, models.RecordStatusCollected, filter["status"])
	assert.Equal(t, true, filter["isVerified"])
	assert.Equal(t, models.RecordCategoryWater, filter["category"])

	or, ok := filter["$or"].([]bson.M)
	assert.True(t, ok)
	assert.Len(t, or, 2)
}

func TestBuildRecordFilter_EscapesRegex(t *testing.T) {
	f := &dto.RecordFilterInput{Name: "a.b*c"}
	filter := BuildRecordFilter(f)
	assert.Equal(t, bson.M{"$regex": `a\.b\*c`, "$options": "i"}, filter["subscriberName"])
}

func TestBuildRecordFilter_InvalidAgentIDIgnored(t *testing.T) {
	f := &dto.RecordFilterInput{AgentID: "không-phải-hex"}
	filter := BuildRecordFilter(f)
	_, hasAgent := filter["agentId"]
	assert.False(t, hasAgent)
}

func TestMatchesRecordFilter(t *testing.T) {
	r := sampleRecord()

	t.Run("filter rỗng match mọi bản ghi", func(t *testing.T) {
		assert.True(t, MatchesRecordFilter(nil, r))
		assert.True(t, MatchesRecordFilter(&dto.RecordFilterInput{}, r))
	})

	t.Run("substring tên không phân biệt hoa thường", func(t *testing.T) {
		assert.True(t, MatchesRecordFilter(&dto.RecordFilterInput{Name: "văn"}, r))
		assert.False(t, MatchesRecordFilter(&dto.RecordFilterInput{Name: "bình"}, r))
	})

	t.Run("search khớp số tài khoản hoặc số công tơ", func(t *testing.T) {
		assert.True(t, MatchesRecordFilter(&dto.RecordFilterInput{Search: "acc-2024"}, r))
		assert.True(t, MatchesRecordFilter(&dto.RecordFilterInput{Search: "mtr-77"}, r))
		assert.False(t, MatchesRecordFilter(&dto.RecordFilterInput{Search: "xyz"}, r))
	})

	t.Run("equality predicates", func(t *testing.T) {
		assert.True(t, MatchesRecordFilter(&dto.RecordFilterInput{Region: "north", Zone: "z1", Block: "b3"}, r))
		assert.False(t, MatchesRecordFilter(&dto.RecordFilterInput{Region: "south"}, r))
		assert.False(t, MatchesRecordFilter(&dto.RecordFilterInput{Status: models.RecordStatusPending}, r))
	})

	t.Run("verified flag", func(t *testing.T) {
		verified := false
		assert.True(t, MatchesRecordFilter(&dto.RecordFilterInput{Verified: &verified}, r))
		verified = true
		assert.False(t, MatchesRecordFilter(&dto.RecordFilterInput{Verified: &verified}, r))
	})

	t.Run("agent theo hex id", func(t *testing.T) {
		assert.True(t, MatchesRecordFilter(&dto.RecordFilterInput{AgentID: r.AgentID.Hex()}, r))
		assert.False(t, MatchesRecordFilter(&dto.RecordFilterInput{AgentID: primitive.NewObjectID().Hex()}, r))

		unassigned := sampleRecord()
		unassigned.AgentID = nil
		assert.False(t, MatchesRecordFilter(&dto.RecordFilterInput{AgentID: r.AgentID.Hex()}, unassigned))
	})

	t.Run("bản ghi nil không match", func(t *testing.T) {
		assert.False(t, MatchesRecordFilter(&dto.RecordFilterInput{}, nil))
	})
}
