package services

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/devtlco1/E-Jibaya-sub000/core/api/dto"
	models "github.com/devtlco1/E-Jibaya-sub000/core/api/models/mongodb"
)

// BuildRecordFilter dựng bson filter từ tập predicate của client.
// Substring match không phân biệt hoa thường (regex với option i).
func BuildRecordFilter(f *dto.RecordFilterInput) bson.M {
	filter := bson.M{}
	if f == nil {
		return filter
	}

	if f.Name != "" {
		filter["subscriberName"] = bson.M{"$regex": escapeRegex(f.Name), "$options": "i"}
	}
	if f.Search != "" {
		pattern := bson.M{"$regex": escapeRegex(f.Search), "$options": "i"}
		filter["$or"] = []bson.M{
			{"accountNumber": pattern},
			{"meterNumber": pattern},
		}
	}
	if f.Region != "" {
		filter["region"] = f.Region
	}
	if f.Zone != "" {
		filter["zone"] = f.Zone
	}
	if f.Block != "" {
		filter["block"] = f.Block
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Verified != nil {
		filter["isVerified"] = *f.Verified
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Phase != "" {
		filter["phase"] = f.Phase
	}
	if f.AgentID != "" {
		if agentID, err := primitive.ObjectIDFromHex(f.AgentID); err == nil {
			filter["agentId"] = agentID
		}
	}
	if f.BranchID != "" {
		filter["branchId"] = f.BranchID
	}

	return filter
}

// regex metacharacters cần escape khi đưa input user vào $regex
var regexEscaper = strings.NewReplacer(
	`\`, `\\`, `.`, `\.`, `+`, `\+`, `*`, `\*`, `?`, `\?`,
	`(`, `\(`, `)`, `\)`, `[`, `\[`, `]`, `\]`, `{`, `\{`, `}`, `\}`,
	`^`, `\^`, `$`, `\$`, `|`, `\|`,
)

func escapeRegex(s string) string {
	return regexEscaper.Replace(s)
}

// MatchesRecordFilter kiểm tra cục bộ một bản ghi có khớp tập predicate không.
// Reconciler dùng hàm này để quyết định một push event có liên quan đến trang
// đang hiển thị hay không mà không cần hỏi lại Store. Ngữ nghĩa phải khớp với
// BuildRecordFilter.
func MatchesRecordFilter(f *dto.RecordFilterInput, r *models.Record) bool {
	if f == nil || r == nil {
		return r != nil
	}

	if f.Name != "" && !containsFold(r.SubscriberName, f.Name) {
		return false
	}
	if f.Search != "" &&
		!containsFold(r.AccountNumber, f.Search) &&
		!containsFold(r.MeterNumber, f.Search) {
		return false
	}
	if f.Region != "" && r.Region != f.Region {
		return false
	}
	if f.Zone != "" && r.Zone != f.Zone {
		return false
	}
	if f.Block != "" && r.Block != f.Block {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Verified != nil && r.IsVerified != *f.Verified {
		return false
	}
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	if f.Phase != "" && r.Phase != f.Phase {
		return false
	}
	if f.AgentID != "" {
		if r.AgentID == nil || r.AgentID.Hex() != f.AgentID {
			return false
		}
	}
	if f.BranchID != "" && r.BranchID != f.BranchID {
		return false
	}

	return true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
