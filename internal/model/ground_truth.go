package model

import "time"

// ReviewerGroundTruth 每个 (video, question, project) 至多一行的权威答案。
// OriginalValue 在创建时定格，之后任何修改（复核员自改或管理员覆盖）都不再变动；
// ModifiedByAdminID / ModifiedByAdminAt 成对设置，成对为空。
// swagger:model ReviewerGroundTruth
type ReviewerGroundTruth struct {
	BaseModel
	VideoID           uint       `gorm:"index;uniqueIndex:idx_ground_truth_key;type:bigint unsigned" json:"videoId"`
	QuestionID        uint       `gorm:"uniqueIndex:idx_ground_truth_key;type:bigint unsigned" json:"questionId"`
	ProjectID         uint       `gorm:"index;uniqueIndex:idx_ground_truth_key;type:bigint unsigned" json:"projectId"`
	Value             string     `gorm:"size:1000;not null" json:"value"`
	OriginalValue     string     `gorm:"size:1000;not null" json:"originalValue"`
	ReviewerID        uint       `gorm:"index;type:bigint unsigned" json:"reviewerId"`
	ModifiedByAdminID *uint      `gorm:"type:bigint unsigned" json:"modifiedByAdminId"`
	ModifiedByAdminAt *time.Time `json:"modifiedByAdminAt"`
}

func (ReviewerGroundTruth) TableName() string {
	return "reviewer_ground_truths"
}
