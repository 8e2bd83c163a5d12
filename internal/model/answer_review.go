package model

import "time"

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// AnswerReview 自由文本答案的复核记录，每条答案至多一行，更新走 upsert
// swagger:model AnswerReview
type AnswerReview struct {
	BaseModel
	AnswerID   uint         `gorm:"uniqueIndex;type:bigint unsigned" json:"answerId"`
	Status     ReviewStatus `gorm:"size:20;default:'pending'" json:"status"`
	ReviewerID uint         `gorm:"index;type:bigint unsigned" json:"reviewerId"`
	ReviewedAt *time.Time   `json:"reviewedAt"`
}

func (AnswerReview) TableName() string {
	return "answer_reviews"
}
