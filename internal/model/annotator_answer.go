package model

// AnnotatorAnswer 标注员答案，(video, question, user, project) 唯一，重复提交覆盖原行
// swagger:model AnnotatorAnswer
type AnnotatorAnswer struct {
	BaseModel
	VideoID    uint     `gorm:"index;uniqueIndex:idx_answer_key;type:bigint unsigned" json:"videoId"`
	QuestionID uint     `gorm:"uniqueIndex:idx_answer_key;type:bigint unsigned" json:"questionId"`
	UserID     uint     `gorm:"index;uniqueIndex:idx_answer_key;type:bigint unsigned" json:"userId"`
	ProjectID  uint     `gorm:"index;uniqueIndex:idx_answer_key;type:bigint unsigned" json:"projectId"`
	Value      string   `gorm:"size:1000;not null" json:"value"`
	Confidence *float64 `json:"confidence"`
	Notes      string   `gorm:"type:text" json:"notes"`
}

func (AnnotatorAnswer) TableName() string {
	return "annotator_answers"
}
