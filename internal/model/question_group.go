package model

// QuestionGroup 问题组，是提交与共识聚合的最小单位。
// Reusable 的组可以挂到多个项目下，但导出前必须通过跨项目一致性校验。
// swagger:model QuestionGroup
type QuestionGroup struct {
	BaseModel
	Title            string `gorm:"size:255;uniqueIndex;not null" json:"title"`
	Reusable         bool   `gorm:"default:false" json:"reusable"`
	VerificationHook string `gorm:"size:100" json:"verificationHook"` // 配置期注册的校验钩子名，可为空
	IsArchived       bool   `gorm:"default:false;index" json:"isArchived"`
}

func (QuestionGroup) TableName() string {
	return "question_groups"
}

// QuestionGroupEntry 组内问题及其顺序
type QuestionGroupEntry struct {
	BaseModel
	GroupID    uint      `gorm:"index;uniqueIndex:idx_group_question;type:bigint unsigned" json:"groupId"`
	QuestionID uint      `gorm:"uniqueIndex:idx_group_question;type:bigint unsigned" json:"questionId"`
	SortOrder  int       `gorm:"default:0" json:"sortOrder"`
	Question   *Question `gorm:"foreignKey:QuestionID" json:"question,omitempty"`
}

func (QuestionGroupEntry) TableName() string {
	return "question_group_entries"
}
