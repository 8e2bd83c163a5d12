package model

/// Project 标注项目：模板（问题组序列）+ 视频集 + 角色分配
type Project struct {
	BaseModel
	Name        string `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	IsArchived  bool   `gorm:"default:false;index" json:"isArchived"`
}

func (Project) TableName() string {
	return "projects"
}

// ProjectSchemaEntry 项目标注模板：按顺序挂载的问题组
type ProjectSchemaEntry struct {
	BaseModel
	ProjectID uint           `gorm:"index;uniqueIndex:idx_project_group;type:bigint unsigned" json:"projectId"`
	GroupID   uint           `gorm:"uniqueIndex:idx_project_group;type:bigint unsigned" json:"groupId"`
	SortOrder int            `gorm:"default:0" json:"sortOrder"`
	Group     *QuestionGroup `gorm:"foreignKey:GroupID" json:"group,omitempty"`
}

func (ProjectSchemaEntry) TableName() string {
	return "project_schema_entries"
}

// ProjectVideo 项目与视频的分配关系
type ProjectVideo struct {
	BaseModel
	ProjectID uint `gorm:"index;uniqueIndex:idx_project_video;type:bigint unsigned" json:"projectId"`
	VideoID   uint `gorm:"index;uniqueIndex:idx_project_video;type:bigint unsigned" json:"videoId"`
}

func (ProjectVideo) TableName() string {
	return "project_videos"
}

// ProjectQuestionDisplay 项目级选项展示文案覆盖。
// 可复用组的问题不允许存在覆盖（展示必须处处一致），由 schema 服务拦截。
type ProjectQuestionDisplay struct {
	BaseModel
	ProjectID    uint   `gorm:"index;uniqueIndex:idx_project_question_value;type:bigint unsigned" json:"projectId"`
	QuestionID   uint   `gorm:"uniqueIndex:idx_project_question_value;type:bigint unsigned" json:"questionId"`
	OptionValue  string `gorm:"size:255;uniqueIndex:idx_project_question_value" json:"optionValue"`
	DisplayText  string `gorm:"size:255" json:"displayText"`
	DisplayValue string `gorm:"size:255" json:"displayValue"`
}

func (ProjectQuestionDisplay) TableName() string {
	return "project_question_displays"
}
