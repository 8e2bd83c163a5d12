package model

import "sort"

type QuestionType string

const (
	SingleChoice QuestionType = "single_choice"
	FreeText     QuestionType = "free_text"
)

// Question 标注问题。Text 是不可变的业务主键，跨项目复用时以它对齐答案。
// swagger:model Question
type Question struct {
	BaseModel
	Text            string           `gorm:"size:255;uniqueIndex;not null" json:"text"`
	Type            QuestionType     `gorm:"size:20;not null" json:"type"`
	DefaultOption   string           `gorm:"size:255" json:"defaultOption"`
	AcceptThreshold float64          `gorm:"default:100" json:"acceptThreshold"` // 共识通过百分比
	IsArchived      bool             `gorm:"default:false;index" json:"isArchived"`
	Options         []QuestionOption `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

// QuestionOption 单选题选项，Weight 参与加权计票
type QuestionOption struct {
	BaseModel
	QuestionID   uint    `gorm:"index;uniqueIndex:idx_question_option;type:bigint unsigned" json:"questionId"`
	Value        string  `gorm:"size:255;uniqueIndex:idx_question_option;not null" json:"value"`
	Weight       float64 `gorm:"default:1" json:"weight"`
	DisplayText  string  `gorm:"size:255" json:"displayText"`
	DisplayValue string  `gorm:"size:255" json:"displayValue"`
	SortOrder    int     `gorm:"default:0" json:"sortOrder"`
}

func (QuestionOption) TableName() string {
	return "question_options"
}

// OptionValues 按 SortOrder 返回选项值列表，与预加载顺序无关
func (q *Question) OptionValues() []string {
	opts := make([]QuestionOption, len(q.Options))
	copy(opts, q.Options)
	sort.SliceStable(opts, func(i, j int) bool { return opts[i].SortOrder < opts[j].SortOrder })

	values := make([]string, 0, len(opts))
	for _, opt := range opts {
		values = append(values, opt.Value)
	}
	return values
}

// OptionWeight 返回选项声明权重，未声明的值按 1.0 处理
func (q *Question) OptionWeight(value string) float64 {
	for _, opt := range q.Options {
		if opt.Value == value {
			return opt.Weight
		}
	}
	return 1.0
}

// HasOption 判断取值是否在声明选项内
func (q *Question) HasOption(value string) bool {
	for _, opt := range q.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}
