package service

import (
	"video_label_backend/internal/model"
	"video_label_backend/internal/repository"
	"video_label_backend/internal/util"

	"gorm.io/gorm"
)

// SchemaService 问题与问题组管理
type SchemaService struct {
	QuestionRepo *repository.QuestionRepository
}

func NewSchemaService(questionRepo *repository.QuestionRepository) *SchemaService {
	return &SchemaService{QuestionRepo: questionRepo}
}

type QuestionReq struct {
	Text            string   `json:"text" binding:"required"`
	Type            string   `json:"type" binding:"required"`
	Options         []string `json:"options"`
	OptionWeights   []float64 `json:"optionWeights"`
	DisplayTexts    []string `json:"displayTexts"`
	DisplayValues   []string `json:"displayValues"`
	DefaultOption   string   `json:"defaultOption"`
	AcceptThreshold float64  `json:"acceptThreshold"`
}

// CreateQuestion 不变式：选项唯一；权重与展示值数组要么为空要么与选项等长
func (s *SchemaService) CreateQuestion(req QuestionReq) (*model.Question, error) {
	qType := model.QuestionType(req.Type)
	if qType != model.SingleChoice && qType != model.FreeText {
		return nil, util.ErrInvalidQuestionType
	}

	if qType == model.SingleChoice {
		if len(req.OptionWeights) > 0 && len(req.OptionWeights) != len(req.Options) {
			return nil, util.ErrOptionWeightMismatch
		}
		if len(req.DisplayTexts) > 0 && len(req.DisplayTexts) != len(req.Options) {
			return nil, util.ErrOptionWeightMismatch
		}
		if len(req.DisplayValues) > 0 && len(req.DisplayValues) != len(req.Options) {
			return nil, util.ErrOptionWeightMismatch
		}
		seen := make(map[string]bool, len(req.Options))
		for _, opt := range req.Options {
			if seen[opt] {
				return nil, util.ErrDuplicateOption
			}
			seen[opt] = true
		}
		if req.DefaultOption != "" && !seen[req.DefaultOption] {
			return nil, util.ErrValueNotInOptions
		}
	}

	threshold := req.AcceptThreshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	question := &model.Question{
		Text:            req.Text,
		Type:            qType,
		DefaultOption:   req.DefaultOption,
		AcceptThreshold: threshold,
	}
	for i, opt := range req.Options {
		o := model.QuestionOption{Value: opt, Weight: 1.0, SortOrder: i}
		if len(req.OptionWeights) > 0 {
			o.Weight = req.OptionWeights[i]
		}
		if len(req.DisplayTexts) > 0 {
			o.DisplayText = req.DisplayTexts[i]
		}
		if len(req.DisplayValues) > 0 {
			o.DisplayValue = req.DisplayValues[i]
		}
		question.Options = append(question.Options, o)
	}

	if err := s.QuestionRepo.Create(question); err != nil {
		return nil, err
	}
	return question, nil
}

func (s *SchemaService) GetQuestion(id uint) (*model.Question, error) {
	q, err := s.QuestionRepo.FindByID(id)
	if err == gorm.ErrRecordNotFound {
		return nil, util.ErrQuestionNotFound
	}
	return q, err
}

func (s *SchemaService) ListQuestions(page, limit int) ([]model.Question, int64, error) {
	return s.QuestionRepo.List(page, limit)
}

func (s *SchemaService) ArchiveQuestion(id uint) error {
	return s.QuestionRepo.Archive(id)
}

type GroupReq struct {
	Title            string `json:"title" binding:"required"`
	Reusable         bool   `json:"reusable"`
	VerificationHook string `json:"verificationHook"`
	QuestionIDs      []uint `json:"questionIds"`
}

// CreateGroup 钩子名在配置期解析，未注册即拒绝
func (s *SchemaService) CreateGroup(req GroupReq) (*model.QuestionGroup, error) {
	if req.VerificationHook != "" {
		if _, ok := LookupVerificationHook(req.VerificationHook); !ok {
			return nil, util.ErrUnknownVerificationHook
		}
	}

	group := &model.QuestionGroup{
		Title:            req.Title,
		Reusable:         req.Reusable,
		VerificationHook: req.VerificationHook,
	}
	if err := s.QuestionRepo.CreateGroup(group); err != nil {
		return nil, err
	}

	for i, qid := range req.QuestionIDs {
		if _, err := s.QuestionRepo.FindByID(qid); err != nil {
			return nil, util.ErrQuestionNotFound
		}
		entry := &model.QuestionGroupEntry{GroupID: group.ID, QuestionID: qid, SortOrder: i}
		if err := s.QuestionRepo.AddQuestionToGroup(entry); err != nil {
			return nil, err
		}
	}
	return group, nil
}

func (s *SchemaService) GetGroup(id uint) (*model.QuestionGroup, []model.Question, error) {
	group, err := s.QuestionRepo.FindGroupByID(id)
	if err == gorm.ErrRecordNotFound {
		return nil, nil, util.ErrGroupNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	questions, err := s.QuestionRepo.ListGroupQuestions(id)
	if err != nil {
		return nil, nil, err
	}
	return group, questions, nil
}

func (s *SchemaService) ListGroups(page, limit int) ([]model.QuestionGroup, int64, error) {
	return s.QuestionRepo.ListGroups(page, limit)
}

func (s *SchemaService) ArchiveGroup(id uint) error {
	return s.QuestionRepo.ArchiveGroup(id)
}
