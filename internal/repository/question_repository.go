package repository

import (
	"video_label_backend/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

func (r *QuestionRepository) Create(question *model.Question) error {
	return r.DB.Create(question).Error
}

func (r *QuestionRepository) FindByID(id uint) (*model.Question, error) {
	var q model.Question
	err := r.DB.Preload("Options", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order asc")
	}).First(&q, id).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuestionRepository) FindByText(text string) (*model.Question, error) {
	var q model.Question
	err := r.DB.Preload("Options", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order asc")
	}).Where("text = ?", text).First(&q).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuestionRepository) Archive(id uint) error {
	return r.DB.Model(&model.Question{}).Where("id = ?", id).
		Update("is_archived", true).Error
}

func (r *QuestionRepository) List(page, limit int) ([]model.Question, int64, error) {
	var total int64
	query := r.DB.Model(&model.Question{}).Where("is_archived = ?", false)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var qs []model.Question
	offset := (page - 1) * limit
	err := r.DB.Preload("Options", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order asc")
	}).Where("is_archived = ?", false).
		Order("created_at desc").Offset(offset).Limit(limit).Find(&qs).Error
	return qs, total, err
}

func (r *QuestionRepository) CreateGroup(group *model.QuestionGroup) error {
	return r.DB.Create(group).Error
}

func (r *QuestionRepository) FindGroupByID(id uint) (*model.QuestionGroup, error) {
	var g model.QuestionGroup
	err := r.DB.First(&g, id).Error
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *QuestionRepository) UpdateGroup(group *model.QuestionGroup) error {
	return r.DB.Save(group).Error
}

func (r *QuestionRepository) ArchiveGroup(id uint) error {
	return r.DB.Model(&model.QuestionGroup{}).Where("id = ?", id).
		Update("is_archived", true).Error
}

func (r *QuestionRepository) ListGroups(page, limit int) ([]model.QuestionGroup, int64, error) {
	var total int64
	query := r.DB.Model(&model.QuestionGroup{}).Where("is_archived = ?", false)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var groups []model.QuestionGroup
	offset := (page - 1) * limit
	err := r.DB.Where("is_archived = ?", false).
		Order("created_at desc").Offset(offset).Limit(limit).Find(&groups).Error
	return groups, total, err
}

func (r *QuestionRepository) AddQuestionToGroup(entry *model.QuestionGroupEntry) error {
	return r.DB.Create(entry).Error
}

// ListGroupQuestions 按组内顺序返回未归档问题（带选项）
func (r *QuestionRepository) ListGroupQuestions(groupID uint) ([]model.Question, error) {
	var entries []model.QuestionGroupEntry
	err := r.DB.Preload("Question.Options", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order asc")
	}).Preload("Question").
		Where("group_id = ?", groupID).
		Order("sort_order asc").Find(&entries).Error
	if err != nil {
		return nil, err
	}

	questions := make([]model.Question, 0, len(entries))
	for _, e := range entries {
		if e.Question != nil && !e.Question.IsArchived {
			questions = append(questions, *e.Question)
		}
	}
	return questions, nil
}

// GroupIDsForQuestion 返回包含该问题的组ID列表
func (r *QuestionRepository) GroupIDsForQuestion(questionID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.QuestionGroupEntry{}).
		Where("question_id = ?", questionID).
		Pluck("group_id", &ids).Error
	return ids, err
}
