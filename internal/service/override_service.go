package service

import (
	"context"
	"time"

	"video_label_backend/internal/model"
	"video_label_backend/internal/repository"
	"video_label_backend/internal/util"

	"gorm.io/gorm"
)

// OverrideService ground truth 修改入口：管理员覆盖、复核员自改，以及准确率统计。
// 任何修改都不改写 OriginalValue，等值修改是幂等的无操作。
type OverrideService struct {
	DB              *gorm.DB
	QuestionRepo    *repository.QuestionRepository
	GroundTruthRepo *repository.GroundTruthRepository
	RoleRepo        *repository.RoleAssignmentRepository
	Completion      *CompletionCalculator
}

func NewOverrideService(
	db *gorm.DB,
	questionRepo *repository.QuestionRepository,
	projectRepo *repository.ProjectRepository,
	answerRepo *repository.AnswerRepository,
	groundTruthRepo *repository.GroundTruthRepository,
	roleRepo *repository.RoleAssignmentRepository,
) *OverrideService {
	return &OverrideService{
		DB:              db,
		QuestionRepo:    questionRepo,
		GroundTruthRepo: groundTruthRepo,
		RoleRepo:        roleRepo,
		Completion: &CompletionCalculator{
			ProjectRepo:     projectRepo,
			AnswerRepo:      answerRepo,
			GroundTruthRepo: groundTruthRepo,
		},
	}
}

// Override 覆盖 (video, question, project) 的权威答案。
// 前置：调用者在项目内持有 admin 角色，且该行已存在。
func (s *OverrideService) Override(ctx context.Context, videoID, questionID, projectID, adminID uint, newValue string) (*model.ReviewerGroundTruth, error) {
	hasRole, err := s.RoleRepo.HasActiveRole(projectID, adminID, model.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if !hasRole {
		return nil, util.ErrPermissionDenied
	}

	gt, err := s.GroundTruthRepo.FindByKey(videoID, questionID, projectID)
	if err == gorm.ErrRecordNotFound {
		return nil, util.ErrGroundTruthNotFound
	}
	if err != nil {
		return nil, err
	}

	// 等值覆盖：无操作，管理员字段与时间戳都不动
	if gt.Value == newValue {
		return gt, nil
	}

	question, err := s.QuestionRepo.FindByID(questionID)
	if err != nil {
		return nil, err
	}
	if question.Type == model.SingleChoice && !question.HasOption(newValue) {
		return nil, util.ErrValueNotInOptions
	}

	now := time.Now()
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		// 管理员字段成对设置；OriginalValue 永不触碰
		return tx.Model(&model.ReviewerGroundTruth{}).
			Where("id = ?", gt.ID).
			Updates(map[string]interface{}{
				"value":                newValue,
				"modified_by_admin_id": adminID,
				"modified_by_admin_at": now,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	return s.GroundTruthRepo.FindByKey(videoID, questionID, projectID)
}

// Correct 复核员修正自己署名的权威答案。与管理员覆盖不同，
// 只有该行的作者可以调用，管理员字段不动，准确率不受影响。
// OriginalValue 保持首次复核值，等值修正是无操作。
func (s *OverrideService) Correct(ctx context.Context, videoID, questionID, projectID, reviewerID uint, newValue string) (*model.ReviewerGroundTruth, error) {
	gt, err := s.GroundTruthRepo.FindByKey(videoID, questionID, projectID)
	if err == gorm.ErrRecordNotFound {
		return nil, util.ErrGroundTruthNotFound
	}
	if err != nil {
		return nil, err
	}
	if gt.ReviewerID != reviewerID {
		return nil, util.ErrPermissionDenied
	}

	if gt.Value == newValue {
		return gt, nil
	}

	question, err := s.QuestionRepo.FindByID(questionID)
	if err != nil {
		return nil, err
	}
	if question.Type == model.SingleChoice && !question.HasOption(newValue) {
		return nil, util.ErrValueNotInOptions
	}

	// 仅改 value，UpdatedAt 随之刷新；管理员字段与 OriginalValue 不动
	err = s.DB.Model(&model.ReviewerGroundTruth{}).
		Where("id = ?", gt.ID).
		Update("value", newValue).Error
	if err != nil {
		return nil, err
	}

	return s.GroundTruthRepo.FindByKey(videoID, questionID, projectID)
}

// ReviewerAccuracy 复核员按题准确率：total = 署名 ground truth 行数，
// correct = 其中未被管理员覆盖的行数
type ReviewerAccuracy struct {
	ReviewerID uint    `json:"reviewerId"`
	QuestionID uint    `json:"questionId"`
	Total      int     `json:"total"`
	Correct    int     `json:"correct"`
	Accuracy   float64 `json:"accuracy"`
}

// AnnotatorAccuracy 标注员按题准确率。单选题以与当前 ground truth 的一致性计，
// 自由文本只统计已复核（非 pending）的答案，approved 计为正确
type AnnotatorAccuracy struct {
	UserID     uint    `json:"userId"`
	QuestionID uint    `json:"questionId"`
	Total      int     `json:"total"`
	Correct    int     `json:"correct"`
	Accuracy   float64 `json:"accuracy"`
}

// AccuracyReport 项目级批量统计
type AccuracyReport struct {
	ProjectID  uint                `json:"projectId"`
	Reviewers  []ReviewerAccuracy  `json:"reviewers"`
	Annotators []AnnotatorAccuracy `json:"annotators"`
}

// ProjectAccuracy 前置条件：项目已有完整 ground truth 覆盖，否则拒绝为时过早的统计
func (s *OverrideService) ProjectAccuracy(ctx context.Context, projectID uint) (*AccuracyReport, error) {
	full, err := s.Completion.HasFullGroundTruth(projectID)
	if err != nil {
		return nil, err
	}
	if !full {
		return nil, util.ErrIncompleteGroundTruth
	}

	report := &AccuracyReport{ProjectID: projectID}

	err = s.DB.Table("reviewer_ground_truths g").
		Select("g.reviewer_id, g.question_id, COUNT(*) AS total, "+
			"SUM(CASE WHEN g.modified_by_admin_id IS NULL THEN 1 ELSE 0 END) AS correct").
		Where("g.project_id = ? AND g.deleted_at IS NULL", projectID).
		Group("g.reviewer_id, g.question_id").
		Order("g.reviewer_id, g.question_id").
		Scan(&report.Reviewers).Error
	if err != nil {
		return nil, err
	}
	for i := range report.Reviewers {
		r := &report.Reviewers[i]
		if r.Total > 0 {
			r.Accuracy = float64(r.Correct) / float64(r.Total)
		}
	}

	// 单选题：答案与当前 ground truth 逐格比对
	var choiceRows []AnnotatorAccuracy
	err = s.DB.Table("annotator_answers a").
		Select("a.user_id, a.question_id, COUNT(*) AS total, "+
			"SUM(CASE WHEN a.value = g.value THEN 1 ELSE 0 END) AS correct").
		Joins("JOIN reviewer_ground_truths g ON g.video_id = a.video_id AND g.question_id = a.question_id AND g.project_id = a.project_id AND g.deleted_at IS NULL").
		Joins("JOIN questions q ON q.id = a.question_id AND q.type = ?", model.SingleChoice).
		Where("a.project_id = ? AND a.deleted_at IS NULL", projectID).
		Group("a.user_id, a.question_id").
		Scan(&choiceRows).Error
	if err != nil {
		return nil, err
	}

	// 自由文本：仅统计已复核答案，approved 为正确
	var freeTextRows []AnnotatorAccuracy
	err = s.DB.Table("annotator_answers a").
		Select("a.user_id, a.question_id, COUNT(*) AS total, "+
			"SUM(CASE WHEN r.status = ? THEN 1 ELSE 0 END) AS correct", model.ReviewApproved).
		Joins("JOIN answer_reviews r ON r.answer_id = a.id AND r.status <> ? AND r.deleted_at IS NULL", model.ReviewPending).
		Joins("JOIN questions q ON q.id = a.question_id AND q.type = ?", model.FreeText).
		Where("a.project_id = ? AND a.deleted_at IS NULL", projectID).
		Group("a.user_id, a.question_id").
		Scan(&freeTextRows).Error
	if err != nil {
		return nil, err
	}

	report.Annotators = append(choiceRows, freeTextRows...)
	for i := range report.Annotators {
		a := &report.Annotators[i]
		if a.Total > 0 {
			a.Accuracy = float64(a.Correct) / float64(a.Total)
		}
	}

	return report, nil
}
