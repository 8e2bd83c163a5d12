package service

import (
	"context"

	"video_label_backend/internal/model"
	"video_label_backend/internal/repository"
	"video_label_backend/internal/util"

	"gorm.io/gorm"
)

// AnnotationService 人工组提交：校验后逐题 upsert 标注员答案。
// 自由文本答案会挂一条 pending 复核记录。
type AnnotationService struct {
	DB           *gorm.DB
	QuestionRepo *repository.QuestionRepository
	ProjectRepo  *repository.ProjectRepository
	AnswerRepo   *repository.AnswerRepository
	RoleRepo     *repository.RoleAssignmentRepository
	Completion   *CompletionCalculator
	Cache        *CompletionCache
}

func NewAnnotationService(
	db *gorm.DB,
	questionRepo *repository.QuestionRepository,
	projectRepo *repository.ProjectRepository,
	answerRepo *repository.AnswerRepository,
	groundTruthRepo *repository.GroundTruthRepository,
	roleRepo *repository.RoleAssignmentRepository,
	cache *CompletionCache,
) *AnnotationService {
	return &AnnotationService{
		DB:           db,
		QuestionRepo: questionRepo,
		ProjectRepo:  projectRepo,
		AnswerRepo:   answerRepo,
		RoleRepo:     roleRepo,
		Completion: &CompletionCalculator{
			ProjectRepo:     projectRepo,
			AnswerRepo:      answerRepo,
			GroundTruthRepo: groundTruthRepo,
		},
		Cache: cache,
	}
}

// SubmitGroupRequest 一次提交整组答案，Answers 以问题文本为键
type SubmitGroupRequest struct {
	VideoID    uint              `json:"videoId"`
	ProjectID  uint              `json:"projectId"`
	GroupID    uint              `json:"groupId"`
	UserID     uint              `json:"-"`
	Answers    map[string]string `json:"answers" binding:"required"`
	Confidence *float64          `json:"confidence"`
	Notes      string            `json:"notes"`
}

// SubmitGroup 先整体校验（角色、题目归属、取值合法），全部通过才开始写；
// 与现存行完全相同的答案不触发更新（时间戳不动）。
func (s *AnnotationService) SubmitGroup(ctx context.Context, req *SubmitGroupRequest) error {
	hasRole, err := s.RoleRepo.HasActiveRole(req.ProjectID, req.UserID, model.RoleAnnotator)
	if err != nil {
		return err
	}
	if !hasRole {
		return util.ErrPermissionDenied
	}

	ok, err := s.ProjectRepo.HasGroup(req.ProjectID, req.GroupID)
	if err != nil {
		return err
	}
	if !ok {
		return util.ErrGroupNotInProject
	}

	questions, err := s.QuestionRepo.ListGroupQuestions(req.GroupID)
	if err != nil {
		return err
	}

	byText := make(map[string]*model.Question, len(questions))
	for i := range questions {
		byText[questions[i].Text] = &questions[i]
	}

	// 校验先行：任何一项不合法都不落库
	for text, value := range req.Answers {
		q, ok := byText[text]
		if !ok {
			return util.ErrQuestionNotInGroup
		}
		if q.Type == model.SingleChoice && !q.HasOption(value) {
			return util.ErrValueNotInOptions
		}
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		for text, value := range req.Answers {
			q := byText[text]
			if err := s.upsertAnswer(tx, q, req, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.Cache != nil {
		s.Cache.Invalidate(ctx, req.ProjectID)
	}
	return s.refreshCompletion(req.ProjectID, req.UserID)
}

func (s *AnnotationService) upsertAnswer(tx *gorm.DB, q *model.Question, req *SubmitGroupRequest, value string) error {
	var existing model.AnnotatorAnswer
	err := tx.Where("video_id = ? AND question_id = ? AND user_id = ? AND project_id = ?",
		req.VideoID, q.ID, req.UserID, req.ProjectID).First(&existing).Error

	if err == gorm.ErrRecordNotFound {
		answer := &model.AnnotatorAnswer{
			VideoID:    req.VideoID,
			QuestionID: q.ID,
			UserID:     req.UserID,
			ProjectID:  req.ProjectID,
			Value:      value,
			Confidence: req.Confidence,
			Notes:      req.Notes,
		}
		if err := tx.Create(answer).Error; err != nil {
			return err
		}
		if q.Type == model.FreeText {
			return s.AnswerRepo.UpsertReview(tx, &model.AnswerReview{
				AnswerID: answer.ID,
				Status:   model.ReviewPending,
			})
		}
		return nil
	}
	if err != nil {
		return err
	}

	// 等值重复提交是存储层面的无操作
	if existing.Value == value && equalConfidence(existing.Confidence, req.Confidence) && existing.Notes == req.Notes {
		return nil
	}

	valueChanged := existing.Value != value
	existing.Value = value
	existing.Confidence = req.Confidence
	existing.Notes = req.Notes
	if err := tx.Save(&existing).Error; err != nil {
		return err
	}

	// 自由文本答案值变化后需要重新复核
	if q.Type == model.FreeText && valueChanged {
		return s.AnswerRepo.UpsertReview(tx, &model.AnswerReview{
			AnswerID: existing.ID,
			Status:   model.ReviewPending,
		})
	}
	return nil
}

func equalConfidence(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *AnnotationService) refreshCompletion(projectID, userID uint) error {
	completion, err := s.Completion.AnnotatorCompletion(projectID, userID)
	if err != nil {
		return err
	}
	if completion >= 100 {
		now := nowPtr()
		return s.RoleRepo.MarkUserComplete(s.DB, projectID, userID, model.RoleAnnotator, now)
	}
	return nil
}

// ReviewAnswer 复核员裁决一条自由文本答案。单选题走共识计票，不挂复核行
func (s *AnnotationService) ReviewAnswer(ctx context.Context, answerID, reviewerID uint, status model.ReviewStatus) error {
	var answer model.AnnotatorAnswer
	if err := s.DB.First(&answer, answerID).Error; err != nil {
		return err
	}

	question, err := s.QuestionRepo.FindByID(answer.QuestionID)
	if err != nil {
		return err
	}
	if question.Type != model.FreeText {
		return util.ErrInvalidQuestionType
	}

	hasRole, err := s.RoleRepo.HasActiveRole(answer.ProjectID, reviewerID, model.RoleReviewer)
	if err != nil {
		return err
	}
	if !hasRole {
		return util.ErrPermissionDenied
	}

	return s.AnswerRepo.UpsertReview(s.DB, &model.AnswerReview{
		AnswerID:   answerID,
		Status:     status,
		ReviewerID: reviewerID,
		ReviewedAt: nowPtr(),
	})
}
