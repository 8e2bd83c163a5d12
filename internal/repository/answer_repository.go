package repository

import (
	"video_label_backend/internal/model"

	"gorm.io/gorm"
)

type AnswerRepository struct {
	DB *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) *AnswerRepository {
	return &AnswerRepository{DB: db}
}

func (r *AnswerRepository) FindByKey(videoID, questionID, userID, projectID uint) (*model.AnnotatorAnswer, error) {
	var a model.AnnotatorAnswer
	err := r.DB.Where("video_id = ? AND question_id = ? AND user_id = ? AND project_id = ?",
		videoID, questionID, userID, projectID).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListForQuestion 返回指定用户集合对某问题的答案；userIDs 为空则返回全部
func (r *AnswerRepository) ListForQuestion(videoID, questionID, projectID uint, userIDs []uint) ([]model.AnnotatorAnswer, error) {
	query := r.DB.Where("video_id = ? AND question_id = ? AND project_id = ?",
		videoID, questionID, projectID)
	if len(userIDs) > 0 {
		query = query.Where("user_id IN ?", userIDs)
	}
	var answers []model.AnnotatorAnswer
	err := query.Find(&answers).Error
	return answers, err
}

// CountDistinctForUser 统计用户在项目内已答的 (video, question) 数，用于完成度
func (r *AnswerRepository) CountDistinctForUser(projectID, userID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.AnnotatorAnswer{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	return count, err
}

func (r *AnswerRepository) FindReviewByAnswer(answerID uint) (*model.AnswerReview, error) {
	var review model.AnswerReview
	err := r.DB.Where("answer_id = ?", answerID).First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// UpsertReview 每条答案至多一行复核记录
func (r *AnswerRepository) UpsertReview(tx *gorm.DB, review *model.AnswerReview) error {
	var existing model.AnswerReview
	err := tx.Where("answer_id = ?", review.AnswerID).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return tx.Create(review).Error
	}
	if err != nil {
		return err
	}
	existing.Status = review.Status
	existing.ReviewerID = review.ReviewerID
	existing.ReviewedAt = review.ReviewedAt
	return tx.Save(&existing).Error
}
