package repository

import (
	"video_label_backend/internal/model"

	"gorm.io/gorm"
)

type GroundTruthRepository struct {
	DB *gorm.DB
}

func NewGroundTruthRepository(db *gorm.DB) *GroundTruthRepository {
	return &GroundTruthRepository{DB: db}
}

func (r *GroundTruthRepository) FindByKey(videoID, questionID, projectID uint) (*model.ReviewerGroundTruth, error) {
	var gt model.ReviewerGroundTruth
	err := r.DB.Where("video_id = ? AND question_id = ? AND project_id = ?",
		videoID, questionID, projectID).First(&gt).Error
	if err != nil {
		return nil, err
	}
	return &gt, nil
}

func (r *GroundTruthRepository) Exists(videoID, questionID, projectID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.ReviewerGroundTruth{}).
		Where("video_id = ? AND question_id = ? AND project_id = ?", videoID, questionID, projectID).
		Count(&count).Error
	return count > 0, err
}

// CountForProject 项目内 ground truth 行数（覆盖率判定用）
func (r *GroundTruthRepository) CountForProject(projectID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.ReviewerGroundTruth{}).
		Where("project_id = ?", projectID).
		Count(&count).Error
	return count, err
}

// ListForProject 项目内全部 ground truth
func (r *GroundTruthRepository) ListForProject(projectID uint) ([]model.ReviewerGroundTruth, error) {
	var rows []model.ReviewerGroundTruth
	err := r.DB.Where("project_id = ?", projectID).Find(&rows).Error
	return rows, err
}

// ListForProjectsQuestions 跨项目批量读取（一致性校验与导出用）
func (r *GroundTruthRepository) ListForProjectsQuestions(projectIDs, questionIDs []uint) ([]model.ReviewerGroundTruth, error) {
	query := r.DB.Where("project_id IN ?", projectIDs)
	if len(questionIDs) > 0 {
		query = query.Where("question_id IN ?", questionIDs)
	}
	var rows []model.ReviewerGroundTruth
	err := query.Find(&rows).Error
	return rows, err
}
