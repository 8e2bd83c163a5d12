package service

import (
	"time"

	"video_label_backend/internal/repository"
)

func nowPtr() *time.Time {
	now := time.Now()
	return &now
}

// CompletionCalculator 完成度统计：
// 标注员完成度 = 已答数 / (问题数 × 视频数) × 100，复核完成度按 ground truth 行数计
type CompletionCalculator struct {
	ProjectRepo     *repository.ProjectRepository
	AnswerRepo      *repository.AnswerRepository
	GroundTruthRepo *repository.GroundTruthRepository
}

// cellCount 项目的标注格子总数：问题数 × 视频数
func (c *CompletionCalculator) cellCount(projectID uint) (int64, error) {
	questionIDs, err := c.ProjectRepo.QuestionIDs(projectID)
	if err != nil {
		return 0, err
	}
	videoIDs, err := c.ProjectRepo.VideoIDs(projectID)
	if err != nil {
		return 0, err
	}
	return int64(len(questionIDs)) * int64(len(videoIDs)), nil
}

func (c *CompletionCalculator) AnnotatorCompletion(projectID, userID uint) (float64, error) {
	total, err := c.cellCount(projectID)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	answered, err := c.AnswerRepo.CountDistinctForUser(projectID, userID)
	if err != nil {
		return 0, err
	}
	return float64(answered) / float64(total) * 100, nil
}

func (c *CompletionCalculator) ReviewerCompletion(projectID uint) (float64, error) {
	total, err := c.cellCount(projectID)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	count, err := c.GroundTruthRepo.CountForProject(projectID)
	if err != nil {
		return 0, err
	}
	return float64(count) / float64(total) * 100, nil
}

// HasFullGroundTruth 每个 (video, question) 对都有 ground truth 才算覆盖完整；
// 空项目（无视频或无问题）不算完整
func (c *CompletionCalculator) HasFullGroundTruth(projectID uint) (bool, error) {
	total, err := c.cellCount(projectID)
	if err != nil {
		return false, err
	}
	if total == 0 {
		return false, nil
	}
	count, err := c.GroundTruthRepo.CountForProject(projectID)
	if err != nil {
		return false, err
	}
	return count >= total, nil
}
