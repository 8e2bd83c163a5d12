package repository

import (
	"video_label_backend/internal/model"

	"gorm.io/gorm"
)

type VideoRepository struct {
	DB *gorm.DB
}

func NewVideoRepository(db *gorm.DB) *VideoRepository {
	return &VideoRepository{DB: db}
}

func (r *VideoRepository) Create(video *model.Video) error {
	return r.DB.Create(video).Error
}

func (r *VideoRepository) FindByID(id uint) (*model.Video, error) {
	var video model.Video
	err := r.DB.First(&video, id).Error
	if err != nil {
		return nil, err
	}
	return &video, nil
}

func (r *VideoRepository) FindByIDs(ids []uint) ([]model.Video, error) {
	var videos []model.Video
	err := r.DB.Where("id IN ?", ids).Find(&videos).Error
	return videos, err
}

func (r *VideoRepository) Update(video *model.Video) error {
	return r.DB.Save(video).Error
}

func (r *VideoRepository) Archive(id uint) error {
	return r.DB.Model(&model.Video{}).Where("id = ?", id).
		Update("is_archived", true).Error
}

func (r *VideoRepository) List(page, limit int, includeArchived bool) ([]model.Video, int64, error) {
	query := r.DB.Model(&model.Video{})
	if !includeArchived {
		query = query.Where("is_archived = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var videos []model.Video
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&videos).Error
	return videos, total, err
}
