package service

import (
	"context"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"

	"video_label_backend/internal/model"
	"video_label_backend/internal/repository"
	"video_label_backend/internal/util"
	"video_label_backend/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// VideoService 视频上传与元数据管理
type VideoService struct {
	VideoRepo *repository.VideoRepository
	Storage   *StorageService
}

func NewVideoService(videoRepo *repository.VideoRepository, storage *StorageService) *VideoService {
	return &VideoService{VideoRepo: videoRepo, Storage: storage}
}

// Upload 落盘探测元数据后上传到存储后端
func (s *VideoService) Upload(ctx context.Context, name string, file *multipart.FileHeader) (*model.Video, error) {
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	// 先写临时文件供 ffprobe 探测
	tmp, err := os.CreateTemp("", "video-upload-*"+filepath.Ext(file.Filename))
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := tmp.ReadFrom(src); err != nil {
		return nil, err
	}

	video := &model.Video{Name: name}
	if info, err := util.GetVideoInfo(tmp.Name()); err != nil {
		// 元数据探测失败不阻塞上传
		logger.Log.Warn("failed to probe video metadata", zap.String("file", file.Filename), zap.Error(err))
	} else {
		video.Duration = info.Duration
		video.Width = info.Width
		video.Height = info.Height
		video.Format = info.Format
		video.Size = info.Size
	}

	objectName := fmt.Sprintf("videos/%s%s", uuid.New().String(), filepath.Ext(file.Filename))
	if _, err := tmp.Seek(0, 0); err != nil {
		return nil, err
	}
	url, err := s.Storage.Upload(ctx, objectName, tmp, file.Size, file.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}

	video.Path = objectName
	video.URL = url
	if err := s.VideoRepo.Create(video); err != nil {
		return nil, err
	}
	return video, nil
}

func (s *VideoService) Get(id uint) (*model.Video, error) {
	video, err := s.VideoRepo.FindByID(id)
	if err == gorm.ErrRecordNotFound {
		return nil, util.ErrVideoNotFound
	}
	return video, err
}

func (s *VideoService) List(page, limit int, includeArchived bool) ([]model.Video, int64, error) {
	return s.VideoRepo.List(page, limit, includeArchived)
}

func (s *VideoService) Archive(id uint) error {
	return s.VideoRepo.Archive(id)
}
