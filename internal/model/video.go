package model

// swagger:model Video
type Video struct {
	BaseModel
	Name       string  `gorm:"size:255;not null" json:"name"`
	Path       string  `gorm:"size:500" json:"path"` // 存储对象路径或本地路径
	URL        string  `gorm:"size:500" json:"url"`
	Duration   float64 `json:"duration"` // 视频时长（秒）
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Format     string  `gorm:"size:50" json:"format"`
	Size       int64   `json:"size"`
	IsArchived bool    `gorm:"default:false;index" json:"isArchived"`
}

func (Video) TableName() string {
	return "videos"
}
