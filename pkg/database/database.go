package database

import (
	"fmt"
	"log"

	"video_label_backend/internal/config"
	"video_label_backend/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	return db, nil
}

// Migrate 建表。ground truth 与答案表的复合唯一索引是引擎的并发安全前提，
// 并发复核同一 (video, project) 时由它兜底。
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Video{},
		&model.Project{},
		&model.ProjectVideo{},
		&model.ProjectSchemaEntry{},
		&model.ProjectQuestionDisplay{},
		&model.Question{},
		&model.QuestionOption{},
		&model.QuestionGroup{},
		&model.QuestionGroupEntry{},
		&model.RoleAssignment{},
		&model.AnnotatorAnswer{},
		&model.ReviewerGroundTruth{},
		&model.AnswerReview{},
	)
}
