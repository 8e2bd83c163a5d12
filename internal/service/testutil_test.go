package service

import (
	"fmt"
	"strings"
	"testing"

	"video_label_backend/internal/model"
	"video_label_backend/internal/repository"
	"video_label_backend/pkg/database"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// fixture 标准测试场景：一个项目、两个视频、一个含单选+自由文本的问题组、
// 两个标注员、一个复核员、一个管理员
type fixture struct {
	db *gorm.DB

	project model.Project
	videos  []model.Video
	group   model.QuestionGroup
	choice  model.Question // 单选：A 权重 2.0，B 权重 1.0
	free    model.Question // 自由文本

	alice    model.User // annotator, weight 1.0
	bob      model.User // annotator, weight 1.0
	reviewer model.User
	admin    model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	f := &fixture{db: db}

	f.project = model.Project{Name: "traffic-study"}
	mustCreate(t, db, &f.project)

	for i := 0; i < 2; i++ {
		v := model.Video{Name: fmt.Sprintf("clip-%d.mp4", i+1)}
		mustCreate(t, db, &v)
		f.videos = append(f.videos, v)
		mustCreate(t, db, &model.ProjectVideo{ProjectID: f.project.ID, VideoID: v.ID})
	}

	f.choice = model.Question{
		Text:            "vehicle_present",
		Type:            model.SingleChoice,
		AcceptThreshold: 100,
		Options: []model.QuestionOption{
			{Value: "A", Weight: 2.0, SortOrder: 0},
			{Value: "B", Weight: 1.0, SortOrder: 1},
		},
	}
	mustCreate(t, db, &f.choice)

	f.free = model.Question{Text: "scene_description", Type: model.FreeText, AcceptThreshold: 100}
	mustCreate(t, db, &f.free)

	f.group = model.QuestionGroup{Title: "scene-basics"}
	mustCreate(t, db, &f.group)
	mustCreate(t, db, &model.QuestionGroupEntry{GroupID: f.group.ID, QuestionID: f.choice.ID, SortOrder: 0})
	mustCreate(t, db, &model.QuestionGroupEntry{GroupID: f.group.ID, QuestionID: f.free.ID, SortOrder: 1})
	mustCreate(t, db, &model.ProjectSchemaEntry{ProjectID: f.project.ID, GroupID: f.group.ID, SortOrder: 0})

	f.alice = f.newUser(t, "alice", model.RoleAnnotator, 1.0)
	f.bob = f.newUser(t, "bob", model.RoleAnnotator, 1.0)
	f.reviewer = f.newUser(t, "rita", model.RoleReviewer, 1.0)
	f.admin = f.newUser(t, "adam", model.RoleAdmin, 1.0)

	return f
}

func (f *fixture) newUser(t *testing.T, name string, role model.RoleType, weight float64) model.User {
	t.Helper()
	u := model.User{Name: name, Email: name + "@example.com", Password: "x"}
	mustCreate(t, f.db, &u)

	roles := append([]model.RoleType{role}, model.ImpliedRoles(role)...)
	for _, r := range roles {
		mustCreate(t, f.db, &model.RoleAssignment{
			ProjectID:  f.project.ID,
			UserID:     u.ID,
			Role:       r,
			UserWeight: weight,
		})
	}
	return u
}

// answer 直接落一条标注员答案
func (f *fixture) answer(t *testing.T, videoID, questionID, userID uint, value string) model.AnnotatorAnswer {
	t.Helper()
	a := model.AnnotatorAnswer{
		VideoID:    videoID,
		QuestionID: questionID,
		UserID:     userID,
		ProjectID:  f.project.ID,
		Value:      value,
	}
	mustCreate(t, f.db, &a)
	return a
}

// groundTruth 直接落一条权威答案
func (f *fixture) groundTruth(t *testing.T, videoID, questionID uint, value string) model.ReviewerGroundTruth {
	t.Helper()
	gt := model.ReviewerGroundTruth{
		VideoID:       videoID,
		QuestionID:    questionID,
		ProjectID:     f.project.ID,
		Value:         value,
		OriginalValue: value,
		ReviewerID:    f.reviewer.ID,
	}
	mustCreate(t, f.db, &gt)
	return gt
}

func (f *fixture) consensusService() *ConsensusService {
	return NewConsensusService(
		f.db,
		repository.NewQuestionRepository(f.db),
		repository.NewProjectRepository(f.db),
		repository.NewAnswerRepository(f.db),
		repository.NewGroundTruthRepository(f.db),
		repository.NewRoleAssignmentRepository(f.db),
		nil,
	)
}

func (f *fixture) annotationService() *AnnotationService {
	return NewAnnotationService(
		f.db,
		repository.NewQuestionRepository(f.db),
		repository.NewProjectRepository(f.db),
		repository.NewAnswerRepository(f.db),
		repository.NewGroundTruthRepository(f.db),
		repository.NewRoleAssignmentRepository(f.db),
		nil,
	)
}

func (f *fixture) overrideService() *OverrideService {
	return NewOverrideService(
		f.db,
		repository.NewQuestionRepository(f.db),
		repository.NewProjectRepository(f.db),
		repository.NewAnswerRepository(f.db),
		repository.NewGroundTruthRepository(f.db),
		repository.NewRoleAssignmentRepository(f.db),
	)
}

func (f *fixture) exportService() *ExportService {
	return NewExportService(
		f.db,
		repository.NewProjectRepository(f.db),
		repository.NewQuestionRepository(f.db),
		repository.NewVideoRepository(f.db),
		repository.NewGroundTruthRepository(f.db),
		3,
	)
}

func (f *fixture) projectService() *ProjectService {
	return NewProjectService(
		f.db,
		repository.NewProjectRepository(f.db),
		repository.NewVideoRepository(f.db),
		repository.NewQuestionRepository(f.db),
		repository.NewAnswerRepository(f.db),
		repository.NewGroundTruthRepository(f.db),
		repository.NewRoleAssignmentRepository(f.db),
		nil,
	)
}

func mustCreate(t *testing.T, db *gorm.DB, value interface{}) {
	t.Helper()
	if err := db.Create(value).Error; err != nil {
		t.Fatalf("create %T: %v", value, err)
	}
}

func countRows(t *testing.T, db *gorm.DB, m interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := db.Model(m)
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count %T: %v", m, err)
	}
	return n
}
