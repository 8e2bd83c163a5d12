package service

import (
	"context"

	"video_label_backend/internal/model"
	"video_label_backend/internal/repository"
	"video_label_backend/internal/util"

	"gorm.io/gorm"
)

// ProjectService 项目、视频分配、角色分配与完成度查询
type ProjectService struct {
	DB           *gorm.DB
	ProjectRepo  *repository.ProjectRepository
	VideoRepo    *repository.VideoRepository
	QuestionRepo *repository.QuestionRepository
	RoleRepo     *repository.RoleAssignmentRepository
	Completion   *CompletionCalculator
	Cache        *CompletionCache
}

func NewProjectService(
	db *gorm.DB,
	projectRepo *repository.ProjectRepository,
	videoRepo *repository.VideoRepository,
	questionRepo *repository.QuestionRepository,
	answerRepo *repository.AnswerRepository,
	groundTruthRepo *repository.GroundTruthRepository,
	roleRepo *repository.RoleAssignmentRepository,
	cache *CompletionCache,
) *ProjectService {
	return &ProjectService{
		DB:           db,
		ProjectRepo:  projectRepo,
		VideoRepo:    videoRepo,
		QuestionRepo: questionRepo,
		RoleRepo:     roleRepo,
		Completion: &CompletionCalculator{
			ProjectRepo:     projectRepo,
			AnswerRepo:      answerRepo,
			GroundTruthRepo: groundTruthRepo,
		},
		Cache: cache,
	}
}

type ProjectReq struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (s *ProjectService) Create(req ProjectReq) (*model.Project, error) {
	project := &model.Project{Name: req.Name, Description: req.Description}
	if err := s.ProjectRepo.Create(project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *ProjectService) Get(id uint) (*model.Project, error) {
	project, err := s.ProjectRepo.FindByID(id)
	if err == gorm.ErrRecordNotFound {
		return nil, util.ErrProjectNotFound
	}
	return project, err
}

func (s *ProjectService) List(page, limit int) ([]model.Project, int64, error) {
	return s.ProjectRepo.List(page, limit)
}

func (s *ProjectService) Archive(id uint) error {
	return s.ProjectRepo.Archive(id)
}

func (s *ProjectService) AssignVideo(projectID, videoID uint) error {
	if _, err := s.ProjectRepo.FindByID(projectID); err != nil {
		return util.ErrProjectNotFound
	}
	if _, err := s.VideoRepo.FindByID(videoID); err != nil {
		return util.ErrVideoNotFound
	}
	return s.ProjectRepo.AddVideo(projectID, videoID)
}

// AttachGroup 把问题组挂到项目模板。可复用组不得携带项目级展示覆盖，
// 挂载时校验这一不变式。
func (s *ProjectService) AttachGroup(projectID, groupID uint, sortOrder int) error {
	group, err := s.QuestionRepo.FindGroupByID(groupID)
	if err == gorm.ErrRecordNotFound {
		return util.ErrGroupNotFound
	}
	if err != nil {
		return err
	}

	if group.Reusable {
		questions, err := s.QuestionRepo.ListGroupQuestions(groupID)
		if err != nil {
			return err
		}
		ids := make([]uint, len(questions))
		for i, q := range questions {
			ids[i] = q.ID
		}
		has, err := s.ProjectRepo.HasDisplayOverrides(ids)
		if err != nil {
			return err
		}
		if has {
			return util.ErrReusableDisplayOverride
		}
	}

	return s.ProjectRepo.AddSchemaEntry(&model.ProjectSchemaEntry{
		ProjectID: projectID,
		GroupID:   groupID,
		SortOrder: sortOrder,
	})
}

// SetDisplayOverride 设置项目级选项展示覆盖；问题属于任一可复用组时拒绝
func (s *ProjectService) SetDisplayOverride(o *model.ProjectQuestionDisplay) error {
	groupIDs, err := s.QuestionRepo.GroupIDsForQuestion(o.QuestionID)
	if err != nil {
		return err
	}
	for _, gid := range groupIDs {
		group, err := s.QuestionRepo.FindGroupByID(gid)
		if err != nil {
			return err
		}
		if group.Reusable {
			return util.ErrReusableDisplayOverride
		}
	}
	return s.ProjectRepo.UpsertDisplayOverride(o)
}

type AssignRoleReq struct {
	UserID     uint           `json:"userId" binding:"required"`
	Role       model.RoleType `json:"role" binding:"required"`
	UserWeight float64        `json:"userWeight"`
}

// AssignRole 角色层级向下展开：授予 reviewer 同时授予 annotator，
// 授予 admin 同时授予 reviewer、annotator
func (s *ProjectService) AssignRole(projectID uint, req AssignRoleReq) error {
	if !model.ValidRole(req.Role) {
		return util.ErrInvalidRole
	}
	if _, err := s.ProjectRepo.FindByID(projectID); err != nil {
		return util.ErrProjectNotFound
	}

	weight := req.UserWeight
	if weight <= 0 {
		weight = 1.0
	}

	roles := append([]model.RoleType{req.Role}, model.ImpliedRoles(req.Role)...)
	return s.DB.Transaction(func(tx *gorm.DB) error {
		for _, role := range roles {
			assignment := &model.RoleAssignment{
				ProjectID:  projectID,
				UserID:     req.UserID,
				Role:       role,
				UserWeight: weight,
			}
			if err := s.RoleRepo.Upsert(tx, assignment); err != nil {
				return err
			}
		}
		return nil
	})
}

// RemoveRole 归档角色并沿层级级联：移除 annotator 同时失效 reviewer 和 admin
func (s *ProjectService) RemoveRole(projectID, userID uint, role model.RoleType) error {
	if !model.ValidRole(role) {
		return util.ErrInvalidRole
	}
	if _, err := s.RoleRepo.FindActive(projectID, userID, role); err == gorm.ErrRecordNotFound {
		return util.ErrRoleAssignmentNotFound
	} else if err != nil {
		return err
	}

	roles := append([]model.RoleType{role}, model.DependentRoles(role)...)
	return s.DB.Transaction(func(tx *gorm.DB) error {
		return s.RoleRepo.Archive(tx, projectID, userID, roles)
	})
}

// UserCompletion 用户完成度，带 redis 缓存
func (s *ProjectService) UserCompletion(ctx context.Context, projectID, userID uint, role model.RoleType) (float64, error) {
	if s.Cache != nil {
		if v, ok := s.Cache.Get(ctx, projectID, userID, string(role)); ok {
			return v, nil
		}
	}

	var completion float64
	var err error
	switch role {
	// admin 蕴含 reviewer，按复核口径统计
	case model.RoleReviewer, model.RoleAdmin:
		completion, err = s.Completion.ReviewerCompletion(projectID)
	default:
		completion, err = s.Completion.AnnotatorCompletion(projectID, userID)
	}
	if err != nil {
		return 0, err
	}

	if s.Cache != nil {
		s.Cache.Set(ctx, projectID, userID, string(role), completion)
	}
	return completion, nil
}
