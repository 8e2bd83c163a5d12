package service

import (
	"context"
	"time"

	"video_label_backend/internal/model"
	"video_label_backend/internal/repository"
	"video_label_backend/internal/util"
	"video_label_backend/pkg/monitoring"

	"gorm.io/gorm"
)

// ConsensusService 组提交编排器：对一个问题组跑 计票 → 阈值判定 → 落库。
// 标注员策略逐题尽力而为，复核员策略对整组做全有或全无的原子提交。
type ConsensusService struct {
	DB              *gorm.DB
	QuestionRepo    *repository.QuestionRepository
	ProjectRepo     *repository.ProjectRepository
	AnswerRepo      *repository.AnswerRepository
	GroundTruthRepo *repository.GroundTruthRepository
	RoleRepo        *repository.RoleAssignmentRepository
	Completion      *CompletionCalculator
	Cache           *CompletionCache
}

func NewConsensusService(
	db *gorm.DB,
	questionRepo *repository.QuestionRepository,
	projectRepo *repository.ProjectRepository,
	answerRepo *repository.AnswerRepository,
	groundTruthRepo *repository.GroundTruthRepository,
	roleRepo *repository.RoleAssignmentRepository,
	cache *CompletionCache,
) *ConsensusService {
	return &ConsensusService{
		DB:              db,
		QuestionRepo:    questionRepo,
		ProjectRepo:     projectRepo,
		AnswerRepo:      answerRepo,
		GroundTruthRepo: groundTruthRepo,
		RoleRepo:        roleRepo,
		Completion: &CompletionCalculator{
			ProjectRepo:     projectRepo,
			AnswerRepo:      answerRepo,
			GroundTruthRepo: groundTruthRepo,
		},
		Cache: cache,
	}
}

// AutoSubmitRequest 自动提交（聚合）请求。映射均以问题文本为键。
type AutoSubmitRequest struct {
	VideoID   uint `json:"videoId"`
	ProjectID uint `json:"projectId"`
	GroupID   uint `json:"groupId"`

	// 标注员策略：答案写给谁；复核员策略：提交的复核员
	TargetUserID uint `json:"targetUserId"`

	IncludedUserIDs []uint                        `json:"includedUserIds"`
	Virtual         map[string][]VirtualResponse  `json:"virtualResponses"`
	Thresholds      map[string]float64            `json:"thresholds"`
	UserWeights     map[uint]float64              `json:"userWeights"`   // 显式用户权重覆盖
	OptionWeights   map[string]map[string]float64 `json:"optionWeights"` // 复核场景的选项权重覆盖
}

// ThresholdFailure 单题共识失败明细
type ThresholdFailure struct {
	Question   string  `json:"question"`
	Percentage float64 `json:"percentage"`
	Threshold  float64 `json:"threshold"`
}

// GroupSubmitResult 组提交报告。调用方按字段分支处理"无事可做"等预期结果，
// 不依赖 error 区分。
type GroupSubmitResult struct {
	Answers            map[string]string  `json:"answers"`
	Skipped            []string           `json:"skipped"`
	ThresholdFailures  []ThresholdFailure `json:"threshold_failures"`
	VerificationFailed bool               `json:"verification_failed"`
	VerificationError  string             `json:"verification_error,omitempty"`
	Submitted          int                `json:"submitted"`
}

// loadGroup 公共前置：组存在、未归档、挂在项目模板下
func (s *ConsensusService) loadGroup(projectID, groupID uint) (*model.QuestionGroup, []model.Question, error) {
	group, err := s.QuestionRepo.FindGroupByID(groupID)
	if err == gorm.ErrRecordNotFound {
		return nil, nil, util.ErrGroupNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	if group.IsArchived {
		return nil, nil, util.ErrGroupNotFound
	}

	ok, err := s.ProjectRepo.HasGroup(projectID, groupID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, util.ErrGroupNotInProject
	}

	questions, err := s.QuestionRepo.ListGroupQuestions(groupID)
	if err != nil {
		return nil, nil, err
	}
	return group, questions, nil
}

// resolveWeights 构建本次调用的不可变权重快照：显式覆盖 > 角色权重 > 1.0
func (s *ConsensusService) resolveWeights(projectID uint, overrides map[uint]float64) (map[uint]float64, error) {
	weights, err := s.RoleRepo.WeightSnapshot(projectID)
	if err != nil {
		return nil, err
	}
	for userID, w := range overrides {
		weights[userID] = w
	}
	return weights, nil
}

// resolveQuestion 单题求解：自由文本的合成票特例 + 计票 + 阈值判定
func (s *ConsensusService) resolveQuestion(q *model.Question, req *AutoSubmitRequest, weights map[uint]float64) (ConsensusResult, error) {
	virtual := req.Virtual[q.Text]

	if q.Type == model.FreeText {
		// 恰好一条合成票直接定值；多于一条是歧义的合成共识，必须报错
		if len(virtual) > 1 {
			return ConsensusResult{}, util.ErrAmbiguousVirtualResponses
		}
		if len(virtual) == 1 {
			return ConsensusResult{OK: true, Value: virtual[0].Value, Percentage: 100}, nil
		}
	}

	answers, err := s.AnswerRepo.ListForQuestion(req.VideoID, q.ID, req.ProjectID, req.IncludedUserIDs)
	if err != nil {
		return ConsensusResult{}, err
	}

	tally := ComputeTally(TallyInput{
		Question:      q,
		Answers:       answers,
		UserWeights:   weights,
		OptionWeights: req.OptionWeights[q.Text],
		Virtual:       virtual,
	})

	return DecideConsensus(tally, s.threshold(q, req)), nil
}

func (s *ConsensusService) threshold(q *model.Question, req *AutoSubmitRequest) float64 {
	if t, ok := req.Thresholds[q.Text]; ok {
		return t
	}
	if q.AcceptThreshold > 0 {
		return q.AcceptThreshold
	}
	return DefaultThreshold
}

// AutoSubmitAnnotator 尽力而为策略：逐题独立判定，已有答案跳过，
// 失败记入报告不阻塞其他题；校验钩子否决时整组不落库。
func (s *ConsensusService) AutoSubmitAnnotator(ctx context.Context, req *AutoSubmitRequest) (*GroupSubmitResult, error) {
	group, questions, err := s.loadGroup(req.ProjectID, req.GroupID)
	if err != nil {
		return nil, err
	}

	hasRole, err := s.RoleRepo.HasActiveRole(req.ProjectID, req.TargetUserID, model.RoleAnnotator)
	if err != nil {
		return nil, err
	}
	if !hasRole {
		return nil, util.ErrPermissionDenied
	}

	weights, err := s.resolveWeights(req.ProjectID, req.UserWeights)
	if err != nil {
		return nil, err
	}

	result := &GroupSubmitResult{Answers: make(map[string]string)}
	staged := make(map[uint]string, len(questions)) // question id -> value

	for i := range questions {
		q := &questions[i]

		if _, err := s.AnswerRepo.FindByKey(req.VideoID, q.ID, req.TargetUserID, req.ProjectID); err == nil {
			result.Skipped = append(result.Skipped, q.Text)
			continue
		} else if err != gorm.ErrRecordNotFound {
			return nil, err
		}

		decision, err := s.resolveQuestion(q, req, weights)
		if err != nil {
			return nil, err
		}
		if !decision.OK {
			result.ThresholdFailures = append(result.ThresholdFailures, ThresholdFailure{
				Question:   q.Text,
				Percentage: decision.Percentage,
				Threshold:  s.threshold(q, req),
			})
			continue
		}

		staged[q.ID] = decision.Value
		result.Answers[q.Text] = decision.Value
	}

	if group.VerificationHook != "" && len(staged) > 0 {
		hook, ok := LookupVerificationHook(group.VerificationHook)
		if !ok {
			return nil, util.ErrUnknownVerificationHook
		}
		if err := hook(result.Answers); err != nil {
			result.VerificationFailed = true
			result.VerificationError = err.Error()
			result.Answers = make(map[string]string)
			monitoring.GroupCommitCounter.WithLabelValues("annotator", "verification_failed").Inc()
			return result, nil
		}
	}

	if len(staged) == 0 {
		monitoring.GroupCommitCounter.WithLabelValues("annotator", "nothing_to_do").Inc()
		return result, nil
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		for questionID, value := range staged {
			answer := &model.AnnotatorAnswer{
				VideoID:    req.VideoID,
				QuestionID: questionID,
				UserID:     req.TargetUserID,
				ProjectID:  req.ProjectID,
				Value:      value,
			}
			if err := tx.Create(answer).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.refreshAnnotatorCompletion(s.DB, req.ProjectID, req.TargetUserID); err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, req.ProjectID)
	result.Submitted = len(staged)
	monitoring.GroupCommitCounter.WithLabelValues("annotator", "committed").Inc()
	return result, nil
}

// AutoSubmitReviewer 原子策略：已有 ground truth 的题原样复用；
// 其余任一题共识失败则整组放弃，连已通过的题也不写入。
func (s *ConsensusService) AutoSubmitReviewer(ctx context.Context, req *AutoSubmitRequest) (*GroupSubmitResult, error) {
	group, questions, err := s.loadGroup(req.ProjectID, req.GroupID)
	if err != nil {
		return nil, err
	}

	hasRole, err := s.RoleRepo.HasActiveRole(req.ProjectID, req.TargetUserID, model.RoleReviewer)
	if err != nil {
		return nil, err
	}
	if !hasRole {
		return nil, util.ErrPermissionDenied
	}

	weights, err := s.resolveWeights(req.ProjectID, req.UserWeights)
	if err != nil {
		return nil, err
	}

	result := &GroupSubmitResult{Answers: make(map[string]string)}
	var lacking []*model.Question

	for i := range questions {
		q := &questions[i]
		gt, err := s.GroundTruthRepo.FindByKey(req.VideoID, q.ID, req.ProjectID)
		if err == gorm.ErrRecordNotFound {
			lacking = append(lacking, q)
			continue
		}
		if err != nil {
			return nil, err
		}
		// 已有行不重算也不重写
		result.Answers[q.Text] = gt.Value
		result.Skipped = append(result.Skipped, q.Text)
	}

	// 整组都已有 ground truth：零写入的终态成功
	if len(lacking) == 0 {
		monitoring.GroupCommitCounter.WithLabelValues("reviewer", "nothing_to_do").Inc()
		return result, nil
	}

	decided := make(map[uint]string, len(lacking)) // question id -> value
	for _, q := range lacking {
		decision, err := s.resolveQuestion(q, req, weights)
		if err != nil {
			return nil, err
		}
		if !decision.OK {
			result.ThresholdFailures = append(result.ThresholdFailures, ThresholdFailure{
				Question:   q.Text,
				Percentage: decision.Percentage,
				Threshold:  s.threshold(q, req),
			})
			continue
		}
		decided[q.ID] = decision.Value
		result.Answers[q.Text] = decision.Value
	}

	// 任一缺行题失败 ⇒ 整组放弃，原子性以组为粒度
	if len(result.ThresholdFailures) > 0 {
		for _, q := range lacking {
			delete(result.Answers, q.Text)
		}
		monitoring.GroupCommitCounter.WithLabelValues("reviewer", "aborted").Inc()
		return result, nil
	}

	if group.VerificationHook != "" {
		hook, ok := LookupVerificationHook(group.VerificationHook)
		if !ok {
			return nil, util.ErrUnknownVerificationHook
		}
		// 复用 + 新判定的并集一起过钩子
		if err := hook(result.Answers); err != nil {
			result.VerificationFailed = true
			result.VerificationError = err.Error()
			for _, q := range lacking {
				delete(result.Answers, q.Text)
			}
			monitoring.GroupCommitCounter.WithLabelValues("reviewer", "verification_failed").Inc()
			return result, nil
		}
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		for questionID, value := range decided {
			gt := &model.ReviewerGroundTruth{
				VideoID:       req.VideoID,
				QuestionID:    questionID,
				ProjectID:     req.ProjectID,
				Value:         value,
				OriginalValue: value,
				ReviewerID:    req.TargetUserID,
			}
			if err := tx.Create(gt).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	full, err := s.Completion.HasFullGroundTruth(req.ProjectID)
	if err != nil {
		return nil, err
	}
	if full {
		if err := s.RoleRepo.MarkComplete(s.DB, req.ProjectID, model.RoleReviewer, time.Now()); err != nil {
			return nil, err
		}
	}

	s.invalidateCache(ctx, req.ProjectID)
	result.Submitted = len(decided)
	monitoring.GroupCommitCounter.WithLabelValues("reviewer", "committed").Inc()
	return result, nil
}

func (s *ConsensusService) refreshAnnotatorCompletion(tx *gorm.DB, projectID, userID uint) error {
	completion, err := s.Completion.AnnotatorCompletion(projectID, userID)
	if err != nil {
		return err
	}
	if completion >= 100 {
		now := time.Now()
		return s.RoleRepo.MarkUserComplete(tx, projectID, userID, model.RoleAnnotator, &now)
	}
	return nil
}

func (s *ConsensusService) invalidateCache(ctx context.Context, projectID uint) {
	if s.Cache != nil {
		s.Cache.Invalidate(ctx, projectID)
	}
}
