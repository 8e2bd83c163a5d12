package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"video_label_backend/internal/model"
	"video_label_backend/internal/repository"

	"gorm.io/gorm"
)

// ExportService 多项目导出。装配前必须通过两项一致性校验，
// 任一违规都整体拒绝，绝不产出部分导出。
type ExportService struct {
	DB              *gorm.DB
	ProjectRepo     *repository.ProjectRepository
	QuestionRepo    *repository.QuestionRepository
	VideoRepo       *repository.VideoRepository
	GroundTruthRepo *repository.GroundTruthRepository

	// 违规视频清单上限，超出折叠为截断计数
	MaxViolationVideos int
}

func NewExportService(
	db *gorm.DB,
	projectRepo *repository.ProjectRepository,
	questionRepo *repository.QuestionRepository,
	videoRepo *repository.VideoRepository,
	groundTruthRepo *repository.GroundTruthRepository,
	maxViolationVideos int,
) *ExportService {
	if maxViolationVideos <= 0 {
		maxViolationVideos = 10
	}
	return &ExportService{
		DB:                 db,
		ProjectRepo:        projectRepo,
		QuestionRepo:       questionRepo,
		VideoRepo:          videoRepo,
		GroundTruthRepo:    groundTruthRepo,
		MaxViolationVideos: maxViolationVideos,
	}
}

// ConsistencyViolation 一条一致性违规。QuestionText 为空表示隔离性违规
// （不可复用组被视频集相交的项目共享）。
type ConsistencyViolation struct {
	GroupID      uint   `json:"groupId"`
	GroupTitle   string `json:"groupTitle"`
	QuestionText string `json:"questionText,omitempty"`
	VideoIDs     []uint `json:"videoIds"`
	Truncated    int    `json:"truncated"` // 超出清单上限被折叠的违规视频数
}

// ConsistencyError 导出前校验失败，携带全部违规明细
type ConsistencyError struct {
	Violations []ConsistencyViolation
}

func (e *ConsistencyError) Error() string {
	var b strings.Builder
	b.WriteString("cross-project consistency check failed: ")
	for i, v := range e.Violations {
		if i > 0 {
			b.WriteString("; ")
		}
		if v.QuestionText != "" {
			fmt.Fprintf(&b, "group %q question %q videos %v", v.GroupTitle, v.QuestionText, v.VideoIDs)
		} else {
			fmt.Fprintf(&b, "group %q shared videos %v", v.GroupTitle, v.VideoIDs)
		}
		if v.Truncated > 0 {
			fmt.Fprintf(&b, " (+%d more)", v.Truncated)
		}
	}
	return b.String()
}

// ValidateConsistency 两项独立检查：
// 1. 可复用组在共享视频上的 ground truth 必须跨项目一致；
// 2. 不可复用组不得被视频集相交的项目共享。
func (s *ExportService) ValidateConsistency(ctx context.Context, projectIDs []uint) ([]ConsistencyViolation, error) {
	projectVideos := make(map[uint]map[uint]bool, len(projectIDs))
	for _, pid := range projectIDs {
		ids, err := s.ProjectRepo.VideoIDs(pid)
		if err != nil {
			return nil, err
		}
		set := make(map[uint]bool, len(ids))
		for _, id := range ids {
			set[id] = true
		}
		projectVideos[pid] = set
	}

	groups, err := s.sharedGroups(projectIDs)
	if err != nil {
		return nil, err
	}

	var violations []ConsistencyViolation
	for _, sg := range groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if sg.group.Reusable {
			vs, err := s.checkReusableGroup(sg, projectVideos)
			if err != nil {
				return nil, err
			}
			violations = append(violations, vs...)
		} else {
			violations = append(violations, s.checkIsolation(sg, projectVideos)...)
		}
	}
	return violations, nil
}

type sharedGroup struct {
	group      model.QuestionGroup
	projectIDs []uint
}

// sharedGroups 挂在 ≥2 个导出项目下的问题组
func (s *ExportService) sharedGroups(projectIDs []uint) ([]sharedGroup, error) {
	seen := make(map[uint]bool)
	var out []sharedGroup
	for _, pid := range projectIDs {
		groups, err := s.ProjectRepo.SchemaGroups(pid)
		if err != nil {
			return nil, err
		}
		for _, g := range groups {
			if seen[g.ID] {
				continue
			}
			seen[g.ID] = true
			holders, err := s.ProjectRepo.ProjectIDsForGroup(g.ID, projectIDs)
			if err != nil {
				return nil, err
			}
			if len(holders) >= 2 {
				out = append(out, sharedGroup{group: g, projectIDs: holders})
			}
		}
	}
	return out, nil
}

func (s *ExportService) checkReusableGroup(sg sharedGroup, projectVideos map[uint]map[uint]bool) ([]ConsistencyViolation, error) {
	questions, err := s.QuestionRepo.ListGroupQuestions(sg.group.ID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, nil
	}

	questionIDs := make([]uint, len(questions))
	for i, q := range questions {
		questionIDs[i] = q.ID
	}
	rows, err := s.GroundTruthRepo.ListForProjectsQuestions(sg.projectIDs, questionIDs)
	if err != nil {
		return nil, err
	}

	// (question, video) -> 各项目 ground truth 值
	type cell struct{ questionID, videoID uint }
	values := make(map[cell]map[string]bool)
	for _, row := range rows {
		c := cell{row.QuestionID, row.VideoID}
		if values[c] == nil {
			values[c] = make(map[string]bool)
		}
		values[c][row.Value] = true
	}

	var violations []ConsistencyViolation
	for _, q := range questions {
		var bad []uint
		for videoID := range sharedVideos(sg.projectIDs, projectVideos) {
			vals := values[cell{q.ID, videoID}]
			if len(vals) > 1 {
				bad = append(bad, videoID)
			}
		}
		if len(bad) > 0 {
			sort.Slice(bad, func(i, j int) bool { return bad[i] < bad[j] })
			violations = append(violations, s.capViolation(ConsistencyViolation{
				GroupID:      sg.group.ID,
				GroupTitle:   sg.group.Title,
				QuestionText: q.Text,
				VideoIDs:     bad,
			}))
		}
	}
	return violations, nil
}

func (s *ExportService) checkIsolation(sg sharedGroup, projectVideos map[uint]map[uint]bool) []ConsistencyViolation {
	shared := sharedVideos(sg.projectIDs, projectVideos)
	if len(shared) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(shared))
	for id := range shared {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return []ConsistencyViolation{s.capViolation(ConsistencyViolation{
		GroupID:    sg.group.ID,
		GroupTitle: sg.group.Title,
		VideoIDs:   ids,
	})}
}

// sharedVideos 出现在 ≥2 个项目视频集中的视频
func sharedVideos(projectIDs []uint, projectVideos map[uint]map[uint]bool) map[uint]bool {
	counts := make(map[uint]int)
	for _, pid := range projectIDs {
		for videoID := range projectVideos[pid] {
			counts[videoID]++
		}
	}
	shared := make(map[uint]bool)
	for videoID, n := range counts {
		if n >= 2 {
			shared[videoID] = true
		}
	}
	return shared
}

func (s *ExportService) capViolation(v ConsistencyViolation) ConsistencyViolation {
	if len(v.VideoIDs) > s.MaxViolationVideos {
		v.Truncated = len(v.VideoIDs) - s.MaxViolationVideos
		v.VideoIDs = v.VideoIDs[:s.MaxViolationVideos]
	}
	return v
}

// ExportDisplay 项目级展示覆盖
type ExportDisplay struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

// ExportAnswer 导出值：原始值 + 各项目的展示覆盖
type ExportAnswer struct {
	Value    string                  `json:"value"`
	Displays map[uint]ExportDisplay  `json:"displays,omitempty"`
}

// ExportRow 每视频一行，问题文本为键
type ExportRow struct {
	VideoID   uint                    `json:"videoId"`
	VideoName string                  `json:"videoName"`
	Answers   map[string]ExportAnswer `json:"answers"`
}

// ProgressFunc 长批量扫描的进度回调
type ProgressFunc func(done, total int)

// Export 先校验后装配。每视频取各问题文本首见的 ground truth 值
//（检查 1 已保证共享处一致），并附上项目级展示覆盖。
func (s *ExportService) Export(ctx context.Context, projectIDs []uint, progress ProgressFunc) ([]ExportRow, error) {
	violations, err := s.ValidateConsistency(ctx, projectIDs)
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 {
		return nil, &ConsistencyError{Violations: violations}
	}

	type projectData struct {
		videoSet  map[uint]bool
		questions []model.Question
		displays  map[uint]map[string]ExportDisplay // questionID -> optionValue -> override
		truths    map[[2]uint]string                // (videoID, questionID) -> value
	}

	perProject := make(map[uint]*projectData, len(projectIDs))
	videoUnion := make(map[uint]bool)

	for _, pid := range projectIDs {
		videoIDs, err := s.ProjectRepo.VideoIDs(pid)
		if err != nil {
			return nil, err
		}
		pd := &projectData{
			videoSet: make(map[uint]bool, len(videoIDs)),
			displays: make(map[uint]map[string]ExportDisplay),
			truths:   make(map[[2]uint]string),
		}
		for _, id := range videoIDs {
			pd.videoSet[id] = true
			videoUnion[id] = true
		}

		groups, err := s.ProjectRepo.SchemaGroups(pid)
		if err != nil {
			return nil, err
		}
		questionSeen := make(map[uint]bool)
		for _, g := range groups {
			qs, err := s.QuestionRepo.ListGroupQuestions(g.ID)
			if err != nil {
				return nil, err
			}
			for _, q := range qs {
				if !questionSeen[q.ID] {
					questionSeen[q.ID] = true
					pd.questions = append(pd.questions, q)
				}
			}
		}

		overrides, err := s.ProjectRepo.DisplayOverrides(pid, nil)
		if err != nil {
			return nil, err
		}
		for _, o := range overrides {
			if pd.displays[o.QuestionID] == nil {
				pd.displays[o.QuestionID] = make(map[string]ExportDisplay)
			}
			pd.displays[o.QuestionID][o.OptionValue] = ExportDisplay{Text: o.DisplayText, Value: o.DisplayValue}
		}

		truths, err := s.GroundTruthRepo.ListForProject(pid)
		if err != nil {
			return nil, err
		}
		for _, gt := range truths {
			pd.truths[[2]uint{gt.VideoID, gt.QuestionID}] = gt.Value
		}

		perProject[pid] = pd
	}

	videoIDs := make([]uint, 0, len(videoUnion))
	for id := range videoUnion {
		videoIDs = append(videoIDs, id)
	}
	sort.Slice(videoIDs, func(i, j int) bool { return videoIDs[i] < videoIDs[j] })

	videos, err := s.VideoRepo.FindByIDs(videoIDs)
	if err != nil {
		return nil, err
	}
	videoNames := make(map[uint]string, len(videos))
	for _, v := range videos {
		videoNames[v.ID] = v.Name
	}

	rows := make([]ExportRow, 0, len(videoIDs))
	for i, videoID := range videoIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row := ExportRow{
			VideoID:   videoID,
			VideoName: videoNames[videoID],
			Answers:   make(map[string]ExportAnswer),
		}

		for _, pid := range projectIDs {
			pd := perProject[pid]
			if !pd.videoSet[videoID] {
				continue
			}
			for _, q := range pd.questions {
				value, ok := pd.truths[[2]uint{videoID, q.ID}]
				if !ok {
					continue
				}
				answer, exists := row.Answers[q.Text]
				if !exists {
					// 首见值；检查 1 已保证跨项目一致
					answer = ExportAnswer{Value: value}
				}
				if d, ok := pd.displays[q.ID][value]; ok {
					if answer.Displays == nil {
						answer.Displays = make(map[uint]ExportDisplay)
					}
					answer.Displays[pid] = d
				}
				row.Answers[q.Text] = answer
			}
		}

		rows = append(rows, row)
		if progress != nil {
			progress(i+1, len(videoIDs))
		}
	}

	return rows, nil
}
