package service

import (
	"context"
	"errors"
	"testing"

	"video_label_backend/internal/model"
)

// secondProject 建第二个项目：挂同一问题组，共享第一个视频
func (f *fixture) secondProject(t *testing.T) model.Project {
	t.Helper()
	p2 := model.Project{Name: "night-study"}
	mustCreate(t, f.db, &p2)
	mustCreate(t, f.db, &model.ProjectSchemaEntry{ProjectID: p2.ID, GroupID: f.group.ID})
	mustCreate(t, f.db, &model.ProjectVideo{ProjectID: p2.ID, VideoID: f.videos[0].ID})
	return p2
}

func (f *fixture) makeGroupReusable(t *testing.T) {
	t.Helper()
	if err := f.db.Model(&f.group).Update("reusable", true).Error; err != nil {
		t.Fatalf("mark reusable: %v", err)
	}
}

func gtForProject(t *testing.T, f *fixture, projectID, videoID, questionID uint, value string) {
	t.Helper()
	mustCreate(t, f.db, &model.ReviewerGroundTruth{
		VideoID:       videoID,
		QuestionID:    questionID,
		ProjectID:     projectID,
		Value:         value,
		OriginalValue: value,
		ReviewerID:    f.reviewer.ID,
	})
}

func TestExportReusableConflict(t *testing.T) {
	f := newFixture(t)
	f.makeGroupReusable(t)
	p2 := f.secondProject(t)
	shared := f.videos[0]

	// 共享视频上同一问题的 ground truth 跨项目不一致
	gtForProject(t, f, f.project.ID, shared.ID, f.choice.ID, "A")
	gtForProject(t, f, p2.ID, shared.ID, f.choice.ID, "B")

	rows, err := f.exportService().Export(context.Background(), []uint{f.project.ID, p2.ID}, nil)
	if rows != nil {
		t.Fatal("violating export must produce no rows")
	}

	var cerr *ConsistencyError
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %v, want ConsistencyError", err)
	}
	if len(cerr.Violations) != 1 {
		t.Fatalf("violations = %+v, want exactly one", cerr.Violations)
	}
	v := cerr.Violations[0]
	if v.GroupID != f.group.ID || v.QuestionText != "vehicle_present" {
		t.Fatalf("violation = %+v", v)
	}
	if len(v.VideoIDs) != 1 || v.VideoIDs[0] != shared.ID {
		t.Fatalf("violation videos = %v, want [%d]", v.VideoIDs, shared.ID)
	}
}

func TestExportIsolationViolation(t *testing.T) {
	f := newFixture(t)
	// 组保持不可复用，但被两个视频集相交的项目共享
	p2 := f.secondProject(t)

	violations, err := f.exportService().ValidateConsistency(context.Background(), []uint{f.project.ID, p2.ID})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(violations) != 1 {
		t.Fatalf("violations = %+v, want exactly one", violations)
	}
	v := violations[0]
	if v.QuestionText != "" {
		t.Fatalf("isolation violation must carry no question, got %+v", v)
	}
	if len(v.VideoIDs) != 1 || v.VideoIDs[0] != f.videos[0].ID {
		t.Fatalf("violation videos = %v", v.VideoIDs)
	}
}

func TestExportViolationListCapped(t *testing.T) {
	f := newFixture(t)
	p2 := model.Project{Name: "wide-overlap"}
	mustCreate(t, f.db, &p2)
	mustCreate(t, f.db, &model.ProjectSchemaEntry{ProjectID: p2.ID, GroupID: f.group.ID})

	// 5 个共享视频，上限是 3
	var sharedIDs []uint
	for i := 0; i < 5; i++ {
		v := model.Video{Name: "shared.mp4"}
		v.Name = v.Name + string(rune('a'+i))
		mustCreate(t, f.db, &v)
		mustCreate(t, f.db, &model.ProjectVideo{ProjectID: f.project.ID, VideoID: v.ID})
		mustCreate(t, f.db, &model.ProjectVideo{ProjectID: p2.ID, VideoID: v.ID})
		sharedIDs = append(sharedIDs, v.ID)
	}

	violations, err := f.exportService().ValidateConsistency(context.Background(), []uint{f.project.ID, p2.ID})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(violations) != 1 {
		t.Fatalf("violations = %+v", violations)
	}
	v := violations[0]
	if len(v.VideoIDs) != 3 || v.Truncated != 2 {
		t.Fatalf("cap not applied: ids=%v truncated=%d", v.VideoIDs, v.Truncated)
	}
}

func TestExportAssembly(t *testing.T) {
	f := newFixture(t)
	f.makeGroupReusable(t)
	p2 := f.secondProject(t)
	shared, only1 := f.videos[0], f.videos[1]

	// 共享视频两侧值一致；第二个视频只属第一个项目
	gtForProject(t, f, f.project.ID, shared.ID, f.choice.ID, "A")
	gtForProject(t, f, p2.ID, shared.ID, f.choice.ID, "A")
	gtForProject(t, f, f.project.ID, only1.ID, f.choice.ID, "B")
	gtForProject(t, f, f.project.ID, shared.ID, f.free.ID, "dry road")

	var progressCalls int
	rows, err := f.exportService().Export(context.Background(), []uint{f.project.ID, p2.ID}, func(done, total int) {
		progressCalls++
		if total != 2 {
			t.Fatalf("progress total = %d, want 2", total)
		}
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if progressCalls != 2 {
		t.Fatalf("progress calls = %d, want 2", progressCalls)
	}

	// 行按视频 ID 升序
	if rows[0].VideoID != shared.ID || rows[1].VideoID != only1.ID {
		t.Fatalf("row order = %d,%d", rows[0].VideoID, rows[1].VideoID)
	}
	if rows[0].Answers["vehicle_present"].Value != "A" {
		t.Fatalf("shared answer = %+v", rows[0].Answers)
	}
	if rows[0].Answers["scene_description"].Value != "dry road" {
		t.Fatalf("free text answer = %+v", rows[0].Answers)
	}
	if rows[1].Answers["vehicle_present"].Value != "B" {
		t.Fatalf("second row answer = %+v", rows[1].Answers)
	}
	if _, ok := rows[1].Answers["scene_description"]; ok {
		t.Fatal("missing ground truth must not fabricate an answer")
	}
}

func TestExportDisplayOverrides(t *testing.T) {
	f := newFixture(t)
	// 不可复用组 + 无视频交集的第二个项目：展示覆盖合法
	p2 := model.Project{Name: "display-study"}
	mustCreate(t, f.db, &p2)
	mustCreate(t, f.db, &model.ProjectSchemaEntry{ProjectID: p2.ID, GroupID: f.group.ID})
	v2 := model.Video{Name: "exclusive.mp4"}
	mustCreate(t, f.db, &v2)
	mustCreate(t, f.db, &model.ProjectVideo{ProjectID: p2.ID, VideoID: v2.ID})

	gtForProject(t, f, p2.ID, v2.ID, f.choice.ID, "A")
	mustCreate(t, f.db, &model.ProjectQuestionDisplay{
		ProjectID:    p2.ID,
		QuestionID:   f.choice.ID,
		OptionValue:  "A",
		DisplayText:  "车辆出现",
		DisplayValue: "yes",
	})

	rows, err := f.exportService().Export(context.Background(), []uint{f.project.ID, p2.ID}, nil)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	var row *ExportRow
	for i := range rows {
		if rows[i].VideoID == v2.ID {
			row = &rows[i]
		}
	}
	if row == nil {
		t.Fatalf("no row for exclusive video in %+v", rows)
	}
	answer := row.Answers["vehicle_present"]
	if answer.Value != "A" {
		t.Fatalf("answer = %+v", answer)
	}
	d, ok := answer.Displays[p2.ID]
	if !ok || d.Value != "yes" || d.Text != "车辆出现" {
		t.Fatalf("display override = %+v", answer.Displays)
	}
}

func TestExportContextCancellation(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.exportService().Export(ctx, []uint{f.project.ID}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
