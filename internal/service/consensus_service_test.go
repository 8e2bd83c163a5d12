package service

import (
	"context"
	"errors"
	"testing"

	"video_label_backend/internal/model"
	"video_label_backend/internal/util"
)

func TestAutoSubmitAnnotatorCommits(t *testing.T) {
	f := newFixture(t)
	svc := f.consensusService()
	video := f.videos[0]
	target := f.newUser(t, "carl", model.RoleAnnotator, 1.0)

	f.answer(t, video.ID, f.choice.ID, f.alice.ID, "A")
	f.answer(t, video.ID, f.choice.ID, f.bob.ID, "A")
	f.answer(t, video.ID, f.free.ID, f.alice.ID, "rainy street")
	f.answer(t, video.ID, f.free.ID, f.bob.ID, "rainy street")

	result, err := svc.AutoSubmitAnnotator(context.Background(), &AutoSubmitRequest{
		VideoID:      video.ID,
		ProjectID:    f.project.ID,
		GroupID:      f.group.ID,
		TargetUserID: target.ID,
	})
	if err != nil {
		t.Fatalf("auto submit: %v", err)
	}
	if result.Submitted != 2 {
		t.Fatalf("submitted = %d, want 2", result.Submitted)
	}
	if result.Answers["vehicle_present"] != "A" || result.Answers["scene_description"] != "rainy street" {
		t.Fatalf("answers = %v", result.Answers)
	}

	n := countRows(t, f.db, &model.AnnotatorAnswer{}, "user_id = ?", target.ID)
	if n != 2 {
		t.Fatalf("target answer rows = %d, want 2", n)
	}
}

func TestAutoSubmitAnnotatorBestEffort(t *testing.T) {
	f := newFixture(t)
	svc := f.consensusService()
	video := f.videos[0]
	target := f.newUser(t, "carl", model.RoleAnnotator, 1.0)

	// 目标用户已答自由文本题 → 跳过；单选题票数分裂 → 100% 阈值失败
	f.answer(t, video.ID, f.free.ID, target.ID, "already answered")
	f.answer(t, video.ID, f.choice.ID, f.alice.ID, "A")
	f.answer(t, video.ID, f.choice.ID, f.bob.ID, "B")

	result, err := svc.AutoSubmitAnnotator(context.Background(), &AutoSubmitRequest{
		VideoID:      video.ID,
		ProjectID:    f.project.ID,
		GroupID:      f.group.ID,
		TargetUserID: target.ID,
	})
	if err != nil {
		t.Fatalf("auto submit: %v", err)
	}
	if result.Submitted != 0 {
		t.Fatalf("submitted = %d, want 0", result.Submitted)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != "scene_description" {
		t.Fatalf("skipped = %v", result.Skipped)
	}
	if len(result.ThresholdFailures) != 1 || result.ThresholdFailures[0].Question != "vehicle_present" {
		t.Fatalf("threshold failures = %+v", result.ThresholdFailures)
	}
	// A 以选项权重 2.0 领先，2/3 仍低于 100
	if result.ThresholdFailures[0].Threshold != 100 {
		t.Fatalf("threshold = %v, want 100", result.ThresholdFailures[0].Threshold)
	}

	n := countRows(t, f.db, &model.AnnotatorAnswer{}, "user_id = ?", target.ID)
	if n != 1 {
		t.Fatalf("target answer rows = %d, want only the pre-existing one", n)
	}
}

func TestAutoSubmitAnnotatorVerificationVeto(t *testing.T) {
	f := newFixture(t)
	video := f.videos[0]
	target := f.newUser(t, "carl", model.RoleAnnotator, 1.0)

	if err := RegisterVerificationHook("veto_all_annotator", func(map[string]string) error {
		return errors.New("group rejected")
	}); err != nil {
		t.Fatalf("register hook: %v", err)
	}
	if err := f.db.Model(&f.group).Update("verification_hook", "veto_all_annotator").Error; err != nil {
		t.Fatalf("set hook: %v", err)
	}

	f.answer(t, video.ID, f.choice.ID, f.alice.ID, "A")
	f.answer(t, video.ID, f.choice.ID, f.bob.ID, "A")

	result, err := f.consensusService().AutoSubmitAnnotator(context.Background(), &AutoSubmitRequest{
		VideoID:      video.ID,
		ProjectID:    f.project.ID,
		GroupID:      f.group.ID,
		TargetUserID: target.ID,
	})
	if err != nil {
		t.Fatalf("auto submit: %v", err)
	}
	if !result.VerificationFailed || result.VerificationError == "" {
		t.Fatalf("expected verification veto, got %+v", result)
	}
	if result.Submitted != 0 {
		t.Fatalf("submitted = %d, want 0", result.Submitted)
	}
	if n := countRows(t, f.db, &model.AnnotatorAnswer{}, "user_id = ?", target.ID); n != 0 {
		t.Fatalf("veto must write nothing, got %d rows", n)
	}
}

func TestAutoSubmitReviewerAtomicAbort(t *testing.T) {
	f := newFixture(t)
	video := f.videos[0]

	// 自由文本题会通过，单选题分裂失败：原子策略下两题都不落库
	f.answer(t, video.ID, f.free.ID, f.alice.ID, "dry road")
	f.answer(t, video.ID, f.free.ID, f.bob.ID, "dry road")
	f.answer(t, video.ID, f.choice.ID, f.alice.ID, "A")
	f.answer(t, video.ID, f.choice.ID, f.bob.ID, "B")

	result, err := f.consensusService().AutoSubmitReviewer(context.Background(), &AutoSubmitRequest{
		VideoID:      video.ID,
		ProjectID:    f.project.ID,
		GroupID:      f.group.ID,
		TargetUserID: f.reviewer.ID,
	})
	if err != nil {
		t.Fatalf("auto submit: %v", err)
	}
	if result.Submitted != 0 {
		t.Fatalf("submitted = %d, want 0", result.Submitted)
	}
	if len(result.ThresholdFailures) != 1 {
		t.Fatalf("threshold failures = %+v", result.ThresholdFailures)
	}
	if len(result.Answers) != 0 {
		t.Fatalf("aborted group must report no answers, got %v", result.Answers)
	}
	if n := countRows(t, f.db, &model.ReviewerGroundTruth{}, ""); n != 0 {
		t.Fatalf("ground truth rows = %d, want 0", n)
	}
}

func TestAutoSubmitReviewerCommits(t *testing.T) {
	f := newFixture(t)
	video := f.videos[0]

	f.answer(t, video.ID, f.choice.ID, f.alice.ID, "A")
	f.answer(t, video.ID, f.choice.ID, f.bob.ID, "B")
	f.answer(t, video.ID, f.free.ID, f.alice.ID, "dry road")
	f.answer(t, video.ID, f.free.ID, f.bob.ID, "dry road")

	// 显式阈值 60：A 的加权份额 2/3 ≈ 66.7% 通过
	result, err := f.consensusService().AutoSubmitReviewer(context.Background(), &AutoSubmitRequest{
		VideoID:      video.ID,
		ProjectID:    f.project.ID,
		GroupID:      f.group.ID,
		TargetUserID: f.reviewer.ID,
		Thresholds:   map[string]float64{"vehicle_present": 60},
	})
	if err != nil {
		t.Fatalf("auto submit: %v", err)
	}
	if result.Submitted != 2 {
		t.Fatalf("submitted = %d, want 2", result.Submitted)
	}

	var gt model.ReviewerGroundTruth
	if err := f.db.Where("video_id = ? AND question_id = ?", video.ID, f.choice.ID).First(&gt).Error; err != nil {
		t.Fatalf("find ground truth: %v", err)
	}
	if gt.Value != "A" || gt.OriginalValue != "A" {
		t.Fatalf("gt = %+v, want value A with matching original", gt)
	}
	if gt.ReviewerID != f.reviewer.ID {
		t.Fatalf("reviewer id = %d, want %d", gt.ReviewerID, f.reviewer.ID)
	}
	if gt.ModifiedByAdminID != nil {
		t.Fatal("fresh ground truth must not carry admin fields")
	}
}

func TestAutoSubmitReviewerAllPresent(t *testing.T) {
	f := newFixture(t)
	video := f.videos[0]
	f.groundTruth(t, video.ID, f.choice.ID, "B")
	f.groundTruth(t, video.ID, f.free.ID, "night scene")

	result, err := f.consensusService().AutoSubmitReviewer(context.Background(), &AutoSubmitRequest{
		VideoID:      video.ID,
		ProjectID:    f.project.ID,
		GroupID:      f.group.ID,
		TargetUserID: f.reviewer.ID,
	})
	if err != nil {
		t.Fatalf("auto submit: %v", err)
	}
	if result.Submitted != 0 {
		t.Fatalf("submitted = %d, want 0", result.Submitted)
	}
	if len(result.Skipped) != 2 {
		t.Fatalf("skipped = %v, want both questions", result.Skipped)
	}
	if result.Answers["vehicle_present"] != "B" || result.Answers["scene_description"] != "night scene" {
		t.Fatalf("answers = %v", result.Answers)
	}
	if n := countRows(t, f.db, &model.ReviewerGroundTruth{}, ""); n != 2 {
		t.Fatalf("ground truth rows = %d, want unchanged 2", n)
	}
}

func TestAutoSubmitReviewerReusesExisting(t *testing.T) {
	f := newFixture(t)
	video := f.videos[0]

	// 单选题已有与当前票面相反的 ground truth，不得被重算覆盖
	f.groundTruth(t, video.ID, f.choice.ID, "B")
	f.answer(t, video.ID, f.choice.ID, f.alice.ID, "A")
	f.answer(t, video.ID, f.choice.ID, f.bob.ID, "A")
	f.answer(t, video.ID, f.free.ID, f.alice.ID, "dry road")
	f.answer(t, video.ID, f.free.ID, f.bob.ID, "dry road")

	result, err := f.consensusService().AutoSubmitReviewer(context.Background(), &AutoSubmitRequest{
		VideoID:      video.ID,
		ProjectID:    f.project.ID,
		GroupID:      f.group.ID,
		TargetUserID: f.reviewer.ID,
	})
	if err != nil {
		t.Fatalf("auto submit: %v", err)
	}
	if result.Submitted != 1 {
		t.Fatalf("submitted = %d, want 1", result.Submitted)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != "vehicle_present" {
		t.Fatalf("skipped = %v", result.Skipped)
	}

	var gt model.ReviewerGroundTruth
	if err := f.db.Where("video_id = ? AND question_id = ?", video.ID, f.choice.ID).First(&gt).Error; err != nil {
		t.Fatalf("find ground truth: %v", err)
	}
	if gt.Value != "B" {
		t.Fatalf("existing ground truth overwritten: %+v", gt)
	}
}

func TestAutoSubmitFreeTextVirtual(t *testing.T) {
	f := newFixture(t)
	video := f.videos[0]

	// 恰好一条合成票直接成为自由文本的值，无视落库答案
	f.answer(t, video.ID, f.free.ID, f.alice.ID, "something else")
	f.answer(t, video.ID, f.choice.ID, f.alice.ID, "A")
	f.answer(t, video.ID, f.choice.ID, f.bob.ID, "A")

	result, err := f.consensusService().AutoSubmitReviewer(context.Background(), &AutoSubmitRequest{
		VideoID:      video.ID,
		ProjectID:    f.project.ID,
		GroupID:      f.group.ID,
		TargetUserID: f.reviewer.ID,
		Virtual: map[string][]VirtualResponse{
			"scene_description": {{Value: "model caption", Weight: 1.0}},
		},
	})
	if err != nil {
		t.Fatalf("auto submit: %v", err)
	}
	if result.Answers["scene_description"] != "model caption" {
		t.Fatalf("answers = %v, want virtual caption", result.Answers)
	}

	// 多于一条合成票对自由文本是歧义，必须报错且零写入
	_, err = f.consensusService().AutoSubmitReviewer(context.Background(), &AutoSubmitRequest{
		VideoID:      f.videos[1].ID,
		ProjectID:    f.project.ID,
		GroupID:      f.group.ID,
		TargetUserID: f.reviewer.ID,
		Virtual: map[string][]VirtualResponse{
			"scene_description": {{Value: "one", Weight: 1}, {Value: "two", Weight: 1}},
		},
	})
	if err != util.ErrAmbiguousVirtualResponses {
		t.Fatalf("err = %v, want ErrAmbiguousVirtualResponses", err)
	}
	if n := countRows(t, f.db, &model.ReviewerGroundTruth{}, "video_id = ?", f.videos[1].ID); n != 0 {
		t.Fatalf("ambiguous submit wrote %d rows", n)
	}
}

func TestAutoSubmitRequiresRole(t *testing.T) {
	f := newFixture(t)
	outsider := model.User{Name: "eve", Email: "eve@example.com", Password: "x"}
	mustCreate(t, f.db, &outsider)

	_, err := f.consensusService().AutoSubmitAnnotator(context.Background(), &AutoSubmitRequest{
		VideoID:      f.videos[0].ID,
		ProjectID:    f.project.ID,
		GroupID:      f.group.ID,
		TargetUserID: outsider.ID,
	})
	if err != util.ErrPermissionDenied {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}

	_, err = f.consensusService().AutoSubmitReviewer(context.Background(), &AutoSubmitRequest{
		VideoID:      f.videos[0].ID,
		ProjectID:    f.project.ID,
		GroupID:      f.group.ID,
		TargetUserID: f.alice.ID, // 纯标注员没有复核权限
	})
	if err != util.ErrPermissionDenied {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
}

func TestAutoSubmitUnknownGroup(t *testing.T) {
	f := newFixture(t)

	_, err := f.consensusService().AutoSubmitAnnotator(context.Background(), &AutoSubmitRequest{
		VideoID:      f.videos[0].ID,
		ProjectID:    f.project.ID,
		GroupID:      9999,
		TargetUserID: f.alice.ID,
	})
	if err != util.ErrGroupNotFound {
		t.Fatalf("err = %v, want ErrGroupNotFound", err)
	}

	other := model.QuestionGroup{Title: "unattached"}
	mustCreate(t, f.db, &other)
	_, err = f.consensusService().AutoSubmitAnnotator(context.Background(), &AutoSubmitRequest{
		VideoID:      f.videos[0].ID,
		ProjectID:    f.project.ID,
		GroupID:      other.ID,
		TargetUserID: f.alice.ID,
	})
	if err != util.ErrGroupNotInProject {
		t.Fatalf("err = %v, want ErrGroupNotInProject", err)
	}
}
