package service

import (
	"context"
	"testing"
	"time"

	"video_label_backend/internal/model"
	"video_label_backend/internal/util"
)

func TestSubmitGroupValidatesBeforeWriting(t *testing.T) {
	f := newFixture(t)
	svc := f.annotationService()

	// 单选值不在选项里：整组拒绝，合法的自由文本答案也不落库
	err := svc.SubmitGroup(context.Background(), &SubmitGroupRequest{
		VideoID:   f.videos[0].ID,
		ProjectID: f.project.ID,
		GroupID:   f.group.ID,
		UserID:    f.alice.ID,
		Answers: map[string]string{
			"vehicle_present":   "Z",
			"scene_description": "fine answer",
		},
	})
	if err != util.ErrValueNotInOptions {
		t.Fatalf("err = %v, want ErrValueNotInOptions", err)
	}
	if n := countRows(t, f.db, &model.AnnotatorAnswer{}, ""); n != 0 {
		t.Fatalf("rejected submit wrote %d rows", n)
	}

	err = svc.SubmitGroup(context.Background(), &SubmitGroupRequest{
		VideoID:   f.videos[0].ID,
		ProjectID: f.project.ID,
		GroupID:   f.group.ID,
		UserID:    f.alice.ID,
		Answers:   map[string]string{"unrelated_question": "A"},
	})
	if err != util.ErrQuestionNotInGroup {
		t.Fatalf("err = %v, want ErrQuestionNotInGroup", err)
	}
}

func TestSubmitGroupIdempotentResubmit(t *testing.T) {
	f := newFixture(t)
	svc := f.annotationService()
	req := &SubmitGroupRequest{
		VideoID:   f.videos[0].ID,
		ProjectID: f.project.ID,
		GroupID:   f.group.ID,
		UserID:    f.alice.ID,
		Answers:   map[string]string{"vehicle_present": "A"},
	}

	if err := svc.SubmitGroup(context.Background(), req); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	var first model.AnnotatorAnswer
	if err := f.db.Where("user_id = ?", f.alice.ID).First(&first).Error; err != nil {
		t.Fatalf("find answer: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	if err := svc.SubmitGroup(context.Background(), req); err != nil {
		t.Fatalf("resubmit: %v", err)
	}

	var second model.AnnotatorAnswer
	if err := f.db.Where("user_id = ?", f.alice.ID).First(&second).Error; err != nil {
		t.Fatalf("find answer: %v", err)
	}
	if n := countRows(t, f.db, &model.AnnotatorAnswer{}, ""); n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}
	if !second.UpdatedAt.Equal(first.UpdatedAt) {
		t.Fatalf("identical resubmit must not touch the row: %v != %v", second.UpdatedAt, first.UpdatedAt)
	}
}

func TestSubmitGroupFreeTextReviewLifecycle(t *testing.T) {
	f := newFixture(t)
	svc := f.annotationService()
	req := &SubmitGroupRequest{
		VideoID:   f.videos[0].ID,
		ProjectID: f.project.ID,
		GroupID:   f.group.ID,
		UserID:    f.alice.ID,
		Answers:   map[string]string{"scene_description": "dry road"},
	}

	if err := svc.SubmitGroup(context.Background(), req); err != nil {
		t.Fatalf("submit: %v", err)
	}

	var answer model.AnnotatorAnswer
	if err := f.db.Where("user_id = ? AND question_id = ?", f.alice.ID, f.free.ID).First(&answer).Error; err != nil {
		t.Fatalf("find answer: %v", err)
	}
	var review model.AnswerReview
	if err := f.db.Where("answer_id = ?", answer.ID).First(&review).Error; err != nil {
		t.Fatalf("free text answer must create a review: %v", err)
	}
	if review.Status != model.ReviewPending {
		t.Fatalf("status = %q, want pending", review.Status)
	}

	// 复核通过
	if err := svc.ReviewAnswer(context.Background(), answer.ID, f.reviewer.ID, model.ReviewApproved); err != nil {
		t.Fatalf("review: %v", err)
	}
	if err := f.db.Where("answer_id = ?", answer.ID).First(&review).Error; err != nil {
		t.Fatalf("reload review: %v", err)
	}
	if review.Status != model.ReviewApproved || review.ReviewedAt == nil {
		t.Fatalf("review = %+v, want approved with timestamp", review)
	}

	// 值变化后重新回到 pending
	req.Answers["scene_description"] = "wet road"
	if err := svc.SubmitGroup(context.Background(), req); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if err := f.db.Where("answer_id = ?", answer.ID).First(&review).Error; err != nil {
		t.Fatalf("reload review: %v", err)
	}
	if review.Status != model.ReviewPending {
		t.Fatalf("changed value must reset review to pending, got %q", review.Status)
	}
	if n := countRows(t, f.db, &model.AnswerReview{}, "answer_id = ?", answer.ID); n != 1 {
		t.Fatalf("review rows = %d, want single upserted row", n)
	}
}

func TestSubmitGroupRequiresAnnotatorRole(t *testing.T) {
	f := newFixture(t)
	outsider := model.User{Name: "eve", Email: "eve@example.com", Password: "x"}
	mustCreate(t, f.db, &outsider)

	err := f.annotationService().SubmitGroup(context.Background(), &SubmitGroupRequest{
		VideoID:   f.videos[0].ID,
		ProjectID: f.project.ID,
		GroupID:   f.group.ID,
		UserID:    outsider.ID,
		Answers:   map[string]string{"vehicle_present": "A"},
	})
	if err != util.ErrPermissionDenied {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
}

func TestReviewAnswerRequiresReviewerRole(t *testing.T) {
	f := newFixture(t)
	answer := f.answer(t, f.videos[0].ID, f.free.ID, f.alice.ID, "dry road")

	err := f.annotationService().ReviewAnswer(context.Background(), answer.ID, f.bob.ID, model.ReviewApproved)
	if err != util.ErrPermissionDenied {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
}

func TestReviewAnswerFreeTextOnly(t *testing.T) {
	f := newFixture(t)
	answer := f.answer(t, f.videos[0].ID, f.choice.ID, f.alice.ID, "A")

	// 单选题答案不走复核，由共识计票裁决
	err := f.annotationService().ReviewAnswer(context.Background(), answer.ID, f.reviewer.ID, model.ReviewApproved)
	if err != util.ErrInvalidQuestionType {
		t.Fatalf("err = %v, want ErrInvalidQuestionType", err)
	}
	if n := countRows(t, f.db, &model.AnswerReview{}, "answer_id = ?", answer.ID); n != 0 {
		t.Fatalf("review rows = %d, want 0", n)
	}
}
