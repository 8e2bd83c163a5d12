package service

import (
	"testing"

	"video_label_backend/internal/model"
	"video_label_backend/internal/repository"
	"video_label_backend/internal/util"
)

func newSchemaService(t *testing.T) *SchemaService {
	t.Helper()
	return NewSchemaService(repository.NewQuestionRepository(setupTestDB(t)))
}

func TestCreateQuestionValidation(t *testing.T) {
	svc := newSchemaService(t)

	cases := []struct {
		name string
		req  QuestionReq
		want error
	}{
		{
			name: "unknown type",
			req:  QuestionReq{Text: "q", Type: "multi_choice"},
			want: util.ErrInvalidQuestionType,
		},
		{
			name: "weight length mismatch",
			req: QuestionReq{
				Text: "q", Type: "single_choice",
				Options:       []string{"A", "B"},
				OptionWeights: []float64{2.0},
			},
			want: util.ErrOptionWeightMismatch,
		},
		{
			name: "duplicate option",
			req: QuestionReq{
				Text: "q", Type: "single_choice",
				Options: []string{"A", "A"},
			},
			want: util.ErrDuplicateOption,
		},
		{
			name: "default outside options",
			req: QuestionReq{
				Text: "q", Type: "single_choice",
				Options:       []string{"A", "B"},
				DefaultOption: "C",
			},
			want: util.ErrValueNotInOptions,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateQuestion(tc.req); err != tc.want {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCreateQuestionDefaults(t *testing.T) {
	svc := newSchemaService(t)

	q, err := svc.CreateQuestion(QuestionReq{
		Text:          "vehicle_present",
		Type:          "single_choice",
		Options:       []string{"A", "B"},
		OptionWeights: []float64{2.0, 1.0},
		DefaultOption: "B",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// 未指定阈值回落到 100
	if q.AcceptThreshold != DefaultThreshold {
		t.Fatalf("threshold = %v, want %v", q.AcceptThreshold, DefaultThreshold)
	}
	if q.OptionWeight("A") != 2.0 || q.OptionWeight("B") != 1.0 {
		t.Fatalf("option weights = %+v", q.Options)
	}
	// 权重数组缺省时每个选项按 1.0 计
	free, err := svc.CreateQuestion(QuestionReq{
		Text:    "plain",
		Type:    "single_choice",
		Options: []string{"X", "Y"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if free.OptionWeight("X") != 1.0 {
		t.Fatalf("default option weight = %v, want 1.0", free.OptionWeight("X"))
	}
}

func TestCreateGroupHookMustBeRegistered(t *testing.T) {
	svc := newSchemaService(t)

	if _, err := svc.CreateGroup(GroupReq{
		Title:            "g",
		VerificationHook: "schema_test_unregistered",
	}); err != util.ErrUnknownVerificationHook {
		t.Fatalf("err = %v, want ErrUnknownVerificationHook", err)
	}

	if err := RegisterVerificationHook("schema_test_hook", func(map[string]string) error { return nil }); err != nil {
		t.Fatalf("register: %v", err)
	}

	q, err := svc.CreateQuestion(QuestionReq{Text: "q1", Type: "free_text"})
	if err != nil {
		t.Fatalf("create question: %v", err)
	}

	group, err := svc.CreateGroup(GroupReq{
		Title:            "g",
		VerificationHook: "schema_test_hook",
		QuestionIDs:      []uint{q.ID},
	})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}

	_, questions, err := svc.GetGroup(group.ID)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if len(questions) != 1 || questions[0].ID != q.ID {
		t.Fatalf("group questions = %+v", questions)
	}
}

func TestArchivedQuestionLeavesGroupListing(t *testing.T) {
	svc := newSchemaService(t)

	q1, _ := svc.CreateQuestion(QuestionReq{Text: "keep", Type: "free_text"})
	q2, _ := svc.CreateQuestion(QuestionReq{Text: "drop", Type: "free_text"})
	group, err := svc.CreateGroup(GroupReq{Title: "g", QuestionIDs: []uint{q1.ID, q2.ID}})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}

	if err := svc.ArchiveQuestion(q2.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}

	_, questions, err := svc.GetGroup(group.ID)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if len(questions) != 1 || questions[0].ID != q1.ID {
		t.Fatalf("archived question still listed: %+v", questions)
	}
}

func TestQuestionGroupMembership(t *testing.T) {
	f := newFixture(t)
	repo := repository.NewQuestionRepository(f.db)

	ids, err := repo.GroupIDsForQuestion(f.choice.ID)
	if err != nil {
		t.Fatalf("group ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != f.group.ID {
		t.Fatalf("ids = %v, want [%d]", ids, f.group.ID)
	}

	q := model.Question{Text: "orphan", Type: model.FreeText, AcceptThreshold: 100}
	mustCreate(t, f.db, &q)
	ids, err = repo.GroupIDsForQuestion(q.ID)
	if err != nil {
		t.Fatalf("group ids: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("orphan question in groups %v", ids)
	}
}
