package model

import "testing"

func TestOptionValuesSortOrder(t *testing.T) {
	q := Question{
		Text: "vehicle_type",
		Type: SingleChoice,
		Options: []QuestionOption{
			{Value: "truck", SortOrder: 2},
			{Value: "car", SortOrder: 0},
			{Value: "bus", SortOrder: 1},
		},
	}

	got := q.OptionValues()
	want := []string{"car", "bus", "truck"}
	if len(got) != len(want) {
		t.Fatalf("OptionValues() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("OptionValues()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	// 原 Options 切片不被重排
	if q.Options[0].Value != "truck" {
		t.Errorf("Options mutated: first = %q, want %q", q.Options[0].Value, "truck")
	}
}

func TestOptionWeightDefault(t *testing.T) {
	q := Question{
		Type:    SingleChoice,
		Options: []QuestionOption{{Value: "A", Weight: 2.5}},
	}
	if w := q.OptionWeight("A"); w != 2.5 {
		t.Errorf("OptionWeight(A) = %v, want 2.5", w)
	}
	if w := q.OptionWeight("unknown"); w != 1.0 {
		t.Errorf("OptionWeight(unknown) = %v, want 1.0", w)
	}
}
