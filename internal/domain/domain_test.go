package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestOptionsKeepInsertionOrder(t *testing.T) {
	raw := `{"question":"Pick","options":{"C":"three","A":"one","B":"two"},"answer":"A"}`
	var q Question
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(q.Options) != 3 || q.Options[0].Label != LabelC || q.Options[2].Label != LabelB {
		t.Fatalf("unexpected option order %+v", q.Options)
	}
	out, err := json.Marshal(q.Options)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"C":"three","A":"one","B":"two"}` {
		t.Fatalf("unexpected encoding %s", out)
	}
}

func TestOptionsRejectDuplicateLabels(t *testing.T) {
	var o Options
	if err := json.Unmarshal([]byte(`{"A":"x","a":"y"}`), &o); err == nil {
		t.Fatalf("expected duplicate label error")
	}
}

func TestRecordIDAcceptsNumbers(t *testing.T) {
	var rec ResultRecord
	if err := json.Unmarshal([]byte(`{"id":1700000000123,"name":"Ann","score":1,"total":5}`), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec.ID != "1700000000123" {
		t.Fatalf("expected numeric id kept as digits, got %q", rec.ID)
	}
	if err := json.Unmarshal([]byte(`{"id":"abc"}`), &rec); err != nil || rec.ID != "abc" {
		t.Fatalf("expected string id, got %q (%v)", rec.ID, err)
	}
}

func TestComputeStatistics(t *testing.T) {
	if got := ComputeStatistics(nil); got != (Statistics{}) {
		t.Fatalf("expected zero statistics, got %+v", got)
	}
	got := ComputeStatistics([]ResultRecord{{Score: 3}, {Score: 4}, {Score: 4}})
	want := Statistics{TotalAttempts: 3, AverageScore: 3.7, HighestScore: 4, LowestScore: 3}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestPercentageAndGrade(t *testing.T) {
	if p := Percentage(1, 5); p != 20 {
		t.Fatalf("expected 20, got %d", p)
	}
	if p := Percentage(2, 3); p != 67 {
		t.Fatalf("expected 67, got %d", p)
	}
	if title, _ := Grade(80); title != "Excellent!" {
		t.Fatalf("unexpected grade %q", title)
	}
	if title, _ := Grade(39); title != "Study More!" {
		t.Fatalf("unexpected grade %q", title)
	}
}

func TestQuestionValidate(t *testing.T) {
	for _, q := range DefaultQuestions() {
		if err := q.Validate(); err != nil {
			t.Fatalf("default question invalid: %v", err)
		}
	}

	bad := []Question{
		{Text: "", Options: Options{{LabelA, "x"}, {LabelB, "y"}}, Answer: LabelA},
		{Text: "one option", Options: Options{{LabelA, "x"}}, Answer: LabelA},
		{Text: "bad label", Options: Options{{LabelA, "x"}, {"E", "y"}}, Answer: LabelA},
		{Text: "missing answer", Options: Options{{LabelA, "x"}, {LabelB, "y"}}, Answer: LabelD},
	}
	for _, q := range bad {
		if err := q.Validate(); !errors.Is(err, ErrInvalidQuestion) {
			t.Fatalf("expected invalid question for %q, got %v", q.Text, err)
		}
	}
}
