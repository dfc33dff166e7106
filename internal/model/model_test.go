package model

import "testing"

func TestParseSubmitReason(t *testing.T) {
	tests := []struct {
		raw  string
		want SubmitReason
	}{
		{raw: "time up", want: SubmitReasonTimeUp},
		{raw: "Time up", want: SubmitReasonTimeUp},
		{raw: " Too many warnings ", want: SubmitReasonTooManyWarnings},
		{raw: "Manual submit", want: SubmitReasonManual},
		{raw: "", want: SubmitReasonUnknown},
		{raw: "score=100", want: SubmitReasonUnknown},
	}

	for _, tc := range tests {
		if got := ParseSubmitReason(tc.raw); got != tc.want {
			t.Errorf("ParseSubmitReason(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestQuestionForStudentDropsAnswerKey(t *testing.T) {
	q := Question{Text: "2+2?", Choices: []string{"3", "4", "5", "6"}, AnswerIndex: 1}
	s := q.ForStudent()
	if s.Text != q.Text || len(s.Choices) != ChoiceCount {
		t.Fatalf("unexpected student question: %+v", s)
	}

	s.Choices[0] = "mutated"
	if q.Choices[0] != "3" {
		t.Fatal("ForStudent must copy choices")
	}
}
