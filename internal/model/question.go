package model

import (
	"github.com/google/uuid"
)

// ChoiceCount is the fixed number of choices on every question.
const ChoiceCount = 4

// Question is a single multiple-choice item owned by an exam.
// AnswerIndex is the 0-based index of the correct choice.
type Question struct {
	ID          uuid.UUID `json:"id"`
	ExamID      uuid.UUID `json:"exam_id"`
	Text        string    `json:"text"`
	Choices     []string  `json:"choices"`
	AnswerIndex int       `json:"answer_index"`
	OrderNum    int       `json:"order_num"`
}

// ForStudent strips the answer key.
func (q Question) ForStudent() QuestionForStudent {
	choices := make([]string, len(q.Choices))
	copy(choices, q.Choices)
	return QuestionForStudent{ID: q.ID, Text: q.Text, Choices: choices}
}

// AddQuestionRequest is the payload for adding a question to an exam.
// Answer is 1-based as entered by the administrator.
type AddQuestionRequest struct {
	Text    string   `json:"text" binding:"required,min=1,max=5000"`
	Choices []string `json:"choices" binding:"required,len=4,dive,required,max=1000"`
	Answer  int      `json:"answer" binding:"required,min=1,max=4"`
}
