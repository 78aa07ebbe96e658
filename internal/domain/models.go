package domain

import (
	"time"
)

// Label identifies an option within a question.
type Label string

const (
	LabelA Label = "A"
	LabelB Label = "B"
	LabelC Label = "C"
	LabelD Label = "D"

	// Unanswered is recorded when a question is frozen without a selection.
	Unanswered Label = "unanswered"
)

// Labels is the fixed label set, in display order.
var Labels = []Label{LabelA, LabelB, LabelC, LabelD}

// Valid reports whether l belongs to the fixed label set.
func (l Label) Valid() bool {
	switch l {
	case LabelA, LabelB, LabelC, LabelD:
		return true
	}
	return false
}

// Question models an MCQ question with exactly one correct label.
type Question struct {
	Text    string  `json:"question"`
	Options Options `json:"options"`
	Answer  Label   `json:"answer"`
}

// Response is the frozen outcome of a single question within a session.
type Response struct {
	QuestionIndex int      `json:"questionIndex"`
	Question      Question `json:"question"`
	SelectedLabel Label    `json:"selectedLabel"`
	CorrectLabel  Label    `json:"correctLabel"`
	IsCorrect     bool     `json:"isCorrect"`
	TimedOut      bool     `json:"timedOut,omitempty"`
}

// Phase is the top-level state of a quiz session.
type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseInProgress Phase = "in_progress"
	PhaseCompleted  Phase = "completed"
)

// SessionState is everything needed to render and resume one quiz attempt.
// Responses is sparse: a nil entry means the question has not been frozen yet.
type SessionState struct {
	Questions        []Question  `json:"questions"`
	CurrentIndex     int         `json:"currentIndex"`
	Score            int         `json:"score"`
	Responses        []*Response `json:"responses"`
	PlayerName       string      `json:"playerName"`
	TimeRemaining    int         `json:"timeRemaining"`
	PendingSelection Label       `json:"pendingSelection,omitempty"`
	InProgress       bool        `json:"inProgress"`
	Phase            Phase       `json:"phase"`
	Difficulty       Difficulty  `json:"difficulty,omitempty"`
	StartedAt        time.Time   `json:"startedAt"`
}

// CountCorrect returns the number of frozen responses marked correct.
func CountCorrect(responses []*Response) int {
	n := 0
	for _, r := range responses {
		if r != nil && r.IsCorrect {
			n++
		}
	}
	return n
}

// Outcome strings stored on result records.
const (
	OutcomeCorrect = "Correct"
	OutcomeWrong   = "Wrong"
	NotAnswered    = "Not answered"
)

// ResponseSummary is the per-question line stored with a finished attempt.
type ResponseSummary struct {
	Question     string `json:"question" validate:"required"`
	ChosenLabel  string `json:"yourAnswer" validate:"required"`
	CorrectLabel string `json:"correctAnswer" validate:"required"`
	Outcome      string `json:"result" validate:"oneof=Correct Wrong"`
}

// ResultRecord is the immutable summary of one completed session.
type ResultRecord struct {
	ID         RecordID          `json:"id" validate:"required"`
	Name       string            `json:"name" validate:"required,max=100"`
	Score      int               `json:"score" validate:"gte=0,ltefield=Total"`
	Total      int               `json:"total" validate:"gt=0"`
	Percentage int               `json:"percentage" validate:"gte=0,lte=100"`
	CreatedAt  time.Time         `json:"timestamp"`
	Date       string            `json:"date,omitempty"`
	Time       string            `json:"time,omitempty"`
	Responses  []ResponseSummary `json:"responses" validate:"dive"`
}

// Statistics are aggregate figures derived from the current set of records.
type Statistics struct {
	TotalAttempts int     `json:"totalAttempts"`
	AverageScore  float64 `json:"averageScore"`
	HighestScore  int     `json:"highestScore"`
	LowestScore   int     `json:"lowestScore"`
}

// QuizInfo describes the quiz the results belong to.
type QuizInfo struct {
	Title          string `json:"title"`
	TotalQuestions int    `json:"totalQuestions"`
	CreatedDate    string `json:"createdDate"`
}

// ResultsDocument is the persisted results store layout.
type ResultsDocument struct {
	QuizInfo    QuizInfo       `json:"quizInfo"`
	Statistics  Statistics     `json:"statistics"`
	Results     []ResultRecord `json:"results"`
	LastUpdated *time.Time     `json:"lastUpdated,omitempty"`
}

// Difficulty selects the per-question time budget.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// SecondsPerQuestion returns the countdown for d, or 0 if d is unknown.
func (d Difficulty) SecondsPerQuestion() int {
	switch d {
	case DifficultyEasy:
		return 30
	case DifficultyMedium:
		return 20
	case DifficultyHard:
		return 15
	}
	return 0
}

// Settings are admin-tunable quiz parameters.
type Settings struct {
	Duration        int        `json:"duration" validate:"gte=1,lte=240"` // minutes
	TimePerQuestion int        `json:"timePerQuestion,omitempty" validate:"omitempty,gte=5,lte=600"`
	Difficulty      Difficulty `json:"difficulty,omitempty" validate:"omitempty,oneof=easy medium hard"`
}

// Credentials is the admin login payload.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
