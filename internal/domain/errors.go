package domain

import "errors"

var (
	// ErrNoQuestions is returned when a session is started without questions.
	ErrNoQuestions = errors.New("no questions to start a session with")
	// ErrSessionNotInProgress is returned for operations issued outside an active session.
	ErrSessionNotInProgress = errors.New("quiz session not in progress")
	// ErrInvalidLabel indicates a selection outside the current question's options.
	ErrInvalidLabel = errors.New("invalid option label")
	// ErrQuestionLocked is returned when selecting on a frozen question.
	ErrQuestionLocked = errors.New("question is locked")
	// ErrNoSelection is returned when advancing an unlocked question with nothing selected.
	ErrNoSelection = errors.New("no option selected")
	// ErrAtFirstQuestion is returned when going back from the first question.
	ErrAtFirstQuestion = errors.New("already at first question")
	// ErrInvalidSnapshot indicates a saved session that cannot be resumed.
	ErrInvalidSnapshot = errors.New("invalid saved session")
	// ErrResultNotFound is returned when deleting an unknown result id.
	ErrResultNotFound = errors.New("result not found")
	// ErrInvalidQuestion indicates a malformed question in a question set.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrInvalidResult indicates a malformed result record submission.
	ErrInvalidResult = errors.New("invalid result record")
	// ErrInvalidSettings indicates settings outside their allowed ranges.
	ErrInvalidSettings = errors.New("invalid settings")
	// ErrInvalidCredentials is returned by the admin login check.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrDocumentNotFound is returned by document stores for absent keys.
	ErrDocumentNotFound = errors.New("document not found")
)
