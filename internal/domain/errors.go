package domain

import "errors"

var (
	// ErrActivityNotFound is returned when an activity ID is not in the catalog.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrActivityExists is returned when creating an activity with a taken ID.
	ErrActivityExists = errors.New("activity already exists")
	// ErrUnknownSection indicates a section tag that the activity does not define.
	ErrUnknownSection = errors.New("unknown section")
	// ErrAnswerLimit is returned when a session already holds the maximum number of answers.
	ErrAnswerLimit = errors.New("answer limit reached")
	// ErrProgressNotFound is returned by stores when no session has been saved yet.
	ErrProgressNotFound = errors.New("progress not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrUserExists is returned when registering a taken ID or email.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound is returned when no user matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned for a bad ID/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized is returned when a request carries no valid token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the caller's role may not perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidInput wraps validation failures.
	ErrInvalidInput = errors.New("invalid input")
)
