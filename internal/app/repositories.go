package app

import (
	"context"

	"sparklab/internal/domain"
)

// ActivityRepository stores the activity catalog.
type ActivityRepository interface {
	ListActivities(ctx context.Context) ([]domain.Activity, error)
	GetActivity(ctx context.Context, id string) (domain.Activity, error)
	CreateActivity(ctx context.Context, activity domain.Activity) error
}

// ProgressRepository abstracts how activity sessions are stored (in-memory, Redis, Postgres).
// LoadProgress returns domain.ErrProgressNotFound when nothing has been saved yet.
type ProgressRepository interface {
	LoadProgress(ctx context.Context, activityID, userID string) (domain.ActivitySession, error)
	SaveProgress(ctx context.Context, session domain.ActivitySession) error
}

// ActionRepository keeps reported user actions.
type ActionRepository interface {
	AppendAction(ctx context.Context, record domain.ActionRecord) error
}

// ActionPublisher forwards actions to other systems (message broker).
type ActionPublisher interface {
	PublishAction(ctx context.Context, record domain.ActionRecord) error
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, name string) (domain.Quiz, error)
}

// ResultRepository persists quiz attempts.
type ResultRepository interface {
	SaveResult(ctx context.Context, result domain.QuizResult) error
	// ListResults returns results newest first. An empty searchText returns everything.
	ListResults(ctx context.Context, searchText string) ([]domain.QuizResult, error)
}

// UserRepository stores accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user domain.User) error
	UserByUserID(ctx context.Context, userID string) (domain.User, error)
	ListUsersByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
}
