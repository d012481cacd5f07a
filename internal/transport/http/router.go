package http

import (
	"net/http"

	"sparklab/internal/app"
	"sparklab/internal/logger"
)

// Services are the use cases exposed over HTTP.
type Services struct {
	Users      *app.UserService
	Quizzes    *app.QuizService
	Activities *app.ActivityService
}

// RouterConfig carries the optional knobs of NewRouter.
type RouterConfig struct {
	// EmbedOrigin is the only origin embedded games may post results from.
	EmbedOrigin string
	Log         *logger.Logger
}

// NewRouter builds the REST and websocket routes.
func NewRouter(svc Services, cfg RouterConfig) http.Handler {
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}
	v := newRequestValidator()
	users := &userHandler{users: svc.Users, validate: v}
	quizzes := &quizHandler{quizzes: svc.Quizzes, validate: v}
	activities := &activityHandler{activities: svc.Activities, validate: v, log: log}
	embeds := NewEmbedWSHandler(svc.Activities, cfg.EmbedOrigin, log)
	results := NewResultsWSHandler(svc.Quizzes, svc.Users, log)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /api/v1/users/register", users.register)
	mux.HandleFunc("POST /api/v1/users/login", users.login)
	mux.HandleFunc("GET /api/v1/users/get-all-students", requireAuth(svc.Users, requireTeacher(users.students)))

	mux.HandleFunc("GET /api/v1/quizzes/get-all-quiz-results", quizzes.results)
	mux.HandleFunc("POST /api/v1/quizzes/saveQuizResults", quizzes.saveResult)
	mux.HandleFunc("GET /api/v1/quizzes/{name}", quizzes.quiz)
	mux.HandleFunc("POST /api/v1/quizzes/{name}/submit", quizzes.submit)

	mux.HandleFunc("GET /api/v1/activities", activities.list)
	mux.HandleFunc("POST /api/v1/activities", requireAuth(svc.Users, requireTeacher(activities.create)))
	mux.HandleFunc("GET /api/v1/activities/{id}", activities.get)
	mux.HandleFunc("GET /api/v1/activities/{id}/progress/{userId}", activities.progress)
	mux.HandleFunc("PUT /api/v1/activities/{id}/progress/{userId}", activities.advance)
	mux.HandleFunc("POST /api/v1/activities/{id}/action/{userId}", activities.action)
	mux.HandleFunc("GET /api/v1/activities/{id}/embeds/{userId}", activities.embedResults)
	mux.HandleFunc("POST /api/v1/activities/{id}/{section}/{userId}", activities.complete)

	mux.HandleFunc("GET /ws/embeds", embeds.ServeWS)
	mux.HandleFunc("GET /ws/results", results.ServeWS)

	return logRequests(log, mux)
}
