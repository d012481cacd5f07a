package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"sparklab/internal/app"
	"sparklab/internal/domain"
	"sparklab/internal/infra/memory"
)

type recordingPublisher struct {
	mu      sync.Mutex
	records []domain.ActionRecord
	err     error
}

func (p *recordingPublisher) PublishAction(_ context.Context, r domain.ActionRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, r)
	return p.err
}

type activityFixture struct {
	service   *app.ActivityService
	actions   *memory.ActionStore
	publisher *recordingPublisher
}

func newActivityFixture(opts ...app.ActivityOption) activityFixture {
	actions := memory.NewActionStore(0)
	pub := &recordingPublisher{}
	opts = append([]app.ActivityOption{
		app.WithPublisher(pub),
		app.WithActivityClock(func() time.Time { return fixedNow }),
	}, opts...)
	svc := app.NewActivityService(
		memory.NewActivityStore(domain.BuiltinActivities()...),
		memory.NewProgressStore(),
		actions,
		nil,
		opts...,
	)
	return activityFixture{service: svc, actions: actions, publisher: pub}
}

func TestProgressStartsAtFirstSection(t *testing.T) {
	f := newActivityFixture()
	session, err := f.service.Progress(context.Background(), "motor", "STUDENT001")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if session.CurrentSection != "video" || session.StarsEarned != 0 {
		t.Fatalf("unexpected fresh session %+v", session)
	}
}

func TestCompleteSectionLatchesAndPersists(t *testing.T) {
	ctx := context.Background()
	f := newActivityFixture()
	claimed := 500

	res, err := f.service.CompleteSection(ctx, "motor", "STUDENT001", "battery", nil, &claimed)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !res.First || res.StarsAwarded != 10 {
		t.Fatalf("expected configured reward of 10, got %+v", res)
	}

	res, err = f.service.CompleteSection(ctx, "motor", "STUDENT001", "battery", nil, nil)
	if err != nil {
		t.Fatalf("complete again: %v", err)
	}
	if res.First || res.StarsAwarded != 0 || res.Session.StarsEarned != 10 {
		t.Fatalf("repeat completion must not award: %+v", res)
	}
	if len(res.Session.Answers) != 2 {
		t.Fatalf("expected both answers logged, got %d", len(res.Session.Answers))
	}

	session, _ := f.service.Progress(ctx, "motor", "STUDENT001")
	if session.StarsEarned != 10 || !session.IsCompleted("battery") {
		t.Fatalf("progress not persisted: %+v", session)
	}
}

func TestCircuitPuzzleScoresOnlyCorrectAnswer(t *testing.T) {
	ctx := context.Background()
	f := newActivityFixture()

	wrong, _ := json.Marshal(map[string]string{"userAnswer": "battery"})
	res, err := f.service.CompleteSection(ctx, "circuit", "STUDENT002", "puzzle", wrong, nil)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if res.ScoreAwarded != 0 || res.IsCorrect == nil || *res.IsCorrect {
		t.Fatalf("wrong answer should not score: %+v", res)
	}
	if res.StarsAwarded != 7 {
		t.Fatalf("stars are awarded regardless of answer, got %d", res.StarsAwarded)
	}
}

func TestConcurrentCompletionsAwardOnce(t *testing.T) {
	ctx := context.Background()
	f := newActivityFixture()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.service.CompleteSection(ctx, "traffic", "STUDENT003", "quiz", nil, nil)
		}()
	}
	wg.Wait()

	session, _ := f.service.Progress(ctx, "traffic", "STUDENT003")
	if session.StarsEarned != 15 {
		t.Fatalf("expected 15 stars after concurrent completions, got %d", session.StarsEarned)
	}
	if len(session.Answers) != 16 {
		t.Fatalf("expected 16 answers, got %d", len(session.Answers))
	}
}

func TestCompleteSectionErrors(t *testing.T) {
	ctx := context.Background()
	f := newActivityFixture(app.WithMaxAnswers(1))

	if _, err := f.service.CompleteSection(ctx, "volcano", "u", "video", nil, nil); !errors.Is(err, domain.ErrActivityNotFound) {
		t.Fatalf("expected activity not found, got %v", err)
	}
	if _, err := f.service.CompleteSection(ctx, "robot", "u", "warp", nil, nil); !errors.Is(err, domain.ErrUnknownSection) {
		t.Fatalf("expected unknown section, got %v", err)
	}
	if _, err := f.service.CompleteSection(ctx, "robot", "", "video", nil, nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := f.service.CompleteSection(ctx, "robot", "u", "video", nil, nil); err != nil {
		t.Fatalf("first completion: %v", err)
	}
	res, err := f.service.CompleteSection(ctx, "robot", "u", "quiz", nil, nil)
	if err != nil {
		t.Fatalf("completion with a full answer log: %v", err)
	}
	if !res.First || res.Session.StarsEarned != 20 || len(res.Session.Answers) != 1 {
		t.Fatalf("expected quiz latched with the log left at 1, got first=%v stars=%d answers=%d",
			res.First, res.Session.StarsEarned, len(res.Session.Answers))
	}
	if _, err := f.service.RecordEmbedResult(ctx, "robot", "u", domain.EmbeddedGameResult{Completed: true}); !errors.Is(err, domain.ErrAnswerLimit) {
		t.Fatalf("expected answer limit for embed results, got %v", err)
	}
}

func TestRecordActionStoresAndPublishes(t *testing.T) {
	ctx := context.Background()
	f := newActivityFixture()
	f.publisher.err = errors.New("broker down")

	rec, err := f.service.RecordAction(ctx, domain.ActionRecord{
		ActivityID: "robot",
		UserID:     "STUDENT001",
		Action:     "ARM_MOVED",
		Section:    "activity",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if rec.ID == "" || !rec.ReceivedAt.Equal(fixedNow) {
		t.Fatalf("expected id and timestamp, got %+v", rec)
	}
	if got := f.actions.Actions("robot", "STUDENT001"); len(got) != 1 {
		t.Fatalf("expected stored action, got %d", len(got))
	}
	if len(f.publisher.records) != 1 {
		t.Fatalf("expected publish attempt")
	}

	if _, err := f.service.RecordAction(ctx, domain.ActionRecord{ActivityID: "robot", UserID: "u"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestRecordEmbedResult(t *testing.T) {
	ctx := context.Background()
	f := newActivityFixture()
	score, total := 4, 5

	for i := 0; i < 2; i++ {
		if _, err := f.service.RecordEmbedResult(ctx, "circuit", "STUDENT001", domain.EmbeddedGameResult{
			Nonce: "n1", Title: "Wordwall", Completed: true, Score: &score, Total: &total,
		}); err != nil {
			t.Fatalf("record embed: %v", err)
		}
	}

	results, err := f.service.EmbedResults(ctx, "circuit", "STUDENT001")
	if err != nil {
		t.Fatalf("embed results: %v", err)
	}
	if len(results) != 2 || *results[0].Score != 4 {
		t.Fatalf("expected both results kept, got %+v", results)
	}
	actions := f.actions.Actions("circuit", "STUDENT001")
	if len(actions) != 2 || actions[0].Action != app.ActionEmbeddedGameComplete || actions[0].Section != "intro" {
		t.Fatalf("unexpected embed actions %+v", actions)
	}
}

func TestCreateActivity(t *testing.T) {
	ctx := context.Background()
	f := newActivityFixture()

	if _, err := f.service.CreateActivity(ctx, domain.RoleStudent, "STUDENT001", domain.Activity{ID: "solar", Title: "Solar"}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	dup := []domain.Section{{ID: "a"}, {ID: "a"}}
	if _, err := f.service.CreateActivity(ctx, domain.RoleTeacher, "TEACHER001", domain.Activity{ID: "solar", Title: "Solar", Sections: dup}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	for _, id := range []string{"action", "progress", "embeds"} {
		sections := []domain.Section{{ID: "intro"}, {ID: id, Reward: 5}}
		if _, err := f.service.CreateActivity(ctx, domain.RoleTeacher, "TEACHER001", domain.Activity{ID: "solar", Title: "Solar", Sections: sections}); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("expected section %q to be rejected, got %v", id, err)
		}
	}
	created, err := f.service.CreateActivity(ctx, domain.RoleTeacher, "TEACHER001", domain.Activity{ID: "solar", Title: "Solar"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(created.Sections) != 4 || created.CreatedBy != "TEACHER001" {
		t.Fatalf("unexpected activity %+v", created)
	}
	if _, err := f.service.CreateActivity(ctx, domain.RoleTeacher, "TEACHER001", created); !errors.Is(err, domain.ErrActivityExists) {
		t.Fatalf("expected exists, got %v", err)
	}

	list, _ := f.service.ListActivities(ctx)
	if len(list) != 5 {
		t.Fatalf("expected 5 activities, got %d", len(list))
	}
}
