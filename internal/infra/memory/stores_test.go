package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"sparklab/internal/domain"
)

func TestProgressStoreRoundTripIsolated(t *testing.T) {
	store := NewProgressStore()
	ctx := context.Background()

	if _, err := store.LoadProgress(ctx, "circuit", "STUDENT001"); !errors.Is(err, domain.ErrProgressNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	session := domain.ActivitySession{
		ActivityID:        "circuit",
		UserID:            "STUDENT001",
		CurrentSection:    "circuit",
		SectionCompletion: map[string]domain.Completion{"intro": {State: domain.Completed}},
		StarsEarned:       3,
	}
	if err := store.SaveProgress(ctx, session); err != nil {
		t.Fatalf("save: %v", err)
	}
	session.SectionCompletion["circuit"] = domain.Completion{State: domain.Completed}

	got, err := store.LoadProgress(ctx, "circuit", "STUDENT001")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.StarsEarned != 3 || got.CurrentSection != "circuit" {
		t.Fatalf("unexpected session %+v", got)
	}
	if got.IsCompleted("circuit") {
		t.Fatalf("store leaked caller mutation")
	}
}

func TestActivityStoreSeedAndCreate(t *testing.T) {
	store := NewActivityStore(domain.BuiltinActivities()...)
	ctx := context.Background()

	list, _ := store.ListActivities(ctx)
	if len(list) != 4 || list[0].ID != "circuit" {
		t.Fatalf("unexpected seed %+v", list)
	}
	if err := store.CreateActivity(ctx, domain.Activity{ID: "circuit"}); !errors.Is(err, domain.ErrActivityExists) {
		t.Fatalf("expected exists, got %v", err)
	}
	if err := store.CreateActivity(ctx, domain.Activity{ID: "solar", Title: "Solar"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.GetActivity(ctx, "solar"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := store.GetActivity(ctx, "nope"); !errors.Is(err, domain.ErrActivityNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestActionStoreCapsPerPair(t *testing.T) {
	store := NewActionStore(2)
	for _, action := range []string{"A", "B", "C"} {
		_ = store.AppendAction(context.Background(), domain.ActionRecord{ActivityID: "motor", UserID: "u", Action: action})
	}
	got := store.Actions("motor", "u")
	if len(got) != 2 || got[0].Action != "B" || got[1].Action != "C" {
		t.Fatalf("unexpected actions %+v", got)
	}
}

func TestResultStoreSearchNewestFirst(t *testing.T) {
	store := NewResultStore()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	_ = store.SaveResult(ctx, domain.QuizResult{QuizName: "VISUAL", Username: "ana", UserID: "STUDENT001", Date: base})
	_ = store.SaveResult(ctx, domain.QuizResult{QuizName: "AUDITORY", Username: "ben", UserID: "STUDENT002", Email: "ben@school.test", Date: base.Add(time.Hour)})
	_ = store.SaveResult(ctx, domain.QuizResult{QuizName: "VISUAL", Username: "cy", UserID: "STUDENT003", Date: base.Add(2 * time.Hour)})

	all, _ := store.ListResults(ctx, "")
	if len(all) != 3 || all[0].Username != "cy" {
		t.Fatalf("expected newest first, got %+v", all)
	}

	visual, _ := store.ListResults(ctx, "visual")
	if len(visual) != 2 {
		t.Fatalf("expected 2 visual results, got %d", len(visual))
	}

	byEmail, _ := store.ListResults(ctx, "SCHOOL.TEST")
	if len(byEmail) != 1 || byEmail[0].Username != "ben" {
		t.Fatalf("unexpected email match %+v", byEmail)
	}
}

func TestUserStoreDuplicates(t *testing.T) {
	store := NewUserStore()
	ctx := context.Background()
	if err := store.CreateUser(ctx, domain.User{UserID: "STUDENT001", Email: "a@x.test", Role: domain.RoleStudent}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.CreateUser(ctx, domain.User{UserID: "STUDENT001", Email: "b@x.test"}); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected duplicate id, got %v", err)
	}
	if err := store.CreateUser(ctx, domain.User{UserID: "STUDENT002", Email: "A@X.test"}); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected duplicate email, got %v", err)
	}
	_ = store.CreateUser(ctx, domain.User{UserID: "TEACHER001", Email: "t@x.test", Role: domain.RoleTeacher})

	students, _ := store.ListUsersByRole(ctx, domain.RoleStudent)
	if len(students) != 1 || students[0].UserID != "STUDENT001" {
		t.Fatalf("unexpected students %+v", students)
	}
	if _, err := store.UserByUserID(ctx, "STUDENT999"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
