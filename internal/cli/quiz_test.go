package cli

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"sparklab/internal/client"
	"sparklab/internal/domain"
)

func TestAskQuestionsMapsOptionNumbers(t *testing.T) {
	quiz := domain.Quiz{
		Title: "Sounds",
		Questions: []domain.Question{
			{Prompt: "What makes the buzzer beep?", Options: []string{"Light", "Electricity", "Water"}},
			{Prompt: "Name the part that stores energy", Options: []string{"Battery", "Wire"}},
			{Prompt: "Type the color of the ground wire"},
		},
	}
	in := strings.NewReader("2\n  Battery \n7\n")
	var out bytes.Buffer

	answers, err := askQuestions(in, &out, quiz)
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	want := []string{"Electricity", "Battery", "7"}
	for i := range want {
		if answers[i] != want[i] {
			t.Fatalf("answer %d: got %q want %q", i, answers[i], want[i])
		}
	}
	if !strings.Contains(out.String(), "2) Electricity") {
		t.Fatalf("options not printed: %s", out.String())
	}
}

func TestAskQuestionsStopsAtEOF(t *testing.T) {
	quiz := domain.Quiz{Questions: []domain.Question{{Prompt: "a"}, {Prompt: "b"}}}
	answers, err := askQuestions(strings.NewReader("only one\n"), &bytes.Buffer{}, quiz)
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if len(answers) != 2 || answers[0] != "only one" || answers[1] != "" {
		t.Fatalf("unexpected answers %q", answers)
	}
}

func TestFriendlyUnwrapsAPIErrors(t *testing.T) {
	err := fmt.Errorf("submit: %w", &client.APIError{Status: 404, Message: "quiz not found"})
	if got := friendly(err).Error(); got != "quiz not found" {
		t.Fatalf("got %q", got)
	}
	plain := fmt.Errorf("boom")
	if friendly(plain) != plain {
		t.Fatal("non-API errors should pass through")
	}
}
