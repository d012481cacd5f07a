package scoring

import (
	"testing"

	"sparklab/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestScoreReadWritePartialAnswers(t *testing.T) {
	quiz := domain.BuiltinQuizzes()["READANDWRITE"]
	answers := []string{
		quiz.Questions[0].CorrectAnswer,
		"",
		quiz.Questions[2].CorrectAnswer,
		"",
		quiz.Questions[4].CorrectAnswer,
	}

	res := ScoreQuiz(quiz, answers)

	require.Equal(t, 3, res.Total)
	require.Equal(t, []int{1, 0, 1, 0, 1}, res.Marks)
	require.Equal(t, []int{1, 3}, res.Unanswered)
}

func TestScoreFoldIgnoresCaseAndSpace(t *testing.T) {
	questions := []domain.Question{{CorrectAnswer: "Light bulb"}, {CorrectAnswer: "Voltage"}}

	res := Score(questions, []string{"  light BULB ", "voltage"}, Fold)
	require.Equal(t, 2, res.Total)

	res = Score(questions, []string{"  light BULB ", "voltage"}, Exact)
	require.Equal(t, 0, res.Total)
}

func TestScoreTotalMatchesCountOfMatches(t *testing.T) {
	quiz := domain.BuiltinQuizzes()["DRAGANDDROP"]
	answers := []string{"Circuit", "Switch", "Resists the flow of current", "circle with a cross", "Series circuit"}

	res := ScoreQuiz(quiz, answers)

	want := 0
	for i, q := range quiz.Questions {
		if answers[i] == q.CorrectAnswer {
			want++
		}
	}
	require.Equal(t, want, res.Total)
	require.Equal(t, 3, res.Total)
}

func TestScoreShortAndLongAnswerLists(t *testing.T) {
	questions := []domain.Question{{CorrectAnswer: "a"}, {CorrectAnswer: "b"}}

	res := Score(questions, nil, nil)
	require.Equal(t, 0, res.Total)
	require.Equal(t, []int{0, 1}, res.Unanswered)

	res = Score(questions, []string{"a", "b", "c"}, Exact)
	require.Equal(t, 2, res.Total)
	require.Len(t, res.Marks, 2)
}

func TestCheckAnswer(t *testing.T) {
	require.True(t, CheckAnswer("switch", "switch"))
	require.False(t, CheckAnswer("battery", "switch"))
	require.False(t, CheckAnswer("", ""))
}

func TestEncouragementTiers(t *testing.T) {
	require.Equal(t, "Perfect! You're an expert!", Encouragement(5, 5))
	require.Equal(t, "Excellent work! Almost perfect!", Encouragement(4, 5))
	require.Equal(t, "Good job! Keep learning!", Encouragement(3, 5))
	require.Equal(t, "Nice try! Practice makes perfect!", Encouragement(2, 5))
	require.Equal(t, "Don't worry! Learning is fun! Try again!", Encouragement(0, 5))
	require.Equal(t, 0.0, Percentage(3, 0))
}
