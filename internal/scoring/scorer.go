// Package scoring marks quiz answers against expected answers.
package scoring

import (
	"strings"

	"sparklab/internal/domain"
)

// Normalizer maps an answer to the form used for comparison.
type Normalizer func(string) string

// Exact compares answers byte for byte.
func Exact(s string) string { return s }

// Fold ignores surrounding whitespace and case.
func Fold(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// NormalizerFor returns the normalizer a quiz asks for. Unknown modes fall back to Exact.
func NormalizerFor(m domain.Matching) Normalizer {
	if m == domain.MatchFold {
		return Fold
	}
	return Exact
}

// Result is the outcome of scoring one attempt.
type Result struct {
	Marks      []int `json:"marks"`
	Total      int   `json:"totalMarks"`
	Unanswered []int `json:"unanswered"`
}

// Score marks answers positionally against questions. Missing or blank answers score 0
// and are listed in Unanswered; answers beyond the last question are ignored.
func Score(questions []domain.Question, answers []string, normalize Normalizer) Result {
	if normalize == nil {
		normalize = Exact
	}
	res := Result{
		Marks:      make([]int, len(questions)),
		Unanswered: []int{},
	}
	for i, q := range questions {
		var answer string
		if i < len(answers) {
			answer = answers[i]
		}
		if strings.TrimSpace(answer) == "" {
			res.Unanswered = append(res.Unanswered, i)
			continue
		}
		if normalize(answer) == normalize(q.CorrectAnswer) {
			res.Marks[i] = 1
			res.Total++
		}
	}
	return res
}

// ScoreQuiz scores answers with the quiz's own matching mode.
func ScoreQuiz(quiz domain.Quiz, answers []string) Result {
	return Score(quiz.Questions, answers, NormalizerFor(quiz.Matching))
}

// CheckAnswer reports whether a single puzzle answer matches exactly.
func CheckAnswer(answer, expected string) bool {
	return answer != "" && answer == expected
}

// Percentage returns total/count as a percentage, 0 for an empty quiz.
func Percentage(total, count int) float64 {
	if count <= 0 {
		return 0
	}
	return float64(total) / float64(count) * 100
}

// Encouragement returns the result-screen message for a score.
func Encouragement(total, count int) string {
	p := Percentage(total, count)
	switch {
	case count > 0 && p == 100:
		return "Perfect! You're an expert!"
	case p >= 80:
		return "Excellent work! Almost perfect!"
	case p >= 60:
		return "Good job! Keep learning!"
	case p >= 40:
		return "Nice try! Practice makes perfect!"
	default:
		return "Don't worry! Learning is fun! Try again!"
	}
}
