package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"sparklab/internal/app"
	"sparklab/internal/domain"
)

func NewQuizCmd(configPath *string) *cobra.Command {
	var answersFlag []string
	cmd := &cobra.Command{
		Use:   "quiz NAME",
		Short: "Take a quiz (READANDWRITE, VISUAL, AUDITORY, DRAGANDDROP)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := loadClient(*configPath)
			if err != nil {
				return err
			}
			user, ok := deps.session.CurrentUser()
			if !ok {
				return fmt.Errorf("please log in to take a quiz")
			}
			quiz, err := deps.api.Quiz(cmd.Context(), args[0])
			if err != nil {
				return friendly(err)
			}

			answers := answersFlag
			if len(answers) == 0 {
				answers, err = askQuestions(cmd.InOrStdin(), cmd.OutOrStdout(), quiz)
				if err != nil {
					return err
				}
			}

			out, err := deps.api.SubmitQuiz(cmd.Context(), quiz.Name, app.Submission{
				Taker: app.Taker{
					User:     user.ID,
					UserID:   user.UserID,
					Username: user.UserName,
					Email:    user.Email,
				},
				Answers: answers,
			})
			if err != nil {
				return friendly(err)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "\nYou scored %d / %d (%.0f%%)\n", out.TotalMarks, out.QuestionCount, out.Percentage)
			fmt.Fprintln(w, out.Encouragement)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&answersFlag, "answers", nil, "answers in question order, skipping the prompts")
	return cmd
}

// askQuestions reads one answer per question. A number picks an option; anything else is taken as typed.
func askQuestions(in io.Reader, out io.Writer, quiz domain.Quiz) ([]string, error) {
	scanner := bufio.NewScanner(in)
	answers := make([]string, len(quiz.Questions))
	fmt.Fprintf(out, "%s\n\n", quiz.Title)
	for i, q := range quiz.Questions {
		fmt.Fprintf(out, "%d. %s\n", i+1, q.Prompt)
		for j, opt := range q.Options {
			fmt.Fprintf(out, "   %d) %s\n", j+1, opt)
		}
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(q.Options) {
			line = q.Options[n-1]
		}
		answers[i] = line
	}
	return answers, scanner.Err()
}

func NewResultsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "results [SEARCH]",
		Short: "List saved quiz results, optionally filtered",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := loadClient(*configPath)
			if err != nil {
				return err
			}
			search := ""
			if len(args) == 1 {
				search = args[0]
			}
			results, err := deps.api.Results(cmd.Context(), search)
			if err != nil {
				return friendly(err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tQUIZ\tUSER\tNAME\tMARKS")
			for _, r := range results {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", r.Date.Format("2006-01-02 15:04"), r.QuizName, r.UserID, r.Username, r.TotalMarks)
			}
			return tw.Flush()
		},
	}
}
