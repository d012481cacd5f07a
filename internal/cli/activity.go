package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"sparklab/internal/config"
	"sparklab/internal/domain"
	"sparklab/internal/logger"
	"sparklab/internal/progress"
	"sparklab/internal/telemetry"
)

func NewActivityCmd(configPath *string) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Browse activities and record progress",
	}
	cmd.PersistentFlags().StringVar(&user, "user", "", "user ID (defaults to the signed-in user)")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List activities",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := loadClient(*configPath)
			if err != nil {
				return err
			}
			list, err := deps.api.Activities(cmd.Context())
			if err != nil {
				return friendly(err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tDIFFICULTY\tSECTIONS")
			for _, a := range list {
				fmt.Fprintf(tw, "%s\t%s %s\t%s\t%d\n", a.ID, a.Emoji, a.Title, a.Difficulty, len(a.Sections))
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show ID",
		Short: "Show your progress through an activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := loadClient(*configPath)
			if err != nil {
				return err
			}
			userID, err := deps.userID(user)
			if err != nil {
				return err
			}
			tracker, err := loadTracker(cmd.Context(), deps, args[0], userID)
			if err != nil {
				return err
			}
			printProgress(cmd, tracker)
			return nil
		},
	})

	var data string
	complete := &cobra.Command{
		Use:   "complete ID SECTION",
		Short: "Complete a section",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := loadClient(*configPath)
			if err != nil {
				return err
			}
			userID, err := deps.userID(user)
			if err != nil {
				return err
			}
			var payload any
			if data != "" {
				if !json.Valid([]byte(data)) {
					return fmt.Errorf("--data must be valid JSON")
				}
				payload = json.RawMessage(data)
			}
			res, err := deps.api.CompleteSection(cmd.Context(), args[0], args[1], userID, payload)
			if err != nil {
				return friendly(err)
			}
			w := cmd.OutOrStdout()
			if res.First {
				fmt.Fprintf(w, "Section %s complete! +%d stars", res.Section, res.StarsAwarded)
				if res.ScoreAwarded > 0 {
					fmt.Fprintf(w, ", +%d points", res.ScoreAwarded)
				}
				fmt.Fprintln(w)
			} else {
				fmt.Fprintf(w, "Section %s was already complete.\n", res.Section)
			}
			if res.IsCorrect != nil && !*res.IsCorrect {
				fmt.Fprintln(w, "That answer was not quite right. Try again!")
			}
			fmt.Fprintf(w, "Total: %d stars, %d points\n", res.Session.StarsEarned, res.Session.FinalScore)
			return nil
		},
	}
	complete.Flags().StringVar(&data, "data", "", "JSON payload, e.g. '{\"userAnswer\":\"switch\"}'")
	cmd.AddCommand(complete)

	cmd.AddCommand(&cobra.Command{
		Use:   "goto ID SECTION",
		Short: "Move to another section",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := loadClient(*configPath)
			if err != nil {
				return err
			}
			userID, err := deps.userID(user)
			if err != nil {
				return err
			}
			session, err := deps.api.Advance(cmd.Context(), args[0], userID, args[1])
			if err != nil {
				return friendly(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Now at section %s.\n", session.CurrentSection)
			return nil
		},
	})

	var logData string
	logCmd := &cobra.Command{
		Use:   "log ID ACTION...",
		Short: "Report user actions for the current section",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := loadClient(*configPath)
			if err != nil {
				return err
			}
			userID, err := deps.userID(user)
			if err != nil {
				return err
			}
			tracker, err := loadTracker(cmd.Context(), deps, args[0], userID)
			if err != nil {
				return err
			}
			var payload any
			if logData != "" {
				if !json.Valid([]byte(logData)) {
					return fmt.Errorf("--data must be valid JSON")
				}
				payload = json.RawMessage(logData)
			}

			log, err := logger.New(deps.cfg.Log.Mode)
			if err != nil {
				return err
			}
			defer log.Sync()
			tcfg := deps.cfg.Telemetry
			actions := telemetry.NewActionLogger(deps.api, args[0], userID, tracker, telemetry.Config{
				QueueSize:       tcfg.QueueSize,
				MaxRetries:      tcfg.MaxRetries,
				InitialInterval: config.TTLDuration(tcfg.InitialInterval, 0),
				MaxElapsed:      config.TTLDuration(tcfg.MaxElapsed, 0),
				DeviceInfo:      domain.DeviceInfo{UserAgent: "sparklab-cli", Platform: runtime.GOOS},
			}, log)
			for _, action := range args[1:] {
				actions.Log(action, payload)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := actions.Close(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "delivered %d, failed %d, dropped %d\n",
				actions.Delivered(), actions.Failed(), actions.Dropped())
			return nil
		},
	}
	logCmd.Flags().StringVar(&logData, "data", "", "JSON payload attached to each action")
	cmd.AddCommand(logCmd)

	return cmd
}

// loadTracker mirrors the server-side session locally so section lookups work offline.
func loadTracker(ctx context.Context, deps clientDeps, activityID, userID string) (*progress.Tracker, error) {
	activity, err := deps.api.Activity(ctx, activityID)
	if err != nil {
		return nil, friendly(err)
	}
	session, err := deps.api.Progress(ctx, activityID, userID)
	if err != nil {
		return nil, friendly(err)
	}
	return progress.Restore(activity, session), nil
}

func printProgress(cmd *cobra.Command, tracker *progress.Tracker) {
	session := tracker.Snapshot()
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Activity %s for %s: %d stars, %d points\n", session.ActivityID, session.UserID, session.StarsEarned, session.FinalScore)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, sec := range tracker.Activity().Sections {
		mark := " "
		if session.IsCompleted(sec.ID) {
			mark = "x"
		}
		cursor := ""
		if sec.ID == session.CurrentSection {
			cursor = "<- you are here"
		}
		fmt.Fprintf(tw, "[%s]\t%s\t%s\t%d stars\t%s\n", mark, sec.ID, sec.Title, sec.Reward, cursor)
	}
	_ = tw.Flush()
}
