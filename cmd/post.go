package cmd

import (
	"context"
	"errors"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/rallypoint/internal/logger"
	"github.com/spigell/rallypoint/internal/store"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var errAborted = errors.New("posting aborted")

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Create a job posting from the terminal",
	PreRun: func(cmd *cobra.Command, _ []string) {
		viper.BindPFlag("database.path", cmd.Flags().Lookup("db"))
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return post(cmd)
	},
}

func init() {
	rootCmd.AddCommand(postCmd)

	postCmd.Flags().StringP("title", "t", "", "posting title, prompted for when empty")
	postCmd.Flags().String("description", "", "posting description, prompted for when empty")
	postCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation before saving")
	postCmd.Flags().String("db", "", "path to the sqlite database (default rallypoint.db)")
}

func post(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	config, err := getConfig(viper.GetViper())
	if err != nil {
		return err
	}

	title, err := promptIfEmpty(cmd.Flag("title").Value.String(), "Title")
	if err != nil {
		return err
	}

	description, err := promptIfEmpty(cmd.Flag("description").Value.String(), "Description")
	if err != nil {
		return err
	}

	if cmd.Flag("yes").Value.String() == "false" {
		confirm := promptui.Select{
			Label: "Save posting \"" + title + "\"?",
			Items: []string{PromptYes, PromptNo},
		}

		_, answer, err := confirm.Run()
		if err != nil {
			return err
		}
		if answer != PromptYes {
			log.Info("exiting", zap.String("reason", "got no from prompt"))
			return errAborted
		}
	}

	db, err := store.Open(ctx, config.Database.Path, logger.Component(log, "store"))
	if err != nil {
		return err
	}
	defer db.Close()

	stored, err := db.AddPosting(ctx, store.Posting{Title: title, Description: description})
	if err != nil {
		return err
	}

	log.Info("posting created",
		zap.Int64("posting_id", stored.ID),
		zap.String("title", stored.Title),
	)

	return nil
}

func promptIfEmpty(value, label string) (string, error) {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value), nil
	}

	p := promptui.Prompt{
		Label:    label,
		Validate: requireText(label),
	}

	answer, err := p.Run()
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(answer), nil
}

func requireText(label string) promptui.ValidateFunc {
	return func(input string) error {
		if strings.TrimSpace(input) == "" {
			return errors.New(strings.ToLower(label) + " is required")
		}
		return nil
	}
}
