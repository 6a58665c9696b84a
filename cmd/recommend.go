package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/rallypoint/internal/recommend"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend [description...]",
	Short: "Print a team recommendation for a job description as JSON",
	Long:  "Print a team recommendation for a job description as JSON. The description is read from stdin when no arguments are given.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRecommend(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), args)
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().Bool("heuristic", false, "skip the remote provider and use the keyword heuristic only")
	viper.BindPFlag("recommend.heuristic", recommendCmd.Flags().Lookup("heuristic"))
}

func runRecommend(ctx context.Context, in io.Reader, out io.Writer, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	description, err := readDescription(in, args)
	if err != nil {
		return err
	}

	config, err := getConfig(viper.GetViper())
	if err != nil {
		return err
	}

	if viper.GetBool("recommend.heuristic") {
		config.AI.Enabled = false
	}

	engine, err := newEngine(ctx, config.AI, log)
	if err != nil {
		log.Error("creating the recommendation engine", zap.Error(err))
		return err
	}

	return writeRecommendation(out, engine.Recommend(ctx, description))
}

func readDescription(in io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	if in == nil {
		in = os.Stdin
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("reading description from stdin: %w", err)
	}

	return strings.TrimSpace(string(data)), nil
}

func writeRecommendation(out io.Writer, rec *recommend.Recommendation) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("encoding recommendation: %w", err)
	}
	return nil
}
