package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/rallypoint/internal/logger"
	"github.com/spigell/rallypoint/internal/store"
	"github.com/spigell/rallypoint/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web application",
	PreRun: func(cmd *cobra.Command, _ []string) {
		viper.BindPFlag("server.listen", cmd.Flags().Lookup("listen"))
		viper.BindPFlag("database.path", cmd.Flags().Lookup("db"))
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "address to listen on (default :8000)")
	serveCmd.Flags().String("db", "", "path to the sqlite database (default rallypoint.db)")
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	config, err := getConfig(viper.GetViper())
	if err != nil {
		log.Error("getting a config", zap.Error(err))
		return err
	}

	log.Info("starting rallypoint", zap.String("version", version))
	log.Debug("starting with config",
		zap.String("listen", config.Server.Listen),
		zap.String("database", config.Database.Path),
		zap.Bool("ai_enabled", config.AI.Enabled),
		zap.String(logger.FieldModel, config.AI.Gemini.Model),
	)

	db, err := store.Open(ctx, config.Database.Path, logger.Component(log, "store"))
	if err != nil {
		log.Error("opening the database", zap.Error(err), zap.String("path", config.Database.Path))
		return err
	}
	defer db.Close()

	engine, err := newEngine(ctx, config.AI, log)
	if err != nil {
		log.Error("creating the recommendation engine", zap.Error(err))
		return err
	}

	gin.SetMode(ginMode(viper.GetBool("debug")))

	srv, err := web.New(web.Config{
		Listen:            config.Server.Listen,
		ReadTimeout:       config.Server.ReadTimeout,
		WriteTimeout:      config.Server.WriteTimeout,
		ShutdownTimeout:   config.Server.ShutdownTimeout,
		EnrichConcurrency: config.Server.EnrichConcurrency,
	}, db, engine, logger.Component(log, "http"))
	if err != nil {
		log.Error("creating the web server", zap.Error(err))
		return err
	}

	if err := srv.Run(ctx); err != nil {
		log.Error("web server stopped", zap.Error(err))
		return err
	}

	log.Info("exiting", zap.String("reason", "shutdown completed"))
	return nil
}

// ginMode keeps gin's route dump and debug warnings off stdout unless
// --debug is set.
func ginMode(debug bool) string {
	if debug {
		return gin.DebugMode
	}
	return gin.ReleaseMode
}
