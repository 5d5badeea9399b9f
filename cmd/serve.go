package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-recommender/internal/recommend"
	"github.com/spigell/job-recommender/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve recommendations over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("address", "a", "", "listen address (default "+server.DefaultAddress+")")
	viper.BindPFlag("server.address", serveCmd.Flags().Lookup("address"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := newEnvironment()
	defer env.Close()
	logger := env.logger

	logger.Info("starting the job-recommender server", zap.String("version", version))

	if err := env.config.Weights.Validate(); err != nil {
		logger.Fatal("checking weights", zap.Error(err))
	}

	geocoder, err := env.geocoder(ctx)
	if err != nil {
		logger.Fatal("creating geocoder", zap.Error(err))
	}

	explainer, err := env.explainer(ctx)
	if err != nil {
		logger.Fatal("creating ai explainer", zap.Error(err))
	}

	handler := server.NewHandler(server.Options{
		Ranker:    recommend.New(geocoder, recommend.WithLogger(logger)),
		Weights:   env.config.Weights,
		Filters:   env.filters(),
		Explainer: explainer,
		Logger:    logger,
	})

	if err := server.Run(ctx, env.config.Server.Address, server.NewRouter(handler, logger), logger); err != nil {
		logger.Error("server failed", zap.Error(err))
	}
}
