package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/guided-traffic/httpmessage/internal/config"
	"github.com/guided-traffic/httpmessage/internal/monitoring"
	"github.com/guided-traffic/httpmessage/internal/replay"
	"github.com/guided-traffic/httpmessage/internal/server"
	"github.com/guided-traffic/httpmessage/internal/server/handlers/health"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Build information injected at build time
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"

	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "httpmsg",
		Short: "httpmsg consumes HTTP message bodies incrementally",
		Long: `httpmsg exercises an incremental HTTP body consumption layer.

The serve command starts a demo server that collects bodies, decodes
urlencoded forms, splits text bodies into lines and parses cookies, with
the configured size limits. The replay command runs the same consumers
against a captured raw HTTP/1.1 request, re-cut into chunks of a chosen
size, which makes chunk boundary behaviour reproducible.

Configuration is read from YAML (--config, or .httpmsg.yaml in the home
or working directory) and HTTPMSG_* environment variables.`,
		SilenceUsage: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the demo server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	replayCmd = &cobra.Command{
		Use:   "replay <capture-file | ->",
		Short: "Run a body consumer against a captured HTTP request",
		Args:  cobra.ExactArgs(1),
		RunE:  runReplay,
	}

	replayMode       string
	replayStall      bool
	replayWireChunks bool
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to configuration file (YAML format)")

	serveCmd.Flags().String("bind", "", "address to listen on (overrides bind_address)")
	_ = viper.BindPFlag("bind_address", serveCmd.Flags().Lookup("bind"))

	replayCmd.Flags().StringVar(&replayMode, "mode", string(replay.ModeBody), "consumer to run: body, form, lines, cookies or negotiate")
	replayCmd.Flags().BoolVar(&replayStall, "stall", false, "report not-ready before every chunk")
	replayCmd.Flags().BoolVar(&replayWireChunks, "wire-chunks", false, "keep the chunk boundaries of a chunked capture")
	replayCmd.Flags().Int("chunk-size", 0, "chunk size used to re-cut the body (overrides limits.chunk_size)")
	_ = viper.BindPFlag("limits.chunk_size", replayCmd.Flags().Lookup("chunk-size"))

	rootCmd.AddCommand(serveCmd, replayCmd)
}

func initConfig() {
	config.InitConfig(cfgFile)
}

// setupLogging applies the configured log level and format
func setupLogging(cfg *config.Config) error {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logrus.SetLevel(level)

	if cfg.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := setupLogging(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"version":   version,
		"commit":    commit,
		"buildTime": buildTime,
	}).Info("httpmsg build information")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	build := health.BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	}

	if cfg.Monitoring.Enabled {
		monitoringServer := monitoring.NewServer(&monitoring.Config{
			BindAddress: cfg.Monitoring.BindAddress,
			MetricsPath: cfg.Monitoring.MetricsPath,
			Build:       build,
		})
		go func() {
			if err := monitoringServer.Start(ctx); err != nil {
				logrus.WithError(err).Error("Monitoring server failed")
			}
		}()
	}

	srv := server.NewServer(cfg, build)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	mode, err := replay.ParseMode(replayMode)
	if err != nil {
		return err
	}

	var in io.Reader = os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open capture: %w", err)
		}
		defer f.Close()
		in = f
	}

	res, err := replay.Run(in, replay.Options{
		Mode:       mode,
		Limits:     cfg.Limits,
		Stall:      replayStall,
		WireChunks: replayWireChunks,
		Logger:     logrus.WithField("component", "replay"),
	})
	if err != nil {
		return err
	}

	return replay.Write(cmd.OutOrStdout(), res)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
