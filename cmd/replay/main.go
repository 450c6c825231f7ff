package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rsi-engine/config"
	"rsi-engine/internal/logger"
	"rsi-engine/internal/replay"
	"rsi-engine/internal/transport"

	"github.com/spf13/cobra"
)

var (
	csvFile  string
	delay    time.Duration
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "replay",
	Short: "Stream historical trades from CSV onto the trade topic",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if logLevel == "" {
			logLevel = cfg.LogLevel
		}
		slogger := logger.Init("replay", logger.ParseLevel(logLevel))

		f, err := os.Open(csvFile)
		if err != nil {
			return err
		}
		defer f.Close()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigCh
			cancel()
		}()

		sink, err := transport.OpenSink(ctx, transport.Options{
			Kind:        cfg.Transport,
			Brokers:     cfg.Brokers,
			Password:    cfg.RedisPassword,
			SendTimeout: cfg.SendTimeout,
		})
		if err != nil {
			return fmt.Errorf("connect %s: %w", cfg.Transport, err)
		}
		defer sink.Close()

		sent, err := replay.Run(ctx, f, sink, replay.Options{
			Topic: cfg.TradeTopic,
			Delay: delay,
			Log:   slogger,
		})
		fmt.Fprintf(cmd.OutOrStdout(), "sent %d trades to %s\n", sent, cfg.TradeTopic)
		return err
	},
}

func init() {
	rootCmd.Flags().StringVar(&csvFile, "file", "trades_data.csv", "CSV file with trade rows")
	rootCmd.Flags().DurationVar(&delay, "delay", 100*time.Millisecond, "Pause between sends")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
