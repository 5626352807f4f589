package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cloud-ru/sky-financial-go/internal/calculations"
	"github.com/cloud-ru/sky-financial-go/internal/config"
	"github.com/cloud-ru/sky-financial-go/internal/logging"
)

// app хранит состояние, общее для всех подкоманд
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	logLevel string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "fincalc",
		Short:         "Финансовые калькуляторы SIP, LUMPSUM, EMI, PPF и сравнение налоговых режимов",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "уровень логирования (переопределяет LOG_LEVEL)")

	for _, kind := range calculations.Kinds() {
		root.AddCommand(newCalcCmd(a, kind))
	}
	root.AddCommand(newServeCmd(a), newChatCmd(a))

	return root
}

func (a *app) init() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.LogLevel
	if a.logLevel != "" {
		level = a.logLevel
	}
	logger, err := logging.New(level, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}
