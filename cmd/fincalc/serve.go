package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cloud-ru/sky-financial-go/internal/cache"
	"github.com/cloud-ru/sky-financial-go/internal/chat"
	"github.com/cloud-ru/sky-financial-go/internal/server"
	"github.com/cloud-ru/sky-financial-go/internal/tools"
	"github.com/cloud-ru/sky-financial-go/internal/tracing"
)

func newServeCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP API калькуляторов и чата",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cmd.Flags().Changed("port") {
				a.cfg.Port = port
			}
			return a.serve(ctx)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "порт HTTP сервера (переопределяет PORT)")

	return cmd
}

func (a *app) serve(ctx context.Context) error {
	tracer, shutdown, err := tracing.InitTracing(ctx, a.cfg.OTELServiceName, a.cfg.OTELEndpoint, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			a.logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	resultCache, err := cache.New(a.cfg.Cache)
	if err != nil {
		return err
	}
	if closer, ok := resultCache.(io.Closer); ok {
		defer closer.Close()
	}

	handlers := tools.Registry(tools.Deps{
		Config: a.cfg,
		Tracer: tracer,
		Cache:  resultCache,
		Logger: a.logger,
	})
	if a.cfg.Chat.APIKey == "" {
		a.logger.Warn("API key is not set, chat will answer with the fallback reply")
	}
	chatClient := chat.NewClient(a.cfg.Chat, a.logger)

	a.logger.Info("Starting sky-financial API",
		zap.Int("port", a.cfg.Port),
		zap.String("cache", a.cfg.Cache.Backend),
		zap.Int("tools", len(handlers)),
	)
	return server.New(handlers, chatClient, a.cfg.Chat.SessionTTL, a.logger).Run(ctx, fmt.Sprintf(":%d", a.cfg.Port))
}

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Диалог с финансовым ассистентом в терминале",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			session := chat.NewClient(a.cfg.Chat, a.logger).NewSession()
			return runChat(ctx, session, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// runChat читает вопросы построчно и печатает ответ по мере поступления
func runChat(ctx context.Context, session *chat.Session, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, chat.WelcomeText)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "exit" || text == "quit" {
			return nil
		}

		for chunk, err := range session.Send(ctx, text) {
			if err != nil {
				return err
			}
			fmt.Fprint(out, chunk)
		}
		fmt.Fprintln(out)
	}
}
