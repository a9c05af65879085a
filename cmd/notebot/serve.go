package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ahsanfayaz52/notebot/internal/bot"
	"github.com/ahsanfayaz52/notebot/internal/db"
	"github.com/ahsanfayaz52/notebot/internal/dispatch"
	"github.com/ahsanfayaz52/notebot/internal/handlers"
	"github.com/ahsanfayaz52/notebot/internal/store"
	"github.com/ahsanfayaz52/notebot/internal/telegram"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the poll loop",
	Long: `Polls Telegram for new messages, executes the commands they carry and
sends the replies. When STATUS_ADDR is set, /healthz and /status are served
on that address.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.CreateTables(ctx, conn, cfg.DBDriver); err != nil {
		return err
	}
	st := store.New(conn)

	client, err := telegram.NewClient(telegram.Config{
		Token:       cfg.BotToken,
		BaseURL:     cfg.APIURL,
		PollTimeout: cfg.PollTimeout,
		Logger:      logger.Named("telegram"),
	})
	if err != nil {
		return err
	}

	b := bot.New(client, dispatch.New(st, logger.Named("dispatch")), cfg.PollInterval, logger.Named("bot"))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.Run(ctx)
	})

	if cfg.StatusAddr != "" {
		srv := &http.Server{
			Addr:              cfg.StatusAddr,
			Handler:           handlers.NewRouter(st, b, logger.Named("http")),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("status server listening", zap.String("addr", cfg.StatusAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}
