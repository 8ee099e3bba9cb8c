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

	cli "github.com/jawher/mow.cli"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"webcam-session/internal/infrastructure/logger"
	"webcam-session/internal/receiver"
)

const (
	appName = "webcam-receiver"
	appDesc = "прием видеопотока веб-камеры и запись в файлы"

	shutdownTimeout = 5 * time.Second
)

func main() {
	app := cli.App(appName, appDesc)

	port := app.Int(cli.IntOpt{
		Name:   "port",
		Desc:   "порт для запуска сервера",
		EnvVar: "RECEIVER_PORT",
		Value:  8080,
	})

	outputDir := app.String(cli.StringOpt{
		Name:   "output",
		Desc:   "директория для сохранения записей",
		EnvVar: "RECEIVER_OUTPUT",
		Value:  "recordings",
	})

	debug := app.Bool(cli.BoolOpt{
		Name:   "debug",
		Desc:   "включить отладочные сообщения",
		EnvVar: "RECEIVER_DEBUG",
	})

	app.Action = func() {
		appLogger := logger.NewLogrusLogger(*debug)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		addr := fmt.Sprintf(":%d", *port)
		handler := receiver.NewHandler(*outputDir, appLogger)
		server := &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		group, ctx := errgroup.WithContext(ctx)

		group.Go(func() error {
			appLogger.Info("Запуск сервера на порту %d...", *port)
			appLogger.Info("Статус сервера доступен по адресу http://localhost%s", addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("сервер остановлен с ошибкой: %w", err)
			}
			return nil
		})

		group.Go(func() error {
			<-ctx.Done()
			appLogger.Info("Остановка сервера...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return err
			}
			// Shutdown не ждет WebSocket соединений, закрываем их и дописываем файлы
			return handler.Shutdown(shutdownCtx)
		})

		if err := group.Wait(); err != nil {
			log.WithError(err).Fatal("receiver stopped")
		}
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("failed to execute application")
	}
}
