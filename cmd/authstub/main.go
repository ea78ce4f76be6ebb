// Command authstub serves the fintrack auth API from memory for local
// development. Emailed codes are written to the log instead of being sent.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrymomot/fintrack/modules/authstub"
	"github.com/dmitrymomot/fintrack/pkg/config"
	"github.com/dmitrymomot/fintrack/pkg/environment"
	"github.com/dmitrymomot/fintrack/pkg/httpserver"
	"github.com/dmitrymomot/fintrack/pkg/logger"
	"github.com/dmitrymomot/fintrack/pkg/requestid"
	"github.com/dmitrymomot/fintrack/pkg/sanitizer"
)

type appConfig struct {
	AppEnv    string `env:"APP_ENV" envDefault:"development"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`

	HTTP httpserver.Config
	Stub authstub.Config
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(
		logger.WithEnvironment(environment.Parse(cfg.AppEnv), "authstub"),
		logger.WithFormat(logger.Format(cfg.LogFormat)),
		logger.WithLevelName(cfg.LogLevel),
		logger.WithContextExtractors(requestid.LogExtractor),
	)
	logger.SetAsDefault(log)

	stub := authstub.NewFromConfig(cfg.Stub,
		authstub.WithLogger(log),
		authstub.WithCodeHook(func(kind authstub.CodeKind, email, code string) {
			log.Info("code issued",
				slog.String("kind", string(kind)),
				slog.String("email", sanitizer.MaskEmail(email)),
				slog.String("code", code),
			)
		}),
	)

	srv := httpserver.NewFromConfig(cfg.HTTP,
		httpserver.WithLogger(log),
		httpserver.WithStartHook(func(addr string) {
			log.Info("auth stub listening", slog.String("addr", addr),
				slog.Bool("require_verification", cfg.Stub.RequireVerification))
		}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := srv.Run(ctx, stub.Router())
	stop()

	if err != nil {
		log.Error("server stopped", logger.Error(err))
		os.Exit(1)
	}
}
