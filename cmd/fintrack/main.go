// Command fintrack signs in to a fintrack backend from the terminal and keeps
// the session for later runs.
//
//	fintrack login -email alice@example.com
//	fintrack whoami
//	fintrack enable-2fa
//	fintrack logout
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrymomot/fintrack/pkg/authapi"
	"github.com/dmitrymomot/fintrack/pkg/config"
	"github.com/dmitrymomot/fintrack/pkg/environment"
	"github.com/dmitrymomot/fintrack/pkg/logger"
	"github.com/dmitrymomot/fintrack/pkg/redis"
	"github.com/dmitrymomot/fintrack/pkg/requestid"
	"github.com/dmitrymomot/fintrack/pkg/session"
	"github.com/dmitrymomot/fintrack/svc/authflow"
)

type appConfig struct {
	AppEnv    string `env:"APP_ENV" envDefault:"development"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"warn"`

	API     authapi.Config
	Session session.Config
	Redis   redis.Config
}

func main() {
	if len(os.Args) < 2 || os.Args[1] == "-h" || os.Args[1] == "help" {
		printUsage(os.Stderr)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1], os.Args[2:], os.Stdin, os.Stdout, os.Stderr)
	stop()

	if err != nil {
		if errors.Is(err, errUnknownCommand) {
			fmt.Fprintln(os.Stderr, err)
			printUsage(os.Stderr)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, authflow.Message(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(environment.Parse(cfg.AppEnv), "fintrack"),
		logger.WithFormat(logger.Format(cfg.LogFormat)),
		logger.WithLevelName(cfg.LogLevel),
		logger.WithOutput(stderr),
		logger.WithContextExtractors(requestid.LogExtractor),
	)

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	api, err := authapi.NewFromConfig(cfg.API, authapi.WithLogger(log))
	if err != nil {
		return err
	}

	a := &app{
		flow:   authflow.New(api, store, authflow.WithLogger(log)),
		prompt: newPrompter(stdin, stdout),
		out:    stdout,
	}
	return a.dispatch(ctx, name, args)
}

// openStore builds the configured session store. The redis backend connects
// eagerly so a bad REDIS_URL fails before any prompt.
func openStore(ctx context.Context, cfg appConfig, log *slog.Logger) (session.Store, func(), error) {
	if cfg.Session.Backend != session.BackendRedis {
		store, err := session.NewStore(cfg.Session, nil)
		return store, func() {}, err
	}

	client, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			log.Warn("failed to close redis client", logger.Error(err))
		}
	}
	if err := redis.Check(client)(ctx); err != nil {
		closeFn()
		return nil, nil, err
	}

	store, err := session.NewStore(cfg.Session, client)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return store, closeFn, nil
}
