package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/wtask/relay/internal/admin"
	"github.com/wtask/relay/internal/logging"
	"github.com/wtask/relay/internal/relay"
	"github.com/wtask/relay/internal/relay/limit"
	"github.com/wtask/relay/internal/version"
)

func main() {
	logging.InitLogger(Config.LogLevel, Config.LogFormat)
	logger := logging.Logger.With("version", version.Version)
	logger.Info("Starting relay", "addr", Config.Addr, "capacity", Config.Capacity, "admin", Config.AdminAddr)

	clock := clockwork.NewRealClock()
	server, err := relay.NewServer(
		relay.WithCapacity(Config.Capacity),
		relay.WithWriteTimeout(Config.WriteTimeout),
		relay.WithIdleTimeout(Config.IdleTimeout),
		relay.WithMaxLineLength(Config.MaxLineBytes),
		relay.WithLimits(limit.New(Config.Limits(), clock)),
		relay.WithLogger(logger),
		relay.WithClock(clock),
	)
	if err != nil {
		logger.Error("Can't build relay server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.ListenAndServe(Config.Addr); !errors.Is(err, relay.ErrServerClosed) {
			return err
		}
		return nil
	})

	var adm *admin.Server
	if Config.AdminAddr != "" {
		adm = admin.NewServer(server, clock, logger)
		g.Go(func() error {
			logger.Info("Admin listening", "addr", Config.AdminAddr)
			return adm.Start(Config.AdminAddr)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Stopping relay", "cause", context.Cause(ctx))
		logger.Info("Relay stopped", "duration", server.Shutdown(Config.ShutdownTimeout))
		if adm == nil {
			return nil
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), Config.ShutdownTimeout)
		defer cancel()
		return adm.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Relay failed", "error", err)
		stop()
		os.Exit(1)
	}
	logger.Info("Bye")
}
