package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/tgienger/stmc/internal/devserver"
)

func main() {
	var (
		addr   = flag.String("addr", ":5000", "listen address")
		ttl    = flag.Duration("token-ttl", 30*24*time.Hour, "lifetime of issued tokens")
		debug  = flag.Bool("debug", false, "log at debug level")
		secret = os.Getenv("STMC_DEV_SECRET")
	)
	flag.Parse()

	logger := log.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if *debug {
		logger.SetLevel(log.DebugLevel)
	}

	if secret == "" {
		// tokens will not survive a restart
		secret = uuid.NewString()
		logger.Warn("STMC_DEV_SECRET not set, using a random signing secret")
	}

	srv := devserver.New(devserver.Config{Secret: []byte(secret), TokenTTL: *ttl}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		if err := srv.Close(); err != nil {
			logger.WithError(err).Error("shutting down")
		}
	}()

	if err := srv.Start(*addr); err != nil {
		logger.WithError(err).Fatal("serving")
	}
}
