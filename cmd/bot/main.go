package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reviewbot/internal/app"
	"reviewbot/internal/config"
	logx "reviewbot/pkg/logx"
)

func main() {
	var (
		cfgPath string
		envFile string
	)
	flag.StringVar(&cfgPath, "config", "", "optional path to config json/yaml")
	flag.StringVar(&envFile, "env-file", ".env", "dotenv file with credentials (skipped if missing)")
	flag.Parse()

	boot := logx.NewConsole("INFO").With(logx.String("comp", "main"))

	if err := config.LoadDotEnv(envFile); err != nil {
		boot.Fatal("failed to load env file", logx.String("path", envFile), logx.Err(err))
		os.Exit(1)
	}

	a, err := app.NewApp(cfgPath)
	if err != nil {
		boot.Fatal("startup failed", logx.Err(err))
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if err := a.Start(context.Background()); err != nil {
		boot.Fatal("start failed", logx.Err(err))
		os.Exit(1)
	}

	reason := app.StopUnknown
	select {
	case sig := <-sigCh:
		reason = app.StopSIGINT
		if sig == syscall.SIGTERM {
			reason = app.StopSIGTERM
		}
	case <-a.Done():
		reason = app.StopFatalError
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Stop(ctx, reason); err != nil || reason == app.StopFatalError {
		boot.Error("exited with error", logx.Err(err), logx.Any("app_err", a.Err()))
		os.Exit(1)
	}
}
