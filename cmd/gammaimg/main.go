package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/lukaszgryglicki/gammaimg/internal/gammaimg"
)

func main() {
	gammaimg.Debug = os.Getenv("DEBUG") != ""
	gammaimg.UseLocks = os.Getenv("SKIP_LOCKS") == ""
	gammaimg.PNG = os.Getenv("PNG") != ""
	gammaimg.RAW = os.Getenv("RAW") != ""
	gammaimg.GIF = os.Getenv("GIF") != ""

	level := slog.LevelInfo
	if gammaimg.Debug {
		level = slog.LevelDebug
	}
	gammaimg.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	profile := os.Getenv("PROFILE") != ""
	if profile {
		f, err := os.Create("cpu.out")
		if err != nil {
			panic(err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			panic(err)
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = f.Close()
		}()
	}

	cfg := "configs/config.yaml"
	if len(os.Args) > 1 {
		cfg = os.Args[1]
	}

	// events already in flight finish; the rest are skipped
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := gammaimg.Run(ctx, cfg)
	stop()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
