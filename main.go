package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"loopbot/bot"
	"loopbot/config"
	"loopbot/grpc/client"
	"loopbot/model"
)

func main() {
	var runMode string
	if len(os.Args) > 1 {
		runMode = strings.ToLower(os.Args[1])
	}

	if err := config.LoadConfig(runMode); err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	cfg := &config.Cfg

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, cfg)
	stop()
	if err != nil {
		log.Printf("❌ %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *model.Config) error {
	if cfg.RunMode == "standings" {
		return printStandings(ctx, cfg.Servers.GRPCAddr)
	}

	app, err := bot.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	switch cfg.RunMode {
	case "daily", "leaderboard":
		if err := app.RunJob(ctx, cfg.RunMode); err != nil {
			return fmt.Errorf("%s run failed: %w", cfg.RunMode, err)
		}
		log.Printf("✅ %s run complete", cfg.RunMode)
		return nil
	default:
		return app.Run(ctx)
	}
}

// printStandings queries a running bot over gRPC.
func printStandings(ctx context.Context, addr string) error {
	if addr == "" {
		return fmt.Errorf("GRPC_ADDR is not set")
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	c, err := client.Dial(ctx, addr, client.DefaultReconnectConfig)
	if err != nil {
		return err
	}
	defer c.Close()

	points, err := c.TopPoints(ctx, 10)
	if err != nil {
		return err
	}
	fmt.Println("Top creators:")
	for i, e := range points {
		fmt.Printf("%2d. %v  %v points\n", i+1, e["user_id"], e["points"])
	}

	trending, err := c.TopVotes(ctx, 5, 24)
	if err != nil {
		return err
	}
	fmt.Println("Trending submissions (24h):")
	for _, e := range trending {
		fmt.Printf("#%v by %v  %v points from %v votes  %v\n", e["submission_id"], e["author_id"], e["total"], e["votes"], e["payload"])
	}
	return nil
}
