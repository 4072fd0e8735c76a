// Package client queries a running bot's leaderboard service.
package client

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"

	"loopbot/grpc/service"
)

type ReconnectConfig struct {
	MaxRetries    int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

var DefaultReconnectConfig = ReconnectConfig{
	MaxRetries:    3,
	BaseDelay:     500 * time.Millisecond,
	MaxDelay:      5 * time.Second,
	BackoffFactor: 2,
}

type LeaderboardClient struct {
	conn *grpc.ClientConn
}

// Dial connects to addr and waits until the leaderboard reports SERVING,
// retrying with exponential backoff.
func Dial(ctx context.Context, addr string, cfg ReconnectConfig, opts ...grpc.DialOption) (*LeaderboardClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gRPC client for %s: %w", addr, err)
	}
	c := &LeaderboardClient{conn: conn}

	for attempt := 0; attempt < cfg.MaxRetries; attempt++ {
		err = c.Check(ctx)
		if err == nil {
			return c, nil
		}
		log.Printf("leaderboard service at %s not ready (attempt %d/%d): %v", addr, attempt+1, cfg.MaxRetries, err)
		if attempt == cfg.MaxRetries-1 {
			break
		}
		select {
		case <-time.After(backoffDelay(cfg, attempt)):
		case <-ctx.Done():
			conn.Close()
			return nil, ctx.Err()
		}
	}
	conn.Close()
	return nil, fmt.Errorf("leaderboard service at %s unavailable: %w", addr, err)
}

func backoffDelay(cfg ReconnectConfig, attempt int) time.Duration {
	delay := time.Duration(float64(cfg.BaseDelay) * math.Pow(cfg.BackoffFactor, float64(attempt)))
	if delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	return delay
}

// Check returns nil when the service reports SERVING.
func (c *LeaderboardClient) Check(ctx context.Context) error {
	resp, err := healthpb.NewHealthClient(c.conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service.ServiceName})
	if err != nil {
		return err
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("status %s", resp.GetStatus())
	}
	return nil
}

// TopPoints returns the raw entries of the points leaderboard.
func (c *LeaderboardClient) TopPoints(ctx context.Context, limit int) ([]map[string]any, error) {
	return c.invoke(ctx, service.TopPointsMethod, map[string]any{"limit": limit})
}

// TopVotes returns the most voted submissions of the last windowHours.
func (c *LeaderboardClient) TopVotes(ctx context.Context, limit, windowHours int) ([]map[string]any, error) {
	req := map[string]any{"limit": limit}
	if windowHours > 0 {
		req["window_hours"] = windowHours
	}
	return c.invoke(ctx, service.TopVotesMethod, req)
}

func (c *LeaderboardClient) invoke(ctx context.Context, method string, fields map[string]any) ([]map[string]any, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, method, in, out); err != nil {
		return nil, err
	}

	raw, _ := out.AsMap()["entries"].([]any)
	entries := make([]map[string]any, 0, len(raw))
	for _, e := range raw {
		if m, ok := e.(map[string]any); ok {
			entries = append(entries, m)
		}
	}
	return entries, nil
}

func (c *LeaderboardClient) Close() error {
	return c.conn.Close()
}
