// Package service exposes the leaderboards over gRPC.
//
// Messages are google.protobuf.Struct so the service needs no generated stubs.
package service

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"loopbot/model"
)

const (
	ServiceName = "loopbot.Leaderboard"

	TopPointsMethod = "/" + ServiceName + "/TopPoints"
	TopVotesMethod  = "/" + ServiceName + "/TopVotes"

	defaultLimit = 5
	maxLimit     = 25
)

// PointsSource returns the points leaderboard.
type PointsSource interface {
	TopByPoints(exclude []string, limit int) ([]model.Standing, error)
}

// VotesSource returns the most voted submissions in a window.
type VotesSource interface {
	Window() time.Duration
	TopByVotes(window time.Duration, limit int, now time.Time) ([]model.ScoredSubmission, error)
}

// LeaderboardServer is the server API of loopbot.Leaderboard.
type LeaderboardServer interface {
	TopPoints(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	TopVotes(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// LeaderboardService implements LeaderboardServer.
type LeaderboardService struct {
	points  PointsSource
	votes   VotesSource
	exclude func() []string
	now     func() time.Time
}

// NewLeaderboardService creates the service. exclude may be nil.
func NewLeaderboardService(points PointsSource, votes VotesSource, exclude func() []string) *LeaderboardService {
	return &LeaderboardService{points: points, votes: votes, exclude: exclude, now: time.Now}
}

// TopPoints accepts {"limit": n} and returns {"entries": [{"user_id", "points"}]}.
func (s *LeaderboardService) TopPoints(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	limit, err := limitFrom(req)
	if err != nil {
		return nil, err
	}
	var exclude []string
	if s.exclude != nil {
		exclude = s.exclude()
	}
	standings, err := s.points.TopByPoints(exclude, limit)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "query leaderboard: %v", err)
	}

	entries := make([]any, 0, len(standings))
	for _, st := range standings {
		entries = append(entries, map[string]any{"user_id": st.UserID, "points": st.Points})
	}
	return newResponse(entries)
}

// TopVotes accepts {"limit": n, "window_hours": h} and returns the most voted submissions.
func (s *LeaderboardService) TopVotes(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	limit, err := limitFrom(req)
	if err != nil {
		return nil, err
	}
	window := s.votes.Window()
	if v, ok := req.GetFields()["window_hours"]; ok {
		hours, isNum := v.GetKind().(*structpb.Value_NumberValue)
		if !isNum || hours.NumberValue <= 0 || hours.NumberValue > 24*31 {
			return nil, status.Error(codes.InvalidArgument, "window_hours must be a number between 1 and 744")
		}
		window = time.Duration(hours.NumberValue * float64(time.Hour))
	}

	top, err := s.votes.TopByVotes(window, limit, s.now())
	if err != nil {
		return nil, status.Errorf(codes.Internal, "query votes: %v", err)
	}

	entries := make([]any, 0, len(top))
	for _, sub := range top {
		entries = append(entries, map[string]any{
			"submission_id": sub.ID,
			"author_id":     sub.AuthorID,
			"kind":          string(sub.Kind),
			"payload":       sub.Payload,
			"total":         sub.Total,
			"votes":         sub.Votes,
		})
	}
	return newResponse(entries)
}

func limitFrom(req *structpb.Struct) (int, error) {
	v, ok := req.GetFields()["limit"]
	if !ok {
		return defaultLimit, nil
	}
	n, isNum := v.GetKind().(*structpb.Value_NumberValue)
	if !isNum || n.NumberValue < 1 || n.NumberValue > maxLimit || n.NumberValue != float64(int(n.NumberValue)) {
		return 0, status.Errorf(codes.InvalidArgument, "limit must be an integer between 1 and %d", maxLimit)
	}
	return int(n.NumberValue), nil
}

func newResponse(entries []any) (*structpb.Struct, error) {
	resp, err := structpb.NewStruct(map[string]any{"entries": entries})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return resp, nil
}

func topPointsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LeaderboardServer).TopPoints(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: TopPointsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LeaderboardServer).TopPoints(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func topVotesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LeaderboardServer).TopVotes(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: TopVotesMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LeaderboardServer).TopVotes(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc describes loopbot.Leaderboard for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LeaderboardServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "TopPoints", Handler: topPointsHandler},
		{MethodName: "TopVotes", Handler: topVotesHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "loopbot/leaderboard",
}

// NewServer builds a gRPC server carrying the leaderboard and the standard health service.
func NewServer(svc LeaderboardServer, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(opts...)
	srv.RegisterService(&ServiceDesc, svc)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv, hs
}
