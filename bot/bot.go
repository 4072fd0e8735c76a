package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"google.golang.org/grpc"

	"loopbot/db"
	"loopbot/grpc/service"
	"loopbot/handler/loop"
	"loopbot/integration/ai"
	"loopbot/integration/crypto"
	"loopbot/integration/gif"
	"loopbot/integration/memes"
	"loopbot/integration/music"
	"loopbot/model"
	"loopbot/ranking"
	"loopbot/report"
	"loopbot/storage"
	"loopbot/submission"
	"loopbot/utils"
	"loopbot/vote"
	"loopbot/web"
)

const (
	memesSeenTTL = 7 * 24 * time.Hour
	jobTimeout   = 2 * time.Minute
)

// App is the wired bot: storage, engines, integrations and the Discord session.
type App struct {
	cfg     *model.Config
	session *discordgo.Session
	store   *db.Store

	ranking   *ranking.Engine
	votes     *vote.Engine
	handler   *loop.Handler
	scheduler *report.Scheduler
	prompter  *ai.Prompter
	tickers   *crypto.LiveTickers
	hub       *web.Hub

	closers []func()

	mu    sync.RWMutex
	botID string
}

// New opens the store and builds every component. A storage failure is returned
// and must stop the process.
func New(ctx context.Context, cfg *model.Config) (*App, error) {
	if cfg.Token == "" {
		return nil, errors.New("DISCORD_BOT_TOKEN is not set")
	}

	store, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// REST calls work before the gateway is opened, so one-shot modes never call Open.
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create discord session: %w", err)
	}

	a := &App{cfg: cfg, session: session, store: store}
	a.closers = append(a.closers, func() { store.Close() })

	timeout := cfg.Schedule.HTTPTimeout
	a.ranking = ranking.NewEngine(store, cfg.Roles)
	a.votes = vote.NewEngine(store, cfg.Schedule.VoteWindow(), vote.DefaultPolicy)
	ledger := submission.NewLedger(store, a.ranking, cfg.Prefix)

	a.prompter = a.newPrompter(ctx, timeout)
	a.closers = append(a.closers, a.prompter.Close)

	markets := crypto.NewClient(timeout, "")
	a.tickers = crypto.NewLiveTickers()
	a.closers = append(a.closers, a.tickers.StopAll)

	deps := loop.Deps{
		Config:  cfg,
		Store:   store,
		Ledger:  ledger,
		Votes:   a.votes,
		Ranking: a.ranking,
		Prompts: a.prompter,
		Markets: markets,
		Tickers: a.tickers,
		Memes:   memes.NewScraper(nil, "", timeout, a.newSeenStore(ctx)),
		Files:   storage.NewDownloader(timeout, storage.MaxUploadSize),
		Context: ctx,
		BotID:   a.BotID,
		Timeout: timeout,
	}
	if cfg.Integrations.SpotifyClientID != "" && cfg.Integrations.SpotifyClientSecret != "" {
		deps.Music = music.NewClient(cfg.Integrations.SpotifyClientID, cfg.Integrations.SpotifyClientSecret, "", "", timeout)
	}
	if cfg.Integrations.GiphyAPIKey != "" {
		deps.Gifs = gif.NewClient(cfg.Integrations.GiphyAPIKey, "", timeout)
	}

	mirror, err := storage.NewMinIOMirror(ctx, cfg.Integrations, timeout)
	switch {
	case err != nil:
		log.Printf("⚠️ Attachment mirror disabled: %v", err)
	case mirror != nil:
		deps.Mirror = mirror
		log.Printf("Mirroring attachments to bucket %s", cfg.Integrations.MinioBucket)
	}

	if cfg.Servers.HTTPAddr != "" {
		a.hub = web.NewHub()
		deps.Events = a.hub
	}

	a.handler = loop.New(deps)
	loop.RegisterHandlers(a.handler)

	a.scheduler = report.NewScheduler(ctx, jobTimeout)
	if err := a.registerJobs(markets); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) newPrompter(ctx context.Context, timeout time.Duration) *ai.Prompter {
	provider, err := ai.NewProvider(ctx, a.cfg.AI)
	if err != nil {
		log.Printf("⚠️ AI provider unavailable, using fallback prompts: %v", err)
		provider = nil
	}
	var feed *ai.ThemeFeed
	if a.cfg.AI.PromptFeedURL != "" {
		feed = ai.NewThemeFeed(a.cfg.AI.PromptFeedURL)
	}
	models := ai.Models{Prompt: a.cfg.AI.PromptModel, Chat: a.cfg.AI.ChatModel}
	return ai.NewPrompter(provider, models, feed, timeout)
}

// newSeenStore prefers Redis so scrape dedupe survives restarts.
func (a *App) newSeenStore(ctx context.Context) utils.SeenStore {
	if url := a.cfg.Integrations.RedisURL; url != "" {
		seen, err := utils.NewRedisSeen(url, "loopbot:memes:", memesSeenTTL)
		if err == nil {
			err = seen.Ping(ctx)
		}
		if err == nil {
			a.closers = append(a.closers, func() { seen.Close() })
			return seen
		}
		log.Printf("⚠️ Redis unavailable, deduplicating memes in memory: %v", err)
	}
	seen := utils.NewMemorySeen(memesSeenTTL)
	a.closers = append(a.closers, seen.Close)
	return seen
}

// registerJobs adds the periodic jobs. With RUN_SCHEDULE off they are still
// registered so one-shot modes can run them by name.
func (a *App) registerJobs(markets report.MarketSource) error {
	sc, ch := a.cfg.Schedule, a.cfg.Channels
	spec := func(s string) string {
		if !sc.Enabled {
			return ""
		}
		return s
	}

	jobs := []report.Job{
		&report.DailyPromptJob{
			Publisher: a.session,
			Store:     a.store,
			Prompts:   a.prompter,
			ChannelID: ch.Challenge,
			BannerURL: sc.BannerURL,
			Spec:      spec(report.Daily(sc.DailyHour, sc.DailyMinute)),
			Now:       time.Now,
		},
		&report.LeaderboardJob{
			Publisher: a.session,
			Ranking:   a.ranking,
			ChannelID: ch.Leaderboard,
			BotID:     a.BotID,
			Spec:      spec(report.Daily(sc.LeaderboardHour, sc.LeaderboardMinute)),
		},
		&report.VoteSummaryJob{
			Publisher: a.session,
			Votes:     a.votes,
			ChannelID: ch.Leaderboard,
			Spec:      spec(report.Daily(sc.VoteSummaryHour, sc.VoteSummaryMinute)),
			Now:       time.Now,
		},
		&report.CryptoJob{
			Publisher: a.session,
			Markets:   markets,
			Tickers:   a.cfg.Integrations.CryptoTickers,
			ChannelID: ch.Crypto,
			Spec:      spec(report.EveryHours(sc.CryptoIntervalHours)),
			Now:       time.Now,
		},
	}
	for _, job := range jobs {
		if err := a.scheduler.Register(job); err != nil {
			return err
		}
	}
	return nil
}

// BotID returns the bot's own user ID once known.
func (a *App) BotID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.botID
}

func (a *App) setBotID(id string) {
	a.mu.Lock()
	a.botID = id
	a.mu.Unlock()
}

func (a *App) excludeBot() []string {
	if id := a.BotID(); id != "" {
		return []string{id}
	}
	return nil
}

// Run connects to the gateway and serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	registerEventHandlers(a.session, a.handler, a.setBotID)

	if err := a.session.Open(); err != nil {
		return fmt.Errorf("open discord connection: %w", err)
	}
	defer a.session.Close()
	if a.session.State != nil && a.session.State.User != nil {
		a.setBotID(a.session.State.User.ID)
	}

	var wg sync.WaitGroup
	if a.hub != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.hub.Run(ctx)
		}()
		srv := web.NewServer(a.hub, a.ranking, a.votes, a.ranking, a.excludeBot)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServe(ctx, a.cfg.Servers.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Status API stopped: %v", err)
			}
		}()
	}

	if addr := a.cfg.Servers.GRPCAddr; addr != "" {
		srv, err := a.serveGRPC(addr)
		if err != nil {
			return err
		}
		defer srv.GracefulStop()
	}

	if a.cfg.Schedule.Enabled {
		a.scheduler.Start()
		defer a.scheduler.Stop()
	}

	log.Printf("Bot is now running. Press CTRL-C to exit.")
	<-ctx.Done()
	log.Printf("Shutting down...")
	wg.Wait()
	return nil
}

func (a *App) serveGRPC(addr string) (*grpc.Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	srv, _ := service.NewServer(service.NewLeaderboardService(a.ranking, a.votes, a.excludeBot))
	go func() {
		log.Printf("gRPC leaderboard listening on %s", addr)
		if err := srv.Serve(lis); err != nil {
			log.Printf("gRPC server stopped: %v", err)
		}
	}()
	return srv, nil
}

// RunJob runs one scheduled job immediately over the REST API, without a gateway connection.
func (a *App) RunJob(ctx context.Context, name string) error {
	if user, err := a.session.User("@me"); err == nil {
		a.setBotID(user.ID)
	} else {
		log.Printf("⚠️ Could not resolve bot user: %v", err)
	}
	return a.scheduler.RunByName(ctx, name)
}

// Close releases everything New opened, last opened first.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
