package ai

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"loopbot/apperror"
)

const (
	promptSystem = "You are a creative challenge bot. Provide concise, vivid, and self-contained prompts " +
		"in complete sentences that inspire music, art, or storytelling."
	promptRequest = "Please give me a creative challenge prompt: one or two clear, vivid sentences."
	chatSystem    = "You are a helpful AI assistant."
)

var fallbackPrompts = []string{
	"🌿 Create a loop inspired by nature's rhythm.",
	"💭 Make something based on a dream you had.",
	"🚀 Design a sound/scene/story from the future.",
	"🌀 Loop based on the feeling of déjà vu.",
	"🔥 Create something chaotic, messy, raw.",
}

// Rotation cycles through a shuffled copy of the static prompts.
type Rotation struct {
	mu      sync.Mutex
	prompts []string
	next    int
}

// NewRotation shuffles prompts with rng.
func NewRotation(prompts []string, rng *rand.Rand) *Rotation {
	shuffled := append([]string(nil), prompts...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return &Rotation{prompts: shuffled}
}

// Next returns the next prompt, wrapping around.
func (r *Rotation) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.prompts[r.next%len(r.prompts)]
	r.next++
	return p
}

// ThemeFeed turns the latest item of an RSS/Atom feed into a prompt.
type ThemeFeed struct {
	parser *gofeed.Parser
	url    string
}

// NewThemeFeed creates a feed-based prompt source.
func NewThemeFeed(url string) *ThemeFeed {
	return &ThemeFeed{parser: gofeed.NewParser(), url: url}
}

// Prompt fetches the feed and builds a prompt from its first titled item.
func (f *ThemeFeed) Prompt(ctx context.Context) (string, error) {
	feed, err := f.parser.ParseURLWithContext(f.url, ctx)
	if err != nil {
		return "", err
	}
	for _, item := range feed.Items {
		if title := strings.TrimSpace(item.Title); title != "" {
			return fmt.Sprintf("📰 Today's theme: **%s**. Make something it inspires.", title), nil
		}
	}
	return "", fmt.Errorf("feed %s has no titled items", f.url)
}

// Models names the model used for each kind of request. Empty names use the provider default.
type Models struct {
	Prompt string
	Chat   string
}

// Prompter produces the daily prompt and chat replies.
type Prompter struct {
	provider Provider
	models   Models
	feed     *ThemeFeed
	fallback *Rotation
	timeout  time.Duration
}

// NewPrompter creates a Prompter. provider and feed may be nil.
func NewPrompter(provider Provider, models Models, feed *ThemeFeed, timeout time.Duration) *Prompter {
	return &Prompter{
		provider: provider,
		models:   models,
		feed:     feed,
		fallback: NewRotation(fallbackPrompts, rand.New(rand.NewSource(time.Now().UnixNano()))),
		timeout:  timeout,
	}
}

// DailyPrompt never fails: it tries the LLM, then the theme feed, then the static rotation.
func (p *Prompter) DailyPrompt(ctx context.Context) string {
	if p.provider != nil {
		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		text, err := p.provider.Generate(callCtx, p.models.Prompt, promptSystem, promptRequest, 100)
		cancel()
		if err == nil {
			return text
		}
		log.Printf("⚠️ AI prompt generation failed, falling back: %v", err)
	}
	if p.feed != nil {
		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		text, err := p.feed.Prompt(callCtx)
		cancel()
		if err == nil {
			return text
		}
		log.Printf("⚠️ Theme feed failed, falling back: %v", err)
	}
	return p.fallback.Next()
}

// Chat answers a free-form message.
func (p *Prompter) Chat(ctx context.Context, message string) (string, error) {
	if p.provider == nil {
		return "", apperror.New(apperror.ErrExternalService, "AI chat is not configured", nil)
	}
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	reply, err := p.provider.Generate(callCtx, p.models.Chat, chatSystem, message, 150)
	if err != nil {
		return "", apperror.External("ai chat", err)
	}
	return reply, nil
}

// Close releases the provider.
func (p *Prompter) Close() {
	if p.provider != nil {
		p.provider.Close()
	}
}
