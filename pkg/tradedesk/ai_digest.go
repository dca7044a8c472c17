package tradedesk

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"
	"google.golang.org/genai"
)

// Digest providers.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

const (
	defaultDigestEntries  = 7
	maxDigestEntries      = 60
	digestMaxTokens       = 1024
	defaultDigestTimeout  = 60 * time.Second
	defaultGeminiModel    = "gemini-2.0-flash"
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultAnthropicModel = "claude-3-5-haiku-latest"
	digestSystemPrompt    = "You are a trading coach reviewing a trader's daily market journal and trade log. Reply in plain text: three short paragraphs covering recurring themes, how sentiment shifted, and one concrete improvement. Do not give financial advice."
)

// DigestOptions configures the optional journal digest model. An empty
// Provider disables the feature.
type DigestOptions struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
	Logger   *slog.Logger

	// Client overrides provider selection.
	Client DigestModel
}

// DigestModel produces completions for the journal digest.
type DigestModel interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Name() string
}

// JournalDigestRequest selects how many recent entries go into the prompt.
type JournalDigestRequest struct {
	Entries int `json:"entries"`
}

// JournalDigest is the model's review of recent entries.
type JournalDigest struct {
	Model       string    `json:"model"`
	GeneratedAt time.Time `json:"generatedAt"`
	EntryCount  int       `json:"entryCount"`
	Content     string    `json:"content"`
}

func newDigestModel(ctx context.Context, opts DigestOptions) (DigestModel, error) {
	if opts.Client != nil {
		return opts.Client, nil
	}
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	if provider == "" {
		return nil, nil
	}
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, invalidf("ai api key is required for provider %s", provider)
	}
	model := strings.TrimSpace(opts.Model)
	baseURL := strings.TrimSpace(opts.BaseURL)

	switch provider {
	case ProviderGemini:
		if model == "" {
			model = defaultGeminiModel
		}
		cfg := &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
		if baseURL != "" {
			cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
		}
		client, err := genai.NewClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("create gemini client failed: %w", err)
		}
		return &geminiDigest{client: client, model: model}, nil
	case ProviderOpenAI:
		if model == "" {
			model = defaultOpenAIModel
		}
		reqOpts := []openaioption.RequestOption{openaioption.WithAPIKey(apiKey)}
		if baseURL != "" {
			reqOpts = append(reqOpts, openaioption.WithBaseURL(baseURL))
		}
		return &openAIDigest{client: openai.NewClient(reqOpts...), model: model}, nil
	case ProviderAnthropic:
		if model == "" {
			model = defaultAnthropicModel
		}
		reqOpts := []anthropicoption.RequestOption{anthropicoption.WithAPIKey(apiKey)}
		if baseURL != "" {
			reqOpts = append(reqOpts, anthropicoption.WithBaseURL(baseURL))
		}
		return &anthropicDigest{client: anthropic.NewClient(reqOpts...), model: model}, nil
	default:
		return nil, invalidf("unsupported ai provider: %s", opts.Provider)
	}
}

// JournalDigest asks the configured model to review the most recent journal
// entries alongside the current trade statistics.
func (s *Store) JournalDigest(ctx context.Context, req JournalDigestRequest) (*JournalDigest, error) {
	if s.digest == nil {
		return nil, NewError(ErrCodeUnsupported, "journal digest is not configured")
	}
	n := defaultInt(req.Entries, defaultDigestEntries)
	if n > maxDigestEntries {
		return nil, invalidf("entries must be at most %d", maxDigestEntries)
	}
	entries := s.ListJournal()
	if len(entries) == 0 {
		return nil, NewError(ErrCodeValidation, "journal is empty")
	}
	if len(entries) > n {
		entries = entries[:n]
	}

	prompt := buildDigestPrompt(entries, s.TradeStats())
	s.logger.Debug("journal digest prompt", "model", s.digest.Name(), "entries", len(entries), "prompt_len", len(prompt))

	ctx, cancel := context.WithTimeout(ctx, s.digestTimeout)
	defer cancel()
	start := time.Now()
	content, err := s.digest.Complete(ctx, digestSystemPrompt, prompt)
	if err != nil {
		s.logger.Warn("journal digest failed", "model", s.digest.Name(), "err", err)
		return nil, WrapError(ErrCodeInternal, "journal digest failed", err)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, NewError(ErrCodeInternal, "ai response content is empty")
	}
	s.logger.Info("journal digest generated", "model", s.digest.Name(), "entries", len(entries), "duration", time.Since(start))

	return &JournalDigest{
		Model:       s.digest.Name(),
		GeneratedAt: s.now().UTC(),
		EntryCount:  len(entries),
		Content:     content,
	}, nil
}

func buildDigestPrompt(entries []JournalEntry, stats TradeStats) string {
	var b strings.Builder
	b.WriteString("Journal entries, newest first:\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "\n## %s (%s)\n", e.Date, e.Sentiment)
		if e.MacroReview != "" {
			fmt.Fprintf(&b, "Macro: %s\n", e.MacroReview)
		}
		if e.AltsMarket != "" {
			fmt.Fprintf(&b, "Alts: %s\n", e.AltsMarket)
		}
		if e.Summary != "" {
			fmt.Fprintf(&b, "Summary: %s\n", e.Summary)
		}
	}
	fmt.Fprintf(&b, "\nTrade log: %d trades, %d open, %d wins, %d losses, %d breakeven, total pnl %s USD",
		stats.Total, stats.Open, stats.Wins, stats.Losses, stats.Breakevens, stats.TotalPnL.StringFixed(2))
	if stats.WinRate != nil {
		fmt.Fprintf(&b, ", win rate %.1f%%", *stats.WinRate*100)
	}
	b.WriteString(".\n")
	return b.String()
}

type geminiDigest struct {
	client *genai.Client
	model  string
}

func (g *geminiDigest) Name() string { return g.model }

func (g *geminiDigest) Complete(ctx context.Context, system, user string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
		Temperature:       genai.Ptr(float32(0.2)),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(user), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content failed: %w", err)
	}
	return resp.Text(), nil
}

type openAIDigest struct {
	client openai.Client
	model  string
}

func (o *openAIDigest) Name() string { return o.model }

func (o *openAIDigest) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

type anthropicDigest struct {
	client anthropic.Client
	model  string
}

func (a *anthropicDigest) Name() string { return a.model }

func (a *anthropicDigest) Complete(ctx context.Context, system, user string) (string, error) {
	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: digestMaxTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages failed: %w", err)
	}
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}
