package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/nathoo/talespin/debug"
)

// Client is a Backend speaking the OpenAI chat-completions protocol. With a
// base URL override it talks to any compatible server, including a local
// Ollama instance.
type Client struct {
	client  oai.Client
	model   string
	timeout time.Duration
	log     *debug.Logger

	ctx Context
}

// Option is a functional option for Client.
type Option func(*clientConfig)

type clientConfig struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	log     *debug.Logger
}

// WithBaseURL points the client at a non-default server, e.g. an Ollama
// instance at http://localhost:11434/v1.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) { c.baseURL = url }
}

// WithAPIKey sets the bearer token. Local servers accept any value.
func WithAPIKey(key string) Option {
	return func(c *clientConfig) { c.apiKey = key }
}

// WithTimeout bounds each interpretation call. Default 30s.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.timeout = d }
}

// WithLogger attaches a trace logger.
func WithLogger(l *debug.Logger) Option {
	return func(c *clientConfig) { c.log = l }
}

// NewClient constructs a Client for the given model.
func NewClient(model string, opts ...Option) (*Client, error) {
	if model == "" {
		return nil, fmt.Errorf("llm: model must not be empty")
	}
	cfg := &clientConfig{timeout: 30 * time.Second, log: debug.Nop()}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{}
	if cfg.apiKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(cfg.apiKey))
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))

	return &Client{
		client:  oai.NewClient(reqOpts...),
		model:   model,
		timeout: cfg.timeout,
		log:     cfg.log,
	}, nil
}

// SetContext implements Backend.
func (c *Client) SetContext(ctx Context) {
	c.ctx = ctx
}

// Interpret implements Backend. The call is bounded by the configured
// timeout; a deadline overrun surfaces as an error and the caller falls
// back to deterministic parsing.
func (c *Client) Interpret(ctx context.Context, raw string) (Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(c.systemPrompt()),
			oai.UserMessage(raw),
		},
		Temperature: param.NewOpt(0.0),
	}

	c.log.Debug("llm call", "model", c.model, "input", raw)
	resp, err := c.client.Chat.Completions.New(callCtx, params)
	if err != nil {
		return Result{}, fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("llm: empty choices in response")
	}

	content := resp.Choices[0].Message.Content
	c.log.Debug("llm response", "content", truncate(content, 160))
	return ParseResult(content)
}

// ParseResult decodes the backend's JSON contract:
//
//	{"confidence": 0|1|2, "verb": "...", "object": "...", "additional": "..."}
//
// Code fences are tolerated. Anything else is a malformed-output error.
func ParseResult(content string) (Result, error) {
	cleaned := strings.TrimSpace(content)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var raw struct {
		Confidence *int   `json:"confidence"`
		Verb       string `json:"verb"`
		Object     string `json:"object"`
		Additional string `json:"additional"`
	}
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return Result{}, fmt.Errorf("llm: malformed response: %w", err)
	}
	if raw.Confidence == nil || raw.Verb == "" {
		return Result{}, fmt.Errorf("llm: response missing confidence or verb")
	}
	conf := *raw.Confidence
	if conf < ConfidenceUnsure || conf > ConfidenceSure {
		return Result{}, fmt.Errorf("llm: confidence %d out of range", conf)
	}
	return Result{
		Confidence: conf,
		Verb:       strings.TrimSpace(raw.Verb),
		Object:     strings.TrimSpace(raw.Object),
		Object2:    strings.TrimSpace(raw.Additional),
	}, nil
}

func (c *Client) systemPrompt() string {
	verbs := append([]string(nil), c.ctx.AllowedVerbs...)
	sort.Strings(verbs)

	var b strings.Builder
	b.WriteString("You map player input to game commands. A command consists of a <verb> and optional 1 or 2 objects. ")
	b.WriteString("<confidence> is 0=unsure, 1=quite sure, 2=totally sure.\n")
	fmt.Fprintf(&b, "Language: %s.\n", c.ctx.Language)
	fmt.Fprintf(&b, "Allowed verbs: %s\n", strings.Join(verbs, ", "))
	fmt.Fprintf(&b, "Known nouns: %s\n", strings.Join(c.ctx.KnownNouns, ", "))
	if c.ctx.Guidance != "" {
		fmt.Fprintf(&b, "Guidance: %s\n", c.ctx.Guidance)
	}
	b.WriteString("Context:\n")
	fmt.Fprintf(&b, "Room: %s\n", c.ctx.RoomDescription)
	inv := "empty"
	if len(c.ctx.Inventory) > 0 {
		inv = strings.Join(c.ctx.Inventory, ", ")
	}
	fmt.Fprintf(&b, "Inventory: %s\n", inv)
	if len(c.ctx.ItemStates) > 0 {
		fmt.Fprintf(&b, "Item states: %s\n", formatStates(c.ctx.ItemStates))
	}
	if len(c.ctx.NPCStates) > 0 {
		fmt.Fprintf(&b, "NPC states: %s\n", formatStates(c.ctx.NPCStates))
	}
	if len(c.ctx.RecentCommands) > 0 {
		fmt.Fprintf(&b, "Recent commands: %s\n", strings.Join(c.ctx.RecentCommands, "; "))
	}
	b.WriteString(`Respond with JSON {"confidence": <confidence>, "verb": "<verb>", "object": "<noun1>", "additional": "<noun2>"} and nothing else.`)
	return b.String()
}

func formatStates(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+m[k])
	}
	return strings.Join(parts, ", ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
