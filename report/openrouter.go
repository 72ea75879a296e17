package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"

	auth "github.com/goliatone/go-report-auth"
)

const (
	DefaultBaseURL     = "https://openrouter.ai/api/v1"
	DefaultModel       = "nvidia/llama-3.1-nemotron-70b-instruct:free"
	DefaultTimeout     = 60 * time.Second
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2000
)

// htmlPreamble is prepended to every prompt so the model answers with
// markup the editor can render as is.
const htmlPreamble = `Crie um conteúdo bem estruturado com títulos, subtítulos e parágrafos. Todos os elementos precisam ser formatados em HTML.
O conteúdo gerado deve ser claro, com destaque para termos importantes, utilizando tags HTML como <h1>, <h2>, <p>, <strong>, <em>, etc.
Em caso de gerar algum texto com alguma cor, use sempre este formato <span style="color: cor desejada"> mas com a cor que for definida abaixo.
Aqui está o prompt do usuário:
`

// Generator turns a prompt into a report
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// OpenRouterConfig holds the upstream settings
type OpenRouterConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	SiteURL     string
	SiteName    string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// OpenRouterClient calls the chat completions endpoint of an OpenAI
// compatible API.
type OpenRouterClient struct {
	cfg    OpenRouterConfig
	logger auth.Logger
}

var _ Generator = (*OpenRouterClient)(nil)

type Option func(*OpenRouterClient)

// WithLogger sets the client logger
func WithLogger(logger auth.Logger) Option {
	return func(c *OpenRouterClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewOpenRouterClient(cfg OpenRouterConfig, opts ...Option) *OpenRouterClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}

	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	c := &OpenRouterClient{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}

	_, c.logger = auth.ResolveLogger("report", nil, c.logger)

	return c
}

// Generate sends the prompt, wrapped in the HTML instructions, and
// returns the content of the first choice.
func (c *OpenRouterClient) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", auth.NewUpstreamError(err, "report request cancelled")
	}

	timeout := c.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	url := c.cfg.BaseURL + "/chat/completions"

	agent := fiber.Post(url).
		Set(fiber.HeaderAuthorization, "Bearer "+c.cfg.APIKey).
		Set("HTTP-Referer", c.cfg.SiteURL).
		Set("X-Title", c.cfg.SiteName).
		Timeout(timeout).
		JSON(chatRequest{
			Model: c.cfg.Model,
			Messages: []chatMessage{
				{Role: "user", Content: htmlPreamble + prompt},
			},
			Temperature: c.cfg.Temperature,
			MaxTokens:   c.cfg.MaxTokens,
		})

	if err := agent.Parse(); err != nil {
		return "", auth.NewUpstreamError(err, "invalid report upstream url").
			WithMetadata(map[string]any{"url": url})
	}

	var res chatResponse
	status, body, errs := agent.Struct(&res)

	if status != 0 && (status < fiber.StatusOK || status >= fiber.StatusMultipleChoices) {
		c.logger.Error("report upstream status", "status", status, "body", truncate(string(body), 512))
		return "", auth.NewUpstreamError(nil, "report upstream answered with an error").
			WithMetadata(map[string]any{"status": status, "model": c.cfg.Model})
	}

	if len(errs) > 0 {
		c.logger.Error("report upstream request failed", "errors", errs)
		return "", auth.NewUpstreamError(errs[0], "report upstream request failed").
			WithMetadata(map[string]any{"model": c.cfg.Model})
	}

	if len(res.Choices) == 0 {
		c.logger.Error("report upstream returned no choices", "body", truncate(string(body), 512))
		return "", auth.NewUpstreamError(nil, "unexpected report response format").
			WithMetadata(map[string]any{"model": c.cfg.Model})
	}

	return res.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s... (%d bytes)", s[:n], len(s))
}

// IsUpstreamError reports whether err came from the report upstream
func IsUpstreamError(err error) bool {
	var richErr *errors.Error
	return errors.As(err, &richErr) && richErr.TextCode == auth.TextCodeUpstream
}
