package report

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"

	auth "github.com/goliatone/go-report-auth"
)

const (
	msgPromptRequired = "O prompt é obrigatório."
	msgReportFailed   = "Erro ao gerar o relatório. Tente novamente mais tarde."
)

// GenerateReportPayload is the request body of the report route
type GenerateReportPayload struct {
	Prompt string `json:"prompt"`
}

func (p GenerateReportPayload) Validate() error {
	p.Prompt = strings.TrimSpace(p.Prompt)
	return validation.ValidateStruct(&p,
		validation.Field(&p.Prompt, validation.Required),
	)
}

// Controller serves the report routes
type Controller struct {
	Debug     bool
	Path      string
	Generator Generator
	Logger    auth.Logger
}

type ControllerOption func(*Controller)

func WithControllerLogger(logger auth.Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

func WithDebug(debug bool) ControllerOption {
	return func(c *Controller) {
		c.Debug = debug
	}
}

// WithPath overrides the route path
func WithPath(path string) ControllerOption {
	return func(c *Controller) {
		if path != "" {
			c.Path = path
		}
	}
}

func NewController(gen Generator, opts ...ControllerOption) *Controller {
	if gen == nil {
		panic("Missing Generator in report controller...")
	}

	c := &Controller{
		Path:      "/generate-report",
		Generator: gen,
	}

	for _, opt := range opts {
		opt(c)
	}

	_, c.Logger = auth.ResolveLogger("report:http", nil, c.Logger)

	return c
}

// RegisterRoutes mounts the controller routes. Extra middleware, usually
// the protected route check, runs before the handler.
func RegisterRoutes[T any](r router.Router[T], c *Controller, mw ...router.MiddlewareFunc) *Controller {
	r.Post(c.Path, c.GenerateReport, mw...).SetName("generate-report.post")
	return c
}

func (c *Controller) GenerateReport(ctx router.Context) error {
	payload := new(GenerateReportPayload)

	if err := ctx.Bind(payload); err != nil {
		return c.respondError(ctx, auth.NewValidationError(msgPromptRequired, err))
	}

	if err := payload.Validate(); err != nil {
		return c.respondError(ctx, auth.NewValidationError(msgPromptRequired, err))
	}

	if c.Debug {
		c.Logger.Debug("payload generate report", "body", print.MaybePrettyJSON(payload))
	}

	report, err := c.Generator.Generate(ctx.Context(), payload.Prompt)
	if err != nil {
		return c.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"report": report,
	})
}

func (c *Controller) respondError(ctx router.Context, err error) error {
	status, body := auth.ErrorResponse(err, msgReportFailed)
	if status >= router.StatusInternalServerError {
		c.Logger.Error("generate report failed", "path", ctx.OriginalURL(), "error", err)
	} else {
		c.Logger.Info("generate report rejected", "path", ctx.OriginalURL(), "status", status)
	}
	return ctx.JSON(status, body)
}
