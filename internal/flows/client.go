// Package flows calls the hosted generative model for the three judgements
// the platform relies on: harmful content classification, sentiment and bias
// analysis, and trust score suggestions. Every call asks for JSON that
// matches a response schema and is throttled by a shared limiter.
package flows

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwise1/clarity/internal/metrics"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// generator is the slice of the genai Models service the flows use.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Client struct {
	models  generator
	model   string
	limiter *rate.Limiter
	logger  *zap.SugaredLogger
}

type Options struct {
	APIKey            string
	Model             string
	RequestsPerSecond float64
}

func New(ctx context.Context, opts Options, logger *zap.SugaredLogger) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.New("genai api key is required")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating genai client")
	}
	return newClient(gc.Models, opts, logger), nil
}

func newClient(models generator, opts Options, logger *zap.SugaredLogger) *Client {
	model := opts.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		models:  models,
		model:   model,
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		logger:  logger,
	}
}

// generateJSON sends one prompt and decodes the model's JSON answer into out.
func (c *Client) generateJSON(ctx context.Context, flow, system, prompt string, schema *genai.Schema, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		metrics.FlowRequests.WithLabelValues(flow, "throttled").Inc()
		return errors.Wrapf(err, "%s: waiting for rate limiter", flow)
	}

	start := time.Now()
	temperature := float32(0)
	resp, err := c.models.GenerateContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
			Temperature:       &temperature,
			ResponseMIMEType:  "application/json",
			ResponseSchema:    schema,
		},
	)
	metrics.FlowDuration.WithLabelValues(flow).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FlowRequests.WithLabelValues(flow, "error").Inc()
		return errors.Wrapf(err, "%s: generate content", flow)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		metrics.FlowRequests.WithLabelValues(flow, "empty").Inc()
		return errors.Errorf("%s: empty model response", flow)
	}
	if err := json.Unmarshal([]byte(stripFence(text)), out); err != nil {
		metrics.FlowRequests.WithLabelValues(flow, "malformed").Inc()
		c.logger.Warnw("unparseable flow response", "flow", flow, "response", text)
		return errors.Wrapf(err, "%s: decoding model response", flow)
	}
	metrics.FlowRequests.WithLabelValues(flow, "ok").Inc()
	return nil
}

// stripFence removes a markdown code fence some models wrap JSON in even when
// asked for application/json.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
