package locations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const neighborsSystemPrompt = "You are a Brazilian geography assistant. You list municipalities accurately and respond with strict JSON only."

// maxModelNeighbors caps how many names are kept from one model reply
const maxModelNeighbors = 15

// AnthropicMessager is the subset of the Anthropic client the resolver uses
type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicResolver asks a model for the municipalities around a city
type AnthropicResolver struct {
	messages AnthropicMessager
	model    anthropic.Model
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewAnthropicResolver creates a resolver backed by the Anthropic API
func NewAnthropicResolver(apiKey, model string, logger *zap.Logger) (*AnthropicResolver, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("anthropic api key not configured")
	}
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return NewAnthropicResolverWithClient(&c.Messages, model, logger), nil
}

// NewAnthropicResolverWithClient creates a resolver around an existing client
func NewAnthropicResolverWithClient(messages AnthropicMessager, model string, logger *zap.Logger) *AnthropicResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if model == "" {
		model = string(anthropic.ModelClaudeSonnet4_20250514)
	}
	return &AnthropicResolver{
		messages: messages,
		model:    anthropic.Model(model),
		// two requests per second, small burst
		limiter: rate.NewLimiter(rate.Limit(2), 4),
		logger:  logger,
	}
}

// NeighboringLocations returns model-suggested neighbors, excluding the city
// itself. A malformed reply is an error.
func (r *AnthropicResolver) NeighboringLocations(ctx context.Context, city, state string) ([]string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("neighbor lookup rate limited: %w", err)
	}

	prompt := fmt.Sprintf(
		"List up to %d municipalities that border or are closest to %s, in the Brazilian state %s. "+
			"Only include municipalities in the same state. "+
			"Respond with only a JSON array of municipality names, for example [\"Name A\", \"Name B\"].",
		maxModelNeighbors, city, state)

	resp, err := r.messages.New(ctx, anthropic.MessageNewParams{
		Model:       r.model,
		MaxTokens:   512,
		System:      []anthropic.TextBlockParam{{Text: neighborsSystemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(0),
	})
	if err != nil {
		return nil, fmt.Errorf("neighbor lookup failed: %w", err)
	}

	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}

	names, err := parseNeighborList(sb.String())
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		key := strings.ToLower(n)
		if n == "" || strings.EqualFold(n, city) {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, n)
		if len(out) == maxModelNeighbors {
			break
		}
	}

	r.logger.Debug("Model neighbor lookup",
		zap.String("city", city),
		zap.String("state", state),
		zap.Int("neighbors", len(out)))

	return out, nil
}

func parseNeighborList(raw string) ([]string, error) {
	clean := stripCodeFences(raw)
	if clean == "" {
		return nil, errors.New("neighbor lookup returned an empty response")
	}
	var names []string
	if err := json.Unmarshal([]byte(clean), &names); err != nil {
		return nil, fmt.Errorf("neighbor lookup returned invalid json: %w", err)
	}
	return names, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		parts := strings.SplitN(s, "\n", 2)
		if len(parts) == 2 {
			s = parts[1]
		}
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}
