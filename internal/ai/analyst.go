package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	_ "embed"

	"github.com/spigell/havewant/internal/domain"
	"github.com/spigell/havewant/internal/logger"
	"github.com/spigell/havewant/internal/utils"
	"go.uber.org/zap"
)

//go:embed prompts/rationale.md
var rationaleTemplate string

//go:embed prompts/structures.md
var structuresTemplate string

const (
	defaultTimeout             = 20 * time.Second
	defaultRationaleMaxTokens  = 1024
	defaultStructuresMaxTokens = 2048
	defaultMaxLogLength        = 200
)

// AnalystConfig tunes the calls made by the Analyst.
type AnalystConfig struct {
	Timeout             time.Duration
	RationaleMaxTokens  int
	StructuresMaxTokens int
	MaxLogLength        int
}

// Analyst produces match rationales with two independent completions: a prose
// explanation and a JSON list of deal structures.
type Analyst struct {
	completer Completer
	cfg       AnalystConfig
	logger    *zap.Logger
}

func NewAnalyst(completer Completer, cfg AnalystConfig, log *zap.Logger) *Analyst {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RationaleMaxTokens <= 0 {
		cfg.RationaleMaxTokens = defaultRationaleMaxTokens
	}
	if cfg.StructuresMaxTokens <= 0 {
		cfg.StructuresMaxTokens = defaultStructuresMaxTokens
	}
	if cfg.MaxLogLength <= 0 {
		cfg.MaxLogLength = defaultMaxLogLength
	}

	return &Analyst{
		completer: completer,
		cfg:       cfg,
		logger:    logger.WithProvider(log, completer.Provider(), completer.Model()),
	}
}

// Generate never fails. A rationale failure yields the fallback text and skips
// the structures call; a structures failure yields empty structures only.
func (a *Analyst) Generate(ctx context.Context, haveSummary, wantSummary string) *Rationale {
	text, err := a.complete(ctx, "rationale", buildPrompt(rationaleTemplate, haveSummary, wantSummary), a.cfg.RationaleMaxTokens)
	if err != nil {
		a.logger.Warn("rationale generation failed, using fallback", zap.Error(err))
		return Fallback()
	}

	out := &Rationale{Text: text, Structures: domain.EmptyStructures()}

	raw, err := a.complete(ctx, "structures", buildPrompt(structuresTemplate, haveSummary, wantSummary), a.cfg.StructuresMaxTokens)
	if err != nil {
		a.logger.Warn("structures generation failed, leaving them empty", zap.Error(err))
		return out
	}

	structures, err := parseStructures(raw)
	if err != nil {
		a.logger.Warn("structures response is not valid json, leaving them empty",
			zap.Error(err),
			zap.String("response_preview", utils.TruncateForLog(raw, a.cfg.MaxLogLength)),
		)
		return out
	}

	out.Structures = structures
	return out
}

func (a *Analyst) complete(ctx context.Context, kind, prompt string, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	a.logger.Debug("generate content request",
		zap.String("kind", kind),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, a.cfg.MaxLogLength)),
	)

	raw, err := a.completer.Complete(ctx, prompt, maxTokens)
	if err != nil {
		return "", fmt.Errorf("%s: %w", kind, err)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%s: empty response", kind)
	}

	a.logger.Debug("generate content response",
		zap.String("kind", kind),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, a.cfg.MaxLogLength)),
	)

	return raw, nil
}

func buildPrompt(template, haveSummary, wantSummary string) string {
	if strings.TrimSpace(template) == "" {
		template = "HAVE:\n{{HAVE_SUMMARY}}\n\nWANT:\n{{WANT_SUMMARY}}\n"
	}
	// one pass, so placeholders inside a summary stay literal
	return strings.NewReplacer(
		"{{HAVE_SUMMARY}}", strings.TrimSpace(haveSummary),
		"{{WANT_SUMMARY}}", strings.TrimSpace(wantSummary),
	).Replace(template)
}

func parseStructures(raw string) (domain.Structures, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return domain.Structures{}, fmt.Errorf("parse structures: %w", err)
	}

	items, ok := data["structures"].([]any)
	if !ok {
		return domain.Structures{}, errors.New("parse structures: missing structures array")
	}

	out := domain.EmptyStructures()
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name := coerceString(entry["name"])
		if name == "" {
			continue
		}
		out.Structures = append(out.Structures, domain.DealStructure{
			Name:       name,
			HowItWorks: coerceString(entry["howItWorks"]),
			KeyTerms:   coerceStrings(entry["keyTerms"]),
			Risks:      coerceStrings(entry["risks"]),
			NextSteps:  coerceStrings(entry["nextSteps"]),
		})
	}

	return out, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

func coerceStrings(v any) []string {
	out := []string{}
	switch val := v.(type) {
	case []any:
		for _, item := range val {
			if s := coerceString(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		if s := strings.TrimSpace(val); s != "" {
			out = append(out, s)
		}
	}
	return out
}
