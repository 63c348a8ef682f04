package ai

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type stubCompleter struct {
	mu        sync.Mutex
	responses []stubResponse
	prompts   []string
	tokens    []int
}

type stubResponse struct {
	text  string
	err   error
	delay time.Duration
}

func (s *stubCompleter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.tokens = append(s.tokens, maxTokens)
	if len(s.responses) == 0 {
		s.mu.Unlock()
		return "", errors.New("unexpected call")
	}
	res := s.responses[0]
	s.responses = s.responses[1:]
	s.mu.Unlock()

	if res.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(res.delay):
		}
	}
	return res.text, res.err
}

func (s *stubCompleter) Provider() string { return "stub" }

func (s *stubCompleter) Model() string { return "stub-model" }

func TestAnalystGenerate(t *testing.T) {
	stub := &stubCompleter{responses: []stubResponse{
		{text: "  Both sides want a quick close.  "},
		{text: "```json\n{\"structures\":[{\"name\":\"Seller financing\",\"howItWorks\":\"Owner carries the note\",\"keyTerms\":[\"5% rate\", 10],\"risks\":\"default\",\"nextSteps\":[\"call\"]},{\"howItWorks\":\"nameless\"}]}\n```"},
	}}
	analyst := NewAnalyst(stub, AnalystConfig{RationaleMaxTokens: 100, StructuresMaxTokens: 200}, zap.NewNop())

	out := analyst.Generate(context.Background(), "Duplex: two units", "Buyer: cash ready")

	if out.Text != "Both sides want a quick close." {
		t.Fatalf("unexpected rationale %q", out.Text)
	}
	if len(out.Structures.Structures) != 1 {
		t.Fatalf("expected 1 structure, got %+v", out.Structures)
	}

	s := out.Structures.Structures[0]
	if s.Name != "Seller financing" || s.HowItWorks != "Owner carries the note" {
		t.Fatalf("unexpected structure %+v", s)
	}
	if len(s.KeyTerms) != 2 || s.KeyTerms[1] != "10" {
		t.Fatalf("unexpected key terms %+v", s.KeyTerms)
	}
	if len(s.Risks) != 1 || s.Risks[0] != "default" {
		t.Fatalf("expected single string to be coerced into a list, got %+v", s.Risks)
	}

	if len(stub.prompts) != 2 {
		t.Fatalf("expected 2 completions, got %d", len(stub.prompts))
	}
	for _, prompt := range stub.prompts {
		if !strings.Contains(prompt, "Duplex: two units") || !strings.Contains(prompt, "Buyer: cash ready") {
			t.Fatalf("expected summaries in prompt: %s", prompt)
		}
		if strings.Contains(prompt, "{{") {
			t.Fatalf("unreplaced placeholder in prompt: %s", prompt)
		}
	}
	if stub.tokens[0] != 100 || stub.tokens[1] != 200 {
		t.Fatalf("unexpected token limits %+v", stub.tokens)
	}
}

func TestAnalystDegrades(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		responses      []stubResponse
		wantText       string
		wantCalls      int
		wantStructures int
	}{
		{
			name:      "rationale error",
			responses: []stubResponse{{err: errors.New("boom")}},
			wantText:  FallbackRationale,
			wantCalls: 1,
		},
		{
			name:      "rationale empty",
			responses: []stubResponse{{text: "   "}},
			wantText:  FallbackRationale,
			wantCalls: 1,
		},
		{
			name:      "rationale timeout",
			responses: []stubResponse{{text: "late", delay: time.Second}},
			wantText:  FallbackRationale,
			wantCalls: 1,
		},
		{
			name:      "structures error",
			responses: []stubResponse{{text: "fits"}, {err: errors.New("quota")}},
			wantText:  "fits",
			wantCalls: 2,
		},
		{
			name:      "structures not json",
			responses: []stubResponse{{text: "fits"}, {text: "I would suggest a lease option."}},
			wantText:  "fits",
			wantCalls: 2,
		},
		{
			name:      "structures wrong shape",
			responses: []stubResponse{{text: "fits"}, {text: `{"ideas": []}`}},
			wantText:  "fits",
			wantCalls: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			stub := &stubCompleter{responses: tt.responses}
			analyst := NewAnalyst(stub, AnalystConfig{Timeout: 50 * time.Millisecond}, zap.NewNop())

			out := analyst.Generate(context.Background(), "have", "want")
			if out.Text != tt.wantText {
				t.Fatalf("expected %q, got %q", tt.wantText, out.Text)
			}
			if out.Structures.Structures == nil || len(out.Structures.Structures) != tt.wantStructures {
				t.Fatalf("expected empty non-nil structures, got %+v", out.Structures)
			}
			if len(stub.prompts) != tt.wantCalls {
				t.Fatalf("expected %d calls, got %d", tt.wantCalls, len(stub.prompts))
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"{\"a\":1}":               "{\"a\":1}",
		"```json\n{\"a\":1}\n```": "{\"a\":1}",
		"```\n{\"a\":1}\n```":     "{\"a\":1}",
		"  `{\"a\":1}`  ":         "{\"a\":1}",
	}

	for input, want := range tests {
		if got := extractJSON(input); got != want {
			t.Fatalf("extractJSON(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestDisabledGenerator(t *testing.T) {
	out := Disabled{}.Generate(context.Background(), "a", "b")
	if out.Text != FallbackRationale || out.Structures.Structures == nil {
		t.Fatalf("unexpected disabled rationale %+v", out)
	}
}

func TestBuildPromptKeepsPlaceholdersInSummaries(t *testing.T) {
	t.Parallel()

	got := buildPrompt("H={{HAVE_SUMMARY}}; W={{WANT_SUMMARY}}", "Farm: ask {{WANT_SUMMARY}}", " Buyer: cash ")
	want := "H=Farm: ask {{WANT_SUMMARY}}; W=Buyer: cash"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
