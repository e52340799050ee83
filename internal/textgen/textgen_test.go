package textgen

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeGenerator struct {
	response string
	err      error
	calls    int
}

func (f *fakeGenerator) Generate(_ context.Context, _, _ string) (string, error) {
	f.calls++
	return f.response, f.err
}

func TestCleanupPage(t *testing.T) {
	ctx := context.Background()

	t.Run("successful cleanup", func(t *testing.T) {
		gen := &fakeGenerator{response: "A vida não examinada não vale a pena ser vivida."}
		got, cleaned := CleanupPage(ctx, gen, "A vida nao exam1nada...", 12)
		if !cleaned {
			t.Fatal("expected cleanup to apply")
		}
		if got != gen.response {
			t.Errorf("got %q", got)
		}
	})

	t.Run("generator error falls back to original", func(t *testing.T) {
		gen := &fakeGenerator{err: errors.New("boom")}
		original := "raw ocr text"
		got, cleaned := CleanupPage(ctx, gen, original, 1)
		if cleaned || got != original {
			t.Errorf("expected original back, got %q (cleaned=%v)", got, cleaned)
		}
	})

	t.Run("nil generator is a no-op", func(t *testing.T) {
		got, cleaned := CleanupPage(ctx, nil, "text", 1)
		if cleaned || got != "text" {
			t.Errorf("nil generator must pass text through")
		}
	})

	t.Run("blank page skipped", func(t *testing.T) {
		gen := &fakeGenerator{response: "should not be called"}
		_, cleaned := CleanupPage(ctx, gen, "   \n ", 1)
		if cleaned || gen.calls != 0 {
			t.Error("blank pages must not reach the generator")
		}
	})

	t.Run("oversized page skipped", func(t *testing.T) {
		gen := &fakeGenerator{response: "x"}
		huge := strings.Repeat("a", maxCleanupChars+1)
		got, cleaned := CleanupPage(ctx, gen, huge, 1)
		if cleaned || got != huge || gen.calls != 0 {
			t.Error("oversized pages must not reach the generator")
		}
	})

	t.Run("empty response falls back", func(t *testing.T) {
		gen := &fakeGenerator{response: "  \n"}
		got, cleaned := CleanupPage(ctx, gen, "original", 1)
		if cleaned || got != "original" {
			t.Error("empty completions must not replace the page")
		}
	})
}

func TestCleanupPrompt(t *testing.T) {
	p := CleanupPrompt("some text", 42)
	if !strings.Contains(p, "Page 42") || !strings.Contains(p, "some text") {
		t.Errorf("prompt missing parts: %q", p)
	}
}

func TestNewOpenAIClientDefaults(t *testing.T) {
	c := NewOpenAIClient(OpenAIConfig{APIKey: "test"})
	if c.model != "gpt-4o-mini" {
		t.Errorf("unexpected default model: %q", c.model)
	}
	if c.retries != 3 {
		t.Errorf("unexpected default retries: %d", c.retries)
	}
}
