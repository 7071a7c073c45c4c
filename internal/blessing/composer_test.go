package blessing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chengmaomao/sendblessings/internal/blessing"
)

type fakeGenerator struct {
	text string
	err  error

	gotSystem string
	gotPrompt string
}

func (f *fakeGenerator) GenerateText(_ context.Context, systemInstruction, prompt string) (string, error) {
	f.gotSystem = systemInstruction
	f.gotPrompt = prompt
	return f.text, f.err
}

func TestComposeUsesLLMText(t *testing.T) {
	t.Parallel()

	llm := &fakeGenerator{text: "  新春快乐，阖家幸福，万事如意，恭贺新禧！  "}
	c := blessing.NewComposer(llm, time.Second, nil)

	got := c.Compose(context.Background(), "春节")
	if got != "新春快乐，阖家幸福，万事如意，恭贺新禧！" {
		t.Errorf("Compose() = %q, want trimmed LLM text", got)
	}
	if llm.gotSystem != blessing.SystemInstruction {
		t.Errorf("system instruction = %q, want the composer's instruction", llm.gotSystem)
	}
}

func TestComposeFallsBackToTemplate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		llm  blessing.TextGenerator
	}{
		{name: "nil llm", llm: nil},
		{name: "llm error", llm: &fakeGenerator{err: errors.New("quota exceeded")}},
		{name: "llm text too short", llm: &fakeGenerator{text: "新年好"}},
		{name: "llm blank text", llm: &fakeGenerator{text: "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := blessing.NewComposer(tt.llm, time.Second, nil)
			got := c.Compose(context.Background(), "中秋节")

			if got == "" {
				t.Fatal("Compose() returned empty text")
			}
			if got != blessing.Template("中秋节") {
				t.Errorf("Compose() = %q, want template text", got)
			}
		})
	}
}

func TestTemplateMatching(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		holiday string
	}{
		{name: "exact name", holiday: "春节"},
		{name: "name with suffix", holiday: "春节调休"},
		{name: "unknown holiday uses generic text", holiday: "程序员节"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := blessing.Template(tt.holiday); got == "" {
				t.Errorf("Template(%q) returned empty text", tt.holiday)
			}
		})
	}

	if blessing.Template("春节") == blessing.Template("程序员节") {
		t.Error("known holiday should not fall through to the generic template")
	}
}
