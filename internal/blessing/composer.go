// Package blessing composes festive blessing messages. It prefers an
// LLM-generated text grounded in holiday customs and falls back to static
// templates, so composition never fails.
package blessing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// TextGenerator produces text from a system instruction and a prompt. The
// Gemini client implements it; tests substitute fakes.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemInstruction, prompt string) (string, error)
}

// Composer builds blessing texts for holidays.
type Composer struct {
	llm     TextGenerator
	timeout time.Duration
	log     *slog.Logger
}

// NewComposer creates a composer. llm may be nil, in which case every
// blessing comes from the template set.
func NewComposer(llm TextGenerator, timeout time.Duration, log *slog.Logger) *Composer {
	if log == nil {
		log = slog.Default()
	}
	return &Composer{
		llm:     llm,
		timeout: timeout,
		log:     log.With("component", "blessing_composer"),
	}
}

// Compose returns a blessing for the holiday. LLM failures degrade to the
// template text; the caller always receives usable text.
func (c *Composer) Compose(ctx context.Context, holidayName string) string {
	if c.llm == nil {
		return Template(holidayName)
	}

	llmCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	text, err := c.llm.GenerateText(llmCtx, SystemInstruction, fmt.Sprintf(promptTemplate, holidayName))
	if err != nil {
		c.log.WarnContext(ctx, "LLM blessing generation failed, using template", "holiday", holidayName, "error", err)
		return Template(holidayName)
	}

	text = strings.TrimSpace(text)
	if len([]rune(text)) < 10 {
		c.log.WarnContext(ctx, "LLM blessing too short, using template", "holiday", holidayName, "length", len([]rune(text)))
		return Template(holidayName)
	}

	return text
}
