package llm

import (
	"context"
	"fmt"
	"strings"
)

const cleanupSystemPrompt = "You are a helpful assistant that cleans up transcriptions. " +
	"Return only the cleaned text, no explanations."

// CleanTranscript asks a low-cost chat model to fix capitalization,
// punctuation, and obvious word errors in a finished transcript. On failure
// the original text is returned unchanged alongside the error, so callers
// can always use the result.
func (c *Completer) CleanTranscript(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf(`Please clean up this transcription by:
1. Fixing capitalization errors
2. Adding proper punctuation
3. Correcting obvious word errors
4. Maintaining the original meaning and tone

Transcription to clean:
%s

Cleaned version:`, text)

	cleaned, err := c.Complete(ctx, []Message{
		{Role: "system", Content: cleanupSystemPrompt},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return text, fmt.Errorf("clean transcript: %w", err)
	}

	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return text, nil
	}
	return cleaned, nil
}
