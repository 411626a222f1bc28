package prompt

import (
	"errors"
	"strings"

	"github.com/kalambet/journal-ai/internal/provider"
)

// ErrEmptyInput indicates the raw text is empty or whitespace only.
var ErrEmptyInput = errors.New("empty input")

const systemPrompt = `You are a journal editor. You receive a raw note written by the user and turn it into a journal entry. Your output must be ONLY a single valid JSON object of this exact shape, with no other text, prose, or markdown:

{"title": "Short descriptive title", "content": "Cleaned up text", "tags": ["tag1", "tag2"]}

Rules:
- NEVER translate the text. Keep the exact language of the input.
- NEVER add information, commentary, or summaries that are not in the original.
- ONLY fix spelling and grammar mistakes and improve sentence structure and formatting (paragraphs, bullet points where they help).
- Keep all of the original meaning and content.
- "title": 3 to 8 words describing the note.
- "content": the cleaned up version of the input.
- "tags": 0 to 5 short lowercase keywords taken from the content.`

const reinforcement = `

IMPORTANT: your previous answer could not be used. Reply with the JSON object only. It must start with { and end with }, and "title" and "content" must be non-empty strings.`

// Build turns raw input into a structuring request. The trimmed text is the
// user message verbatim; the system instruction is fixed, so equal input
// always yields an equal request.
func Build(raw string, hint provider.ID) (provider.Request, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return provider.Request{}, ErrEmptyInput
	}
	return provider.Request{
		RawText: text,
		Hint:    hint,
		System:  systemPrompt,
		User:    text,
	}, nil
}

// Reinforce returns a copy of req whose system instruction insists on the
// output shape. It is used to re-ask a provider whose answer did not parse.
// Reinforcing an already reinforced request returns it unchanged.
func Reinforce(req provider.Request) provider.Request {
	if req.Reinforced {
		return req
	}
	req.System += reinforcement
	req.Reinforced = true
	return req
}
