// Package tokenizer estimates LLM token counts without a model-specific
// vocabulary. Estimates guide prompt budgeting and chunk sizing; exact
// counts are the provider's business.
package tokenizer

import "strings"

// EstimateTokens approximates the token count of English-like text.
// Subword splitting inflates the word count by roughly a third, so the
// estimate is 4 tokens per 3 words, never less than 1.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	return max(words*4/3, 1)
}
