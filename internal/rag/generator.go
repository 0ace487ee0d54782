package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/pharmaqa/rag-engine/internal/models"
	"github.com/pharmaqa/rag-engine/pkg/tokenizer"
)

// Completer is the external chat-completion collaborator. The engine
// sends one assembled prompt and takes the generated text as-is;
// failures propagate to the caller without retries at this layer.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const (
	// contextCharLimit bounds the excerpt block embedded in the prompt.
	// Overflow is cut from the end and marked, never silently dropped.
	contextCharLimit = 8000
	contextDelimiter = "\n\n---\n\n"
	truncationMarker = "\n[...truncated]"

	// strongMatchCutoff is the score above which a result counts as a
	// high-confidence match in the source footer.
	strongMatchCutoff = 0.8
)

// Generator grounds answers in retrieved chunks: it assembles the
// excerpt context, delegates prose to the Completer, and appends the
// source-attribution footer.
type Generator struct {
	completer Completer
}

func NewGenerator(c Completer) *Generator {
	return &Generator{completer: c}
}

type Answer struct {
	Answer   string                `json:"answer"`
	Sources  []models.SearchResult `json:"sources"`
	Metadata AnswerMetadata        `json:"metadata"`
}

// AnswerMetadata summarizes the retrieval behind an answer.
type AnswerMetadata struct {
	SourceCount  int     `json:"sourceCount"`
	AverageScore float64 `json:"averageScore"`
	PromptTokens int     `json:"promptTokens"`
}

// Generate produces a grounded answer from ranked search results. With
// no results the question goes to the collaborator bare, with no
// context framing and no footer.
func (g *Generator) Generate(ctx context.Context, question string, results []models.SearchResult) (*Answer, error) {
	if len(results) == 0 {
		text, err := g.completer.Complete(ctx, question)
		if err != nil {
			return nil, fmt.Errorf("generate answer: %w", err)
		}
		return &Answer{
			Answer:  text,
			Sources: []models.SearchResult{},
			Metadata: AnswerMetadata{
				PromptTokens: tokenizer.EstimateTokens(question),
			},
		}, nil
	}

	prompt := buildPrompt(question, buildContext(results))
	text, err := g.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &Answer{
		Answer:  text + sourcesFooter(results),
		Sources: results,
		Metadata: AnswerMetadata{
			SourceCount:  countDistinctDocuments(results),
			AverageScore: averageScore(results),
			PromptTokens: tokenizer.EstimateTokens(prompt),
		},
	}, nil
}

// buildContext concatenates each result's source name and text,
// bounded by contextCharLimit runes.
func buildContext(results []models.SearchResult) string {
	entries := make([]string, len(results))
	for i, r := range results {
		entries[i] = fmt.Sprintf("[%s]\n%s", r.Filename, r.Text)
	}

	block := strings.Join(entries, contextDelimiter)
	if runes := []rune(block); len(runes) > contextCharLimit {
		block = string(runes[:contextCharLimit]) + truncationMarker
	}
	return block
}

func buildPrompt(question, contextBlock string) string {
	return fmt.Sprintf(`You are a quality-assurance assistant for pharmaceutical documentation. Answer the question using only the document excerpts below. Quote batch numbers, limits, and procedure identifiers exactly as written. If the excerpts do not contain the answer, say so and name what is missing.

Document excerpts:
%s

Question: %s

Answer:`, contextBlock, question)
}

// sourcesFooter lists each contributing document once, in rank order
// of its first chunk, with the average similarity of its chunks.
func sourcesFooter(results []models.SearchResult) string {
	type docAgg struct {
		name  string
		total float64
		count int
	}

	byDoc := make(map[string]*docAgg)
	var order []string
	strong := 0
	for _, r := range results {
		agg, ok := byDoc[r.DocumentID]
		if !ok {
			agg = &docAgg{name: r.Filename}
			byDoc[r.DocumentID] = agg
			order = append(order, r.DocumentID)
		}
		agg.total += r.Score
		agg.count++
		if r.Score > strongMatchCutoff {
			strong++
		}
	}

	var b strings.Builder
	b.WriteString("\n\n---\nSources referenced:\n")
	for _, id := range order {
		agg := byDoc[id]
		fmt.Fprintf(&b, "- %s (average similarity %.2f)\n", agg.name, agg.total/float64(agg.count))
	}
	fmt.Fprintf(&b, "Strong matches (similarity > %.2f): %d", strongMatchCutoff, strong)
	return b.String()
}

func countDistinctDocuments(results []models.SearchResult) int {
	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		seen[r.DocumentID] = struct{}{}
	}
	return len(seen)
}

func averageScore(results []models.SearchResult) float64 {
	if len(results) == 0 {
		return 0
	}
	total := 0.0
	for _, r := range results {
		total += r.Score
	}
	return total / float64(len(results))
}
