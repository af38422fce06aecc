package synthesis

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	"github.com/siherrmann/docqa/model"
)

const systemInstruction = `You are an assistant answering questions about a single document.
Answer using ONLY the document excerpts below. Do not use outside knowledge.
Cite the pages you used in the form [page N] directly in your answer.
If the excerpts do not contain enough information to answer, say so explicitly instead of guessing.
Answer in the same language as the question.`

// PromptBuilder assembles the generation prompt from retrieved excerpts and
// recent conversation history.
type PromptBuilder struct {
	historyTurns       int
	historyTokenBudget int
	encoding           *tiktoken.Tiktoken
}

// NewPromptBuilder creates a prompt builder. Token counting uses the
// cl100k_base encoding and falls back to a character estimate when the
// encoding is unavailable offline.
func NewPromptBuilder(historyTurns int, historyTokenBudget int) *PromptBuilder {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		encoding = nil
	}
	return &PromptBuilder{
		historyTurns:       historyTurns,
		historyTokenBudget: historyTokenBudget,
		encoding:           encoding,
	}
}

// Build renders the full prompt for one question. Excerpts are tagged with
// their page numbers so the model can cite them, history is included oldest
// first and bounded by both turn count and token budget.
func (b *PromptBuilder) Build(question string, results []*model.RetrievalResult, history []model.ConversationTurn) string {
	var builder strings.Builder

	builder.WriteString(systemInstruction)
	builder.WriteString("\n\nDocument excerpts:\n")
	for _, result := range results {
		builder.WriteString(fmt.Sprintf("\n%s\n%s\n", pageTag(result.Chunk.Pages), result.Chunk.Content))
	}

	if turns := b.boundedHistory(history); len(turns) > 0 {
		builder.WriteString("\nConversation so far:\n")
		for _, turn := range turns {
			builder.WriteString(fmt.Sprintf("User: %s\nAssistant: %s\n", turn.Question, turn.Answer))
		}
	}

	builder.WriteString(fmt.Sprintf("\nQuestion: %s\nAnswer:", question))
	return builder.String()
}

// boundedHistory returns the most recent turns, oldest first, limited by
// the turn count and dropping oldest turns until the token budget fits.
func (b *PromptBuilder) boundedHistory(history []model.ConversationTurn) []model.ConversationTurn {
	if b.historyTurns <= 0 || len(history) == 0 {
		return nil
	}

	turns := history
	if len(turns) > b.historyTurns {
		turns = turns[len(turns)-b.historyTurns:]
	}

	if b.historyTokenBudget > 0 {
		for len(turns) > 0 && b.historyTokens(turns) > b.historyTokenBudget {
			turns = turns[1:]
		}
	}

	return turns
}

func (b *PromptBuilder) historyTokens(turns []model.ConversationTurn) int {
	total := 0
	for _, turn := range turns {
		total += b.countTokens(turn.Question) + b.countTokens(turn.Answer)
	}
	return total
}

func (b *PromptBuilder) countTokens(text string) int {
	if b.encoding != nil {
		return len(b.encoding.Encode(text, nil, nil))
	}
	// Rough estimate of four characters per token.
	return (len([]rune(text)) + 3) / 4
}

func pageTag(pages []int64) string {
	if len(pages) == 0 {
		return "[page unknown]"
	}
	tags := make([]string, len(pages))
	for i, page := range pages {
		tags[i] = fmt.Sprintf("[page %d]", page)
	}
	return strings.Join(tags, " ")
}
