package synthesis

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"slices"
	"strconv"

	"github.com/sethvargo/go-retry"
	"github.com/siherrmann/docqa/helper"
	"github.com/siherrmann/docqa/model"
	"github.com/tmc/langchaingo/llms"
)

const insufficientContextAnswer = "I could not find relevant information in the document to answer this question."

var citationRegex = regexp.MustCompile(`\[page (\d+)\]`)

// Synthesizer turns retrieved excerpts into a grounded, cited answer.
type Synthesizer struct {
	llm    llms.Model
	prompt *PromptBuilder
	config *model.Config
	logger *slog.Logger
}

// NewSynthesizer creates a synthesizer over the given language model.
func NewSynthesizer(llm llms.Model, config *model.Config, logger *slog.Logger) (*Synthesizer, error) {
	if llm == nil {
		return nil, helper.NewError("NewSynthesizer", errors.New("language model is nil"))
	}
	if config == nil {
		config = model.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		llm:    llm,
		prompt: NewPromptBuilder(config.HistoryTurns, config.HistoryTokenBudget),
		config: config,
		logger: logger,
	}, nil
}

// Synthesize answers the question from the retrieved excerpts. With no
// excerpts it reports insufficient context without calling the model. The
// returned citations are always a subset of the pages the excerpts came
// from.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, results []*model.RetrievalResult, history []model.ConversationTurn) (*model.Answer, error) {
	if len(results) == 0 {
		return &model.Answer{
			Text:   insufficientContextAnswer,
			Status: model.StatusInsufficientContext,
		}, nil
	}

	prompt := s.prompt.Build(question, results, history)
	text, err := s.generateWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	provenance := model.Provenance(results)
	return &model.Answer{
		Text:      text,
		Citations: extractCitations(text, provenance),
		Sources:   buildSources(results),
		Status:    model.StatusAnswered,
	}, nil
}

func (s *Synthesizer) generateWithRetry(ctx context.Context, prompt string) (string, error) {
	backoff := retry.WithMaxRetries(uint64(s.config.MaxRetries), retry.NewExponential(s.config.RetryBackoffBase))

	attempts := 0
	var text string
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++

		callCtx := ctx
		if s.config.ServiceTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, s.config.ServiceTimeout)
			defer cancel()
		}

		completion, err := llms.GenerateFromSinglePrompt(callCtx, s.llm, prompt,
			llms.WithTemperature(s.config.Temperature),
			llms.WithMaxTokens(s.config.MaxTokens),
		)
		if err != nil {
			serviceErr := model.ClassifyServiceError("generation", err)
			if serviceErr.Retryable() {
				s.logger.Warn("generation attempt failed", slog.Int("attempt", attempts), slog.Any("error", serviceErr))
				return retry.RetryableError(serviceErr)
			}
			return serviceErr
		}

		text = completion
		return nil
	})
	if err != nil {
		// A non-retryable failure never entered the retry loop, only
		// exhausted retries become a GenerationError.
		var serviceErr *model.ServiceError
		if errors.As(err, &serviceErr) && !serviceErr.Retryable() {
			return "", serviceErr
		}
		return "", &model.GenerationError{Attempts: attempts, Err: err}
	}
	return text, nil
}

// extractCitations returns the pages cited in the answer text, restricted
// to pages the excerpts actually came from. An answer citing nothing falls
// back to the full provenance so the user always sees where it came from.
func extractCitations(text string, provenance []int64) []int64 {
	cited := map[int64]bool{}
	for _, match := range citationRegex.FindAllStringSubmatch(text, -1) {
		page, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil {
			continue
		}
		if slices.Contains(provenance, page) {
			cited[page] = true
		}
	}

	if len(cited) == 0 {
		return provenance
	}

	citations := make([]int64, 0, len(cited))
	for page := range cited {
		citations = append(citations, page)
	}
	slices.Sort(citations)
	return citations
}

func buildSources(results []*model.RetrievalResult) []model.Source {
	sources := make([]model.Source, 0, len(results))
	for _, result := range results {
		page := int64(0)
		if len(result.Chunk.Pages) > 0 {
			page = result.Chunk.Pages[0]
		}
		sources = append(sources, model.Source{
			Page:       page,
			Preview:    preview(result.Chunk.Content, 200),
			Similarity: result.SimilarityScore,
		})
	}
	return sources
}

func preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
