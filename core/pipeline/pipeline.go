package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/siherrmann/docqa/helper"
	"github.com/siherrmann/docqa/model"
)

// Pipeline turns a loaded document into embedded chunks ready for indexing.
type Pipeline struct {
	Chunker  ChunkFunc
	Embedder EmbedFunc
	config   *model.Config
	logger   *slog.Logger
}

// NewPipeline creates a pipeline with the given chunker and embedder.
func NewPipeline(chunker ChunkFunc, embedder EmbedFunc, config *model.Config, logger *slog.Logger) (*Pipeline, error) {
	if chunker == nil {
		return nil, helper.NewError("NewPipeline", errors.New("chunker is nil"))
	}
	if embedder == nil {
		return nil, helper.NewError("NewPipeline", errors.New("embedder is nil"))
	}
	if config == nil {
		config = model.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{Chunker: chunker, Embedder: embedder, config: config, logger: logger}, nil
}

// Chunk splits the document with the configured chunker.
func (p *Pipeline) Chunk(document *model.Document) ([]*model.Chunk, error) {
	chunks, err := p.Chunker(document)
	if err != nil {
		return nil, helper.NewError("Chunk", err)
	}
	p.logger.Debug("document chunked", slog.String("document", document.Title), slog.String("stats", ChunkStats(chunks)))
	return chunks, nil
}

// Process chunks the document and embeds every chunk. Partial embedding
// failures return the chunks anyway, successful ones carry embeddings and
// the error names the failed ones.
func (p *Pipeline) Process(ctx context.Context, document *model.Document) ([]*model.Chunk, error) {
	chunks, err := p.Chunk(document)
	if err != nil {
		return nil, err
	}

	err = p.EmbedChunks(ctx, chunks, nil)
	if err != nil {
		var partialErr *model.PartialIndexError
		if errors.As(err, &partialErr) {
			return chunks, err
		}
		return nil, err
	}
	return chunks, nil
}

// EmbedChunks embeds the given chunks concurrently, filling Chunk.Embedding
// in place. Chunks whose RID appears in skip keep a nil embedding and are not
// sent to the service. Retryable service failures are retried with
// exponential backoff, an authentication failure aborts the whole batch.
// When some chunks still fail after retries the successfully embedded chunks
// keep their vectors and a PartialIndexError names the failed ones.
func (p *Pipeline) EmbedChunks(ctx context.Context, chunks []*model.Chunk, skip map[uuid.UUID]bool) error {
	concurrency := p.config.EmbedConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		failed    []uuid.UUID
		authErr   error
		semaphore = make(chan struct{}, concurrency)
	)

	for _, chunk := range chunks {
		if skip[chunk.RID] {
			continue
		}

		wg.Add(1)
		go func(chunk *model.Chunk) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
				mu.Lock()
				failed = append(failed, chunk.RID)
				mu.Unlock()
				return
			}

			embedding, err := p.embedWithRetry(ctx, chunk.Content)
			if err != nil {
				mu.Lock()
				failed = append(failed, chunk.RID)
				var serviceErr *model.ServiceError
				if errors.As(err, &serviceErr) && serviceErr.Kind == model.ServiceErrorAuth && authErr == nil {
					authErr = err
					cancel()
				}
				mu.Unlock()

				p.logger.Warn("chunk embedding failed", slog.String("chunk_rid", chunk.RID.String()), slog.Any("error", err))
				return
			}

			chunk.Embedding = embedding
		}(chunk)
	}

	wg.Wait()

	if authErr != nil {
		return helper.NewError("EmbedChunks", authErr)
	}
	if len(failed) > 0 {
		sort.Slice(failed, func(i, j int) bool { return failed[i].String() < failed[j].String() })
		return &model.PartialIndexError{FailedChunkRIDs: failed}
	}
	return nil
}

// EmbedQuery embeds a single query text with the same retry policy as the
// indexing path, so a transient rate limit or timeout does not fail the
// question.
func (p *Pipeline) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	embedding, err := p.embedWithRetry(ctx, text)
	if err != nil {
		return nil, helper.NewError("EmbedQuery", err)
	}
	return embedding, nil
}

func (p *Pipeline) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	backoff := retry.WithMaxRetries(uint64(p.config.MaxRetries), retry.NewExponential(p.config.RetryBackoffBase))

	var embedding []float32
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		vector, err := p.Embedder(ctx, text)
		if err != nil {
			var serviceErr *model.ServiceError
			if errors.As(err, &serviceErr) && serviceErr.Retryable() {
				return retry.RetryableError(err)
			}
			return err
		}
		embedding = vector
		return nil
	})
	if err != nil {
		return nil, err
	}
	return embedding, nil
}
