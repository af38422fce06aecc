package docqa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/siherrmann/docqa/core/loader"
	"github.com/siherrmann/docqa/core/pipeline"
	"github.com/siherrmann/docqa/core/retrieval"
	"github.com/siherrmann/docqa/core/session"
	"github.com/siherrmann/docqa/core/synthesis"
	"github.com/siherrmann/docqa/database"
	"github.com/siherrmann/docqa/helper"
	"github.com/siherrmann/docqa/model"
	loadSql "github.com/siherrmann/docqa/sql"
)

// DocQA provides question answering over a single indexed document.
type DocQA struct {
	DB          *helper.Database
	Documents   *database.DocumentsDBHandler
	Chunks      *database.ChunksDBHandler
	Pipeline    *pipeline.Pipeline     // Chunking and embedding pipeline
	Engine      *retrieval.Engine      // Vector retrieval engine
	Synthesizer *synthesis.Synthesizer // Answer generation
	Sessions    *session.ConversationStore
	Config      *model.Config
	// Logging
	log *slog.Logger
	// Per-session serialization of Ask calls
	sessionLocks sync.Map
}

// NewDocQA creates a new DocQA instance with all handlers initialized.
// The pipeline and synthesizer are wired separately, either with
// UseGoogleAI or with SetPipeline and SetSynthesizer.
func NewDocQA(dbConfig *helper.DatabaseConfiguration, config *model.Config) (*DocQA, error) {
	if config == nil {
		config = model.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	// Initialize database
	db := helper.NewDatabase("docqa", dbConfig, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Create handlers in the correct order (documents first, then chunks)
	documents, err := database.NewDocumentsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create documents handler", err)
	}

	chunks, err := database.NewChunksDBHandler(db, config.EmbeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create chunks handler", err)
	}

	return &DocQA{
		DB:        db,
		Documents: documents,
		Chunks:    chunks,
		Engine:    retrieval.NewEngine(chunks),
		Sessions:  session.NewConversationStore(),
		Config:    config,
		log:       logger,
	}, nil
}

// Close closes the database connection.
func (d *DocQA) Close() error {
	if d.DB != nil && d.DB.Instance != nil {
		return d.DB.Instance.Close()
	}
	return nil
}

// SetPipeline sets the chunking and embedding pipeline.
func (d *DocQA) SetPipeline(p *pipeline.Pipeline) {
	d.Pipeline = p
}

// SetSynthesizer sets the answer synthesizer.
func (d *DocQA) SetSynthesizer(s *synthesis.Synthesizer) {
	d.Synthesizer = s
}

// UseGoogleAI wires the pipeline and synthesizer to the Google AI APIs
// using the configured embedding and generation models. The API key is
// read from GOOGLE_API_KEY.
func (d *DocQA) UseGoogleAI(ctx context.Context) error {
	embedder, err := pipeline.GoogleAIEmbedder(ctx, d.Config.EmbeddingModel, "", d.Config.ServiceTimeout)
	if err != nil {
		return helper.NewError("create embedder", err)
	}

	chunker := pipeline.WindowChunker(d.Config.ChunkSize, d.Config.ChunkOverlap)
	p, err := pipeline.NewPipeline(chunker, embedder, d.Config, d.log)
	if err != nil {
		return helper.NewError("create pipeline", err)
	}

	llm, err := synthesis.GoogleAIModel(ctx, d.Config.GenerationModel, "")
	if err != nil {
		return helper.NewError("create generation model", err)
	}
	s, err := synthesis.NewSynthesizer(llm, d.Config, d.log)
	if err != nil {
		return helper.NewError("create synthesizer", err)
	}

	d.Pipeline = p
	d.Synthesizer = s
	return nil
}

// BuildIndex loads the document at path, chunks and embeds it and makes it
// the active document. A document whose content hash is already fully
// indexed is skipped, a partially indexed one is resumed by embedding only
// the chunks that are still missing. A rebuild under a changed chunking
// configuration replaces the previous chunk set once it completes. The new
// document only becomes active
// when every chunk embedded, on partial failure the previously active
// document keeps serving queries and a PartialIndexError is returned
// alongside the report.
func (d *DocQA) BuildIndex(ctx context.Context, path string) (*model.BuildReport, error) {
	if d.Pipeline == nil {
		return nil, helper.NewError("build index", fmt.Errorf("pipeline not set, use SetPipeline() or UseGoogleAI() first"))
	}

	doc, err := loader.Load(path)
	if err != nil {
		return nil, err
	}

	chunks, err := d.Pipeline.Chunk(doc)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, &model.UnreadableError{Path: path, Err: fmt.Errorf("document contains no indexable text")}
	}

	existing, err := d.Documents.SelectDocumentByHash(doc.ContentHash)
	if err != nil {
		return nil, helper.NewError("select document by hash", err)
	}

	skip := map[uuid.UUID]bool{}
	resumed := false
	var stale []uuid.UUID
	if existing != nil {
		doc.ID = existing.ID
		doc.RID = existing.RID

		embedded, err := d.Chunks.SelectEmbeddedChunkRIDs(existing.RID)
		if err != nil {
			return nil, helper.NewError("select embedded chunks", err)
		}
		// Only chunks of the current chunking configuration count, a
		// changed chunk size produces entirely new RIDs. Persisted chunks
		// outside the current set are superseded and get deleted once the
		// build completes.
		currentRIDs := map[uuid.UUID]bool{}
		for _, chunk := range chunks {
			currentRIDs[chunk.RID] = true
		}
		matched := 0
		for _, rid := range embedded {
			if currentRIDs[rid] {
				skip[rid] = true
				matched++
			} else {
				stale = append(stale, rid)
			}
		}

		if matched == len(chunks) {
			if err := d.deleteStaleChunks(stale); err != nil {
				return nil, err
			}
			if !existing.Active {
				if _, err := d.Documents.ActivateDocument(existing.RID); err != nil {
					return nil, helper.NewError("activate document", err)
				}
			}
			d.log.Info("Document already indexed, skipping build", slog.String("document_rid", existing.RID.String()))
			return &model.BuildReport{
				DocumentRID:   existing.RID,
				ChunksIndexed: len(chunks),
				Skipped:       true,
			}, nil
		}
		resumed = matched > 0
	} else {
		if err := d.Documents.InsertDocument(doc); err != nil {
			return nil, helper.NewError("insert document", err)
		}
		d.log.Info("Inserted document", slog.String("document_rid", doc.RID.String()), slog.String("title", doc.Title))
	}

	embedErr := d.Pipeline.EmbedChunks(ctx, chunks, skip)

	var partialErr *model.PartialIndexError
	if embedErr != nil && !errors.As(embedErr, &partialErr) {
		return nil, embedErr
	}

	// Persist every chunk that gained an embedding in this run so a later
	// build can resume from them.
	indexed := len(skip)
	for _, chunk := range chunks {
		if skip[chunk.RID] || chunk.Embedding == nil {
			continue
		}
		chunk.DocumentID = doc.ID
		if err := d.Chunks.UpsertChunk(chunk); err != nil {
			return nil, helper.NewError(fmt.Sprintf("upsert chunk %d", chunk.ChunkIndex), err)
		}
		indexed++
	}

	report := &model.BuildReport{
		DocumentRID:   doc.RID,
		ChunksIndexed: indexed,
		Resumed:       resumed,
	}

	if partialErr != nil {
		report.ChunksFailed = len(partialErr.FailedChunkRIDs)
		report.FailedChunkRIDs = partialErr.FailedChunkRIDs
		d.log.Warn("Index build incomplete", slog.Int("chunks_failed", report.ChunksFailed), slog.String("document_rid", doc.RID.String()))
		return report, partialErr
	}

	if err := d.deleteStaleChunks(stale); err != nil {
		return nil, err
	}

	if _, err := d.Documents.ActivateDocument(doc.RID); err != nil {
		return nil, helper.NewError("activate document", err)
	}
	d.log.Info("Index build complete", slog.Int("chunks_indexed", report.ChunksIndexed), slog.String("document_rid", doc.RID.String()))

	return report, nil
}

// deleteStaleChunks removes chunks of an earlier chunking configuration once
// the current set is complete. Partial builds keep them so the old index
// stays servable until the rebuild succeeds.
func (d *DocQA) deleteStaleChunks(stale []uuid.UUID) error {
	for _, rid := range stale {
		if err := d.Chunks.DeleteChunk(rid); err != nil {
			return helper.NewError("delete superseded chunk", err)
		}
	}
	if len(stale) > 0 {
		d.log.Info("Deleted superseded chunks", slog.Int("chunks_deleted", len(stale)))
	}
	return nil
}

// Ask answers a question within the given session. All failures surface as
// an Answer with StatusFailed rather than an error so the caller can always
// show something to the user. The turn is recorded in the session history
// only when the question was actually answered.
func (d *DocQA) Ask(ctx context.Context, sessionID string, question string) (*model.Answer, error) {
	if d.Pipeline == nil || d.Synthesizer == nil {
		return nil, helper.NewError("ask", fmt.Errorf("pipeline and synthesizer not set, use UseGoogleAI() first"))
	}

	lock := d.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	if question == "" {
		return &model.Answer{
			Status:        model.StatusFailed,
			FailureReason: "question is empty",
		}, nil
	}

	embedding, err := d.Pipeline.EmbedQuery(ctx, question)
	if err != nil {
		d.log.Warn("Question embedding failed", slog.Any("error", err))
		return &model.Answer{
			Status:        model.StatusFailed,
			FailureReason: fmt.Sprintf("embedding the question failed: %v", err),
		}, nil
	}

	strategy := retrieval.NewThresholdStrategy(d.Engine)
	results, err := strategy.Retrieve(ctx, embedding, model.QueryConfigFrom(d.Config))
	if err != nil {
		var emptyErr *model.EmptyIndexError
		if errors.As(err, &emptyErr) {
			return &model.Answer{
				Status:        model.StatusFailed,
				FailureReason: "no document indexed yet, build the index first",
			}, nil
		}
		d.log.Warn("Retrieval failed", slog.Any("error", err))
		return &model.Answer{
			Status:        model.StatusFailed,
			FailureReason: fmt.Sprintf("retrieval failed: %v", err),
		}, nil
	}

	history := d.Sessions.Recent(sessionID, d.Config.HistoryTurns)
	answer, err := d.Synthesizer.Synthesize(ctx, question, results, history)
	if err != nil {
		d.log.Warn("Answer generation failed", slog.Any("error", err))
		return &model.Answer{
			Status:        model.StatusFailed,
			FailureReason: fmt.Sprintf("answer generation failed: %v", err),
		}, nil
	}

	if answer.Status == model.StatusAnswered {
		d.Sessions.Append(sessionID, question, answer.Text, answer.Citations)
	}

	return answer, nil
}

// History returns the full conversation history of a session, oldest first.
func (d *DocQA) History(sessionID string) []model.ConversationTurn {
	return d.Sessions.History(sessionID)
}

// ResetConversation clears the conversation history of a session and drops
// its lock entry so idle sessions do not accumulate mutexes. An Ask that
// already holds the old lock finishes undisturbed, the next Ask starts on a
// fresh one.
func (d *DocQA) ResetConversation(sessionID string) {
	lock := d.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	d.Sessions.Reset(sessionID)
	d.sessionLocks.Delete(sessionID)
}

// ActiveDocument returns the currently active document, or nil when no
// build completed yet.
func (d *DocQA) ActiveDocument() (*model.Document, error) {
	return d.Documents.SelectActiveDocument()
}

// ChangeIndexType switches the vector index between HNSW and IVFFlat.
func (d *DocQA) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	return d.Chunks.ChangeIndexType(ctx, indexType, params)
}

func (d *DocQA) sessionLock(sessionID string) *sync.Mutex {
	lock, _ := d.sessionLocks.LoadOrStore(sessionID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
