package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
)

//go:embed init.sql
var initSQL string

//go:embed documents.sql
var documentsSQL string

//go:embed chunks.sql
var chunksSQL string

// Function lists for verification
var DocumentsFunctions = []string{
	"init_documents",
	"insert_document",
	"select_document",
	"select_document_by_hash",
	"select_active_document",
	"select_all_documents",
	"activate_document",
	"delete_document",
}

var ChunksFunctions = []string{
	"init_chunks",
	"upsert_chunk",
	"select_chunk",
	"select_embedded_chunk_rids",
	"count_chunks",
	"count_chunks_by_document",
	"select_chunks_by_similarity",
	"delete_chunks_by_document",
	"delete_chunk",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}
	return nil
}

// LoadDocumentsSql loads the document SQL functions. If force is false and
// the functions already exist they are not reloaded.
func LoadDocumentsSql(db *sql.DB, force bool) error {
	return loadFunctions(db, documentsSQL, DocumentsFunctions, force)
}

// LoadChunksSql loads the chunk SQL functions. If force is false and the
// functions already exist they are not reloaded.
func LoadChunksSql(db *sql.DB, force bool) error {
	return loadFunctions(db, chunksSQL, ChunksFunctions, force)
}

func loadFunctions(db *sql.DB, functionsSQL string, functionNames []string, force bool) error {
	if !force {
		allExist := true
		for _, functionName := range functionNames {
			exists, err := functionExists(db, functionName)
			if err != nil {
				return err
			}
			if !exists {
				allExist = false
				break
			}
		}
		if allExist {
			return nil
		}
	}

	_, err := db.Exec(functionsSQL)
	if err != nil {
		return fmt.Errorf("error executing function SQL: %w", err)
	}

	for _, functionName := range functionNames {
		exists, err := functionExists(db, functionName)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("function %s was not created", functionName)
		}
	}

	return nil
}

func functionExists(db *sql.DB, functionName string) (bool, error) {
	var exists bool
	err := db.QueryRow(`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`, functionName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking function %s: %w", functionName, err)
	}
	return exists, nil
}
