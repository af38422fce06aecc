package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/siherrmann/docqa"
	"github.com/siherrmann/docqa/helper"
	"github.com/siherrmann/docqa/model"
)

// Interactive question answering over a single report. Expects the report
// path as the first argument, GOOGLE_API_KEY in the environment and either
// DB_* environment variables or a local docker daemon for a throwaway
// postgres container.
func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Could not load .env file: %v", err)
	}

	if len(os.Args) < 2 {
		log.Fatalf("usage: %s <report.pdf|report.txt|report.md>", os.Args[0])
	}
	reportPath := os.Args[1]

	ctx := context.Background()

	dbConfig, err := helper.NewDatabaseConfiguration()
	if err != nil {
		// No database configured, fall back to a throwaway container.
		teardown, dbPort, containerErr := helper.MustStartPostgresContainer()
		if containerErr != nil {
			log.Fatalf("No DB_* configuration and no container available: %v", containerErr)
		}
		defer teardown(ctx)

		dbConfig = &helper.DatabaseConfiguration{
			Host:     "localhost",
			Port:     dbPort,
			Database: "database",
			Username: "user",
			Password: "password",
			Schema:   "public",
			SSLMode:  "disable",
		}
	}

	config, err := model.NewConfigFromEnv()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	qa, err := docqa.NewDocQA(dbConfig, config)
	if err != nil {
		log.Fatalf("Failed to create docqa: %v", err)
	}
	defer qa.Close()

	if err := qa.UseGoogleAI(ctx); err != nil {
		log.Fatalf("Failed to set up Google AI: %v", err)
	}

	report, err := qa.BuildIndex(ctx, reportPath)
	if err != nil {
		var partialErr *model.PartialIndexError
		if errors.As(err, &partialErr) {
			log.Printf("Index incomplete, %d chunks failed. Run again to retry them.", len(partialErr.FailedChunkRIDs))
		} else {
			log.Fatalf("Failed to build index: %v", err)
		}
	}
	if report.Skipped {
		fmt.Printf("Document already indexed (%d chunks).\n", report.ChunksIndexed)
	} else {
		fmt.Printf("Indexed %d chunks.\n", report.ChunksIndexed)
	}

	fmt.Println("Ask questions about the report, 'reset' to clear the conversation, 'quit' to exit.")

	sessionID := "cli"
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())

		switch question {
		case "":
			continue
		case "quit", "exit":
			return
		case "reset":
			qa.ResetConversation(sessionID)
			fmt.Println("Conversation cleared.")
			continue
		}

		answer, err := qa.Ask(ctx, sessionID, question)
		if err != nil {
			log.Fatalf("Failed to answer: %v", err)
		}

		switch answer.Status {
		case model.StatusAnswered:
			fmt.Printf("\n%s\n", answer.Text)
			if len(answer.Citations) > 0 {
				fmt.Printf("\nCited pages: %v\n", answer.Citations)
			}
			for _, source := range answer.Sources {
				fmt.Printf("  [page %d] (%.2f) %s\n", source.Page, source.Similarity, source.Preview)
			}
		case model.StatusInsufficientContext:
			fmt.Printf("\n%s\n", answer.Text)
		case model.StatusFailed:
			fmt.Printf("\nCould not answer: %s\n", answer.FailureReason)
		}
		fmt.Println()
	}
}
