package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"exercisegen"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	var (
		subject    = flag.String("subject", "", "Worksheet subject: math, language, science, history, geography (required)")
		grade      = flag.Int("grade", 6, "School grade")
		topic      = flag.String("topic", "", "Worksheet topic (required)")
		difficulty = flag.String("difficulty", "medium", "Difficulty level (easy, medium, hard)")
		numItems   = flag.Int("items", 10, "Number of items to generate")
		autoFix    = flag.Bool("autofix", true, "Automatically repair flawed items")
		outputFile = flag.String("output", "", "Output file for worksheet JSON (default: stdout)")
		dbPath     = flag.String("db", "", "Optional SQLite database to store the worksheet in")
		apiKey     = flag.String("api-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
		verbose    = flag.Bool("verbose", false, "Enable verbose debugging output")
	)

	flag.Parse()

	// a .env file is optional; environment wins either way
	godotenv.Load()

	exercisegen.SetVerbose(*verbose)

	if *subject == "" {
		log.Fatal("Subject is required. Use -subject flag.")
	}
	if *topic == "" {
		log.Fatal("Topic is required. Use -topic flag.")
	}

	if *apiKey == "" {
		*apiKey = os.Getenv("OPENAI_API_KEY")
		if *apiKey == "" {
			log.Fatal("OpenAI API key is required. Use -api-key flag or set OPENAI_API_KEY environment variable.")
		}
	}

	dctx := exercisegen.DomainContext{
		Subject:    exercisegen.Subject(*subject),
		Grade:      *grade,
		Topic:      *topic,
		Difficulty: *difficulty,
	}

	batchID := uuid.NewString()
	logger, err := exercisegen.NewLLMLogger(batchID, dctx)
	if err != nil {
		log.Printf("Warning: could not create LLM transcript logger: %v", err)
		logger = nil
	}
	defer logger.Close()

	oracle := exercisegen.NewOpenAIOracle(*apiKey)
	maker := exercisegen.NewItemMaker(oracle)
	pipeline := exercisegen.NewPipeline(oracle)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	items, err := maker.GenerateItems(ctx, exercisegen.GenerationRequest{
		Context:  dctx,
		NumItems: *numItems,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to generate items: %v", err)
	}

	report := pipeline.Validate(ctx, items, dctx, exercisegen.ValidateOptions{AutoFix: *autoFix}, logger)

	worksheet := exercisegen.Worksheet{
		ID:        batchID,
		Context:   dctx,
		Items:     report.FinalItems,
		CreatedAt: time.Now(),
		Status:    exercisegen.WorksheetReady,
	}

	printSummary(report)

	if *dbPath != "" {
		if err := storeWorksheet(*dbPath, &worksheet, report); err != nil {
			log.Fatalf("Failed to store worksheet: %v", err)
		}
		log.Printf("Worksheet %s stored in %s", worksheet.ID, *dbPath)
	}

	output := struct {
		Worksheet exercisegen.Worksheet         `json:"worksheet"`
		Report    *exercisegen.ValidationReport `json:"report"`
	}{worksheet, report}

	encoded, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode output: %v", err)
	}

	if *outputFile == "" {
		fmt.Println(string(encoded))
		return
	}
	if err := os.WriteFile(*outputFile, encoded, 0644); err != nil {
		log.Fatalf("Failed to write output file: %v", err)
	}
	log.Printf("Worksheet written to %s", *outputFile)
}

func printSummary(report *exercisegen.ValidationReport) {
	fmt.Fprintf(os.Stderr, "Validation: valid=%v, %d problem item(s), %d issue(s)\n",
		report.Valid, len(report.ProblemItems), len(report.AllIssues))

	for _, jr := range report.JudgeResults {
		fmt.Fprintf(os.Stderr, "  judge %s: outcome=%s, errors=%d, warnings=%d\n",
			jr.JudgeName, jr.Outcome, jr.TotalErrors, jr.TotalWarnings)
	}
	for _, flagged := range report.AllIssues {
		fmt.Fprintf(os.Stderr, "  item %d [%s] %s: %s\n",
			flagged.ItemIndex, flagged.JudgeName, flagged.Issue.Code, flagged.Issue.Message)
	}
	for _, outcome := range report.FixOutcomes {
		if outcome.Success {
			fmt.Fprintf(os.Stderr, "  fix item %d: ok - %s\n", outcome.ItemIndex, outcome.Description)
		} else {
			fmt.Fprintf(os.Stderr, "  fix item %d: failed - %s\n", outcome.ItemIndex, outcome.Error)
		}
	}
}

func storeWorksheet(dbPath string, worksheet *exercisegen.Worksheet, report *exercisegen.ValidationReport) error {
	db, err := exercisegen.OpenDB(dbPath)
	if err != nil {
		return err
	}
	defer db.CloseDB()

	if err := db.CreateTables(); err != nil {
		return err
	}
	if err := db.CreateWorksheet(worksheet); err != nil {
		return err
	}
	if err := db.SaveItems(worksheet.ID, worksheet.Items); err != nil {
		return err
	}
	return db.SaveReport(worksheet.ID, report)
}
