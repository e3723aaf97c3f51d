package exercisegen

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LLMLogger writes a transcript of every oracle interaction for one batch.
// One log file per batch under log/, named by batch ID.
type LLMLogger struct {
	file    *os.File
	mu      sync.Mutex
	batchID string
}

// NewLLMLogger creates a transcript logger for one generation/validation run
func NewLLMLogger(batchID string, dctx DomainContext) (*LLMLogger, error) {
	if err := os.MkdirAll("log", 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filename := filepath.Join("log", fmt.Sprintf("%s.log", batchID))
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	logger := &LLMLogger{
		file:    file,
		batchID: batchID,
	}

	logger.Logf("=== Worksheet Validation Log ===\n")
	logger.Logf("Batch ID: %s\n", batchID)
	logger.Logf("Subject: %s, Grade: %d\n", dctx.Subject, dctx.Grade)
	logger.Logf("Topic: %s\n", dctx.Topic)
	logger.Logf("Difficulty: %s\n", dctx.Difficulty)
	logger.Logf("Started: %s\n", time.Now().Format(time.RFC3339))
	logger.Logf("========================\n\n")

	return logger, nil
}

// Logf writes a formatted log entry with timestamp
func (ll *LLMLogger) Logf(format string, args ...interface{}) {
	if ll == nil {
		return
	}
	ll.mu.Lock()
	defer ll.mu.Unlock()

	timestamp := time.Now().Format("15:04:05.000")
	message := fmt.Sprintf(format, args...)

	fmt.Fprintf(ll.file, "[%s] %s", timestamp, message)
	ll.file.Sync()
}

// LogLLMRequest logs an oracle request
func (ll *LLMLogger) LogLLMRequest(module, prompt string) {
	ll.Logf("=== LLM REQUEST (%s) ===\n", module)
	ll.Logf("Prompt:\n%s\n", prompt)
	ll.Logf("=====================\n\n")
}

// LogLLMResponse logs an oracle response
func (ll *LLMLogger) LogLLMResponse(module, response string) {
	ll.Logf("=== LLM RESPONSE (%s) ===\n", module)
	ll.Logf("Response:\n%s\n", response)
	ll.Logf("======================\n\n")
}

// LogUsage records per-call token usage for external accounting
func (ll *LLMLogger) LogUsage(module string, usage TokenUsage) {
	ll.Logf("Usage (%s): prompt=%d completion=%d total=%d\n",
		module, usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
}

// LogVerdict logs one judge finding for one item
func (ll *LLMLogger) LogVerdict(judgeName string, index int, status VerdictStatus, code IssueCode, message string) {
	ll.Logf("Verdict [%s] item %d: %s/%s - %s\n", judgeName, index, status, code, message)
}

// LogFixResult logs the outcome of one repair attempt
func (ll *LLMLogger) LogFixResult(index int, success bool, note string) {
	if success {
		ll.Logf("Fix item %d: OK - %s\n", index, note)
	} else {
		ll.Logf("Fix item %d: FAILED - %s\n", index, note)
	}
}

// Close closes the log file
func (ll *LLMLogger) Close() error {
	if ll == nil {
		return nil
	}
	ll.mu.Lock()
	defer ll.mu.Unlock()

	if ll.file != nil {
		fmt.Fprintf(ll.file, "[%s] === Validation Complete ===\n", time.Now().Format("15:04:05.000"))
		fmt.Fprintf(ll.file, "[%s] Completed: %s\n", time.Now().Format("15:04:05.000"), time.Now().Format(time.RFC3339))
		return ll.file.Close()
	}
	return nil
}
