package store

import (
	"context"

	"github.com/dpage/maildroid/internal/model"
)

// MaxExecutions caps the run history. Saves beyond the cap silently
// drop the oldest records.
const MaxExecutions = 100

// Store defines the persistence interface for mail accounts, prompt
// definitions, and the bounded execution history.
type Store interface {
	// === Accounts ===

	UpsertAccount(ctx context.Context, account model.MailAccount) error
	GetAccounts(ctx context.Context) ([]model.MailAccount, error)
	DeleteAccount(ctx context.Context, id string) error

	// === Prompts ===

	UpsertPrompt(ctx context.Context, prompt model.PromptDefinition) error
	GetPrompts(ctx context.Context) ([]model.PromptDefinition, error)
	GetPromptByID(ctx context.Context, id string) (*model.PromptDefinition, error)
	DeletePrompt(ctx context.Context, id string) error

	// === Execution history ===

	// AddExecution prepends a record and evicts from the tail past
	// MaxExecutions.
	AddExecution(ctx context.Context, rec model.ExecutionRecord) error

	// ReplaceExecutions swaps the whole history for recs, preserving
	// their order and keeping at most MaxExecutions of them.
	ReplaceExecutions(ctx context.Context, recs []model.ExecutionRecord) error

	// GetExecutions returns the history newest first.
	GetExecutions(ctx context.Context) ([]model.ExecutionRecord, error)

	MarkExecutionShown(ctx context.Context, id string) error

	Close() error
}
