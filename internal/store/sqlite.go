package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/dpage/maildroid/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// UpsertAccount inserts or replaces a mail account.
// If the account has no ID, a new UUID is generated.
func (s *SQLiteStore) UpsertAccount(
	ctx context.Context,
	account model.MailAccount,
) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO accounts (
			id, kind, email, enabled,
			imap_host, imap_port, imap_tls, username,
			updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID, string(account.Kind), account.Email,
		boolToInt(account.Enabled),
		account.IMAPHost, account.IMAPPort,
		boolToInt(account.IMAPTLS), account.Username,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upserting account %s: %w", account.ID, err)
	}

	return nil
}

// GetAccounts retrieves all configured mail accounts.
func (s *SQLiteStore) GetAccounts(
	ctx context.Context,
) ([]model.MailAccount, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT * FROM accounts ORDER BY email")
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.MailAccount
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

// DeleteAccount removes an account by ID.
func (s *SQLiteStore) DeleteAccount(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting account %s: %w", id, err)
	}
	return nil
}

// UpsertPrompt inserts or replaces a prompt definition.
// If the prompt has no ID, a new UUID is generated.
func (s *SQLiteStore) UpsertPrompt(
	ctx context.Context,
	prompt model.PromptDefinition,
) error {
	if prompt.ID == "" {
		prompt.ID = uuid.New().String()
	}

	recurrence := ""
	if prompt.Recurrence != nil {
		data, err := json.Marshal(prompt.Recurrence)
		if err != nil {
			return fmt.Errorf("marshaling recurrence for prompt %s: %w", prompt.ID, err)
		}
		recurrence = string(data)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO prompts (
			id, name, instruction, time_range, trigger_mode,
			recurrence, actionable_only, enabled, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		prompt.ID, prompt.Name, prompt.Instruction,
		string(prompt.TimeRange), string(prompt.TriggerMode),
		recurrence, boolToInt(prompt.ActionableOnly), boolToInt(prompt.Enabled),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upserting prompt %s: %w", prompt.ID, err)
	}

	return nil
}

// GetPrompts retrieves all prompt definitions.
func (s *SQLiteStore) GetPrompts(
	ctx context.Context,
) ([]model.PromptDefinition, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT * FROM prompts ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying prompts: %w", err)
	}
	defer rows.Close()

	var prompts []model.PromptDefinition
	for rows.Next() {
		prompt, err := scanPrompt(rows)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, prompt)
	}

	return prompts, rows.Err()
}

// GetPromptByID retrieves a single prompt by its ID.
func (s *SQLiteStore) GetPromptByID(
	ctx context.Context,
	id string,
) (*model.PromptDefinition, error) {
	var (
		prompt         model.PromptDefinition
		timeRange      string
		triggerMode    string
		recurrence     string
		actionableOnly int
		enabled        int
		createdAt      time.Time
		updatedAt      time.Time
	)

	err := s.db.QueryRowxContext(ctx, "SELECT * FROM prompts WHERE id = ?", id).Scan(
		&prompt.ID, &prompt.Name, &prompt.Instruction,
		&timeRange, &triggerMode, &recurrence,
		&actionableOnly, &enabled,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("getting prompt %s: %w", id, err)
	}

	prompt.TimeRange = model.TimeRange(timeRange)
	prompt.TriggerMode = model.TriggerMode(triggerMode)
	prompt.ActionableOnly = actionableOnly != 0
	prompt.Enabled = enabled != 0

	if recurrence != "" {
		var spec model.RecurrenceSpec
		if err := json.Unmarshal([]byte(recurrence), &spec); err != nil {
			return nil, fmt.Errorf("unmarshaling recurrence for prompt %s: %w", id, err)
		}
		prompt.Recurrence = &spec
	}

	return &prompt, nil
}

// DeletePrompt removes a prompt by ID.
func (s *SQLiteStore) DeletePrompt(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM prompts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting prompt %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("prompt %s not found", id)
	}
	return nil
}

// AddExecution prepends a record to the run history, shifting existing
// records down and evicting anything past MaxExecutions.
func (s *SQLiteStore) AddExecution(
	ctx context.Context,
	rec model.ExecutionRecord,
) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"UPDATE executions SET position = position + 1",
	); err != nil {
		return fmt.Errorf("shifting execution positions: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO executions (
			id, prompt_id, prompt_name, timestamp,
			result, actionable, message_count, position, shown
		) VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		rec.ID, rec.PromptID, rec.PromptName, rec.Timestamp.UTC(),
		rec.Result, boolToInt(rec.Actionable), rec.MessageCount,
		boolToInt(rec.Shown),
	)
	if err != nil {
		return fmt.Errorf("inserting execution %s: %w", rec.ID, err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM executions WHERE position >= ?", MaxExecutions,
	); err != nil {
		return fmt.Errorf("evicting old executions: %w", err)
	}

	return tx.Commit()
}

// ReplaceExecutions swaps the whole run history for recs, preserving
// their order. Records past MaxExecutions are dropped.
func (s *SQLiteStore) ReplaceExecutions(
	ctx context.Context,
	recs []model.ExecutionRecord,
) error {
	if len(recs) > MaxExecutions {
		recs = recs[:MaxExecutions]
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM executions"); err != nil {
		return fmt.Errorf("clearing executions: %w", err)
	}

	const query = `
		INSERT INTO executions (
			id, prompt_id, prompt_name, timestamp,
			result, actionable, message_count, position, shown
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for i, rec := range recs {
		if rec.ID == "" {
			rec.ID = uuid.New().String()
		}
		_, err = stmt.ExecContext(ctx,
			rec.ID, rec.PromptID, rec.PromptName, rec.Timestamp.UTC(),
			rec.Result, boolToInt(rec.Actionable), rec.MessageCount,
			i, boolToInt(rec.Shown),
		)
		if err != nil {
			return fmt.Errorf("inserting execution %s: %w", rec.ID, err)
		}
	}

	return tx.Commit()
}

// GetExecutions retrieves the run history, newest first.
func (s *SQLiteStore) GetExecutions(
	ctx context.Context,
) ([]model.ExecutionRecord, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT * FROM executions ORDER BY position",
	)
	if err != nil {
		return nil, fmt.Errorf("querying executions: %w", err)
	}
	defer rows.Close()

	var recs []model.ExecutionRecord
	for rows.Next() {
		rec, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}

// MarkExecutionShown marks a single execution record as presented.
func (s *SQLiteStore) MarkExecutionShown(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE executions SET shown = 1 WHERE id = ?", id,
	)
	if err != nil {
		return fmt.Errorf("marking execution %s as shown: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("execution %s not found", id)
	}
	return nil
}

// scanAccount scans an account row from a sqlx.Rows result set.
func scanAccount(rows *sqlx.Rows) (model.MailAccount, error) {
	var (
		account   model.MailAccount
		kind      string
		enabled   int
		imapTLS   int
		createdAt time.Time
		updatedAt time.Time
	)

	err := rows.Scan(
		&account.ID, &kind, &account.Email, &enabled,
		&account.IMAPHost, &account.IMAPPort, &imapTLS, &account.Username,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return model.MailAccount{}, fmt.Errorf("scanning account row: %w", err)
	}

	account.Kind = model.AccountKind(kind)
	account.Enabled = enabled != 0
	account.IMAPTLS = imapTLS != 0

	return account, nil
}

// scanPrompt scans a prompt row from a sqlx.Rows result set.
func scanPrompt(rows *sqlx.Rows) (model.PromptDefinition, error) {
	var (
		prompt         model.PromptDefinition
		timeRange      string
		triggerMode    string
		recurrence     string
		actionableOnly int
		enabled        int
		createdAt      time.Time
		updatedAt      time.Time
	)

	err := rows.Scan(
		&prompt.ID, &prompt.Name, &prompt.Instruction,
		&timeRange, &triggerMode, &recurrence,
		&actionableOnly, &enabled,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return model.PromptDefinition{}, fmt.Errorf("scanning prompt row: %w", err)
	}

	prompt.TimeRange = model.TimeRange(timeRange)
	prompt.TriggerMode = model.TriggerMode(triggerMode)
	prompt.ActionableOnly = actionableOnly != 0
	prompt.Enabled = enabled != 0

	if recurrence != "" {
		var spec model.RecurrenceSpec
		if err := json.Unmarshal([]byte(recurrence), &spec); err != nil {
			return model.PromptDefinition{}, fmt.Errorf("unmarshaling recurrence: %w", err)
		}
		prompt.Recurrence = &spec
	}

	return prompt, nil
}

// scanExecution scans an execution row from a sqlx.Rows result set.
func scanExecution(rows *sqlx.Rows) (model.ExecutionRecord, error) {
	var (
		rec        model.ExecutionRecord
		timestamp  time.Time
		actionable int
		position   int
		shown      int
	)

	err := rows.Scan(
		&rec.ID, &rec.PromptID, &rec.PromptName, &timestamp,
		&rec.Result, &actionable, &rec.MessageCount, &position, &shown,
	)
	if err != nil {
		return model.ExecutionRecord{}, fmt.Errorf("scanning execution row: %w", err)
	}

	rec.Timestamp = timestamp
	rec.Actionable = actionable != 0
	rec.Shown = shown != 0

	return rec, nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
