package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dpage/maildroid/internal/credential"
	"github.com/dpage/maildroid/internal/llm"
	"github.com/dpage/maildroid/internal/logging"
	"github.com/dpage/maildroid/internal/mail"
	"github.com/dpage/maildroid/internal/mail/gmail"
	"github.com/dpage/maildroid/internal/mail/imap"
	"github.com/dpage/maildroid/internal/model"
	"github.com/dpage/maildroid/internal/orchestrator"
	"github.com/dpage/maildroid/internal/schedule"
	"github.com/dpage/maildroid/internal/store"
)

func main() {
	configPath := flag.String("config", model.DefaultConfigPath(),
		"path to the configuration file")
	runPrompt := flag.String("run", "",
		"execute the named prompt immediately, print the result, and exit")
	listModels := flag.Bool("models", false,
		"list models available for the configured provider and exit")
	showHistory := flag.Bool("history", false,
		"print the stored run history and exit")
	importToken := flag.String("import-token", "",
		"read an OAuth token JSON from stdin and store it for the given account id")
	setPassword := flag.String("set-password", "",
		"read an IMAP password from stdin and store it for the given account id")
	setProviderKey := flag.Bool("set-provider-key", false,
		"read an API key from stdin and store it for the configured provider")
	flag.Parse()

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	creds := credential.NewStore(cfg.Google, logger)

	// Credential management modes touch only the keyring.
	switch {
	case *importToken != "":
		exitOnError(importGmailToken(creds, *importToken))
		return
	case *setPassword != "":
		exitOnError(importPassword(creds, *setPassword))
		return
	case *setProviderKey:
		exitOnError(importProviderKey(creds, cfg.Provider.Kind))
		return
	}

	// API keys live in the keyring, never in the config file.
	cfg.Provider.Credential = creds.ProviderKey(cfg.Provider.Kind)

	gateway := llm.NewGateway(logger)

	if *listModels {
		exitOnError(printModels(context.Background(), gateway, cfg.Provider))
		return
	}

	db, err := store.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("opening store", zap.String("path", cfg.DatabasePath), zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	if err := seedStore(ctx, db, cfg); err != nil {
		logger.Fatal("seeding store from config", zap.Error(err))
	}

	fetchers := map[model.AccountKind]mail.Fetcher{
		model.AccountKindGmail: gmail.NewClient("", creds, logger),
		model.AccountKindIMAP:  imap.NewClient(creds, logger),
	}
	orch := orchestrator.New(fetchers, gateway, logger)

	if *showHistory {
		exitOnError(printHistory(ctx, db))
		return
	}

	if *runPrompt != "" {
		exitOnError(runOnce(ctx, db, orch, cfg, *runPrompt))
		return
	}

	runDaemon(ctx, db, orch, cfg, logger)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// seedStore makes the database mirror the config file: accounts and
// prompts present in neither are removed, the rest are upserted.
func seedStore(ctx context.Context, db store.Store, cfg *model.AppConfig) error {
	keepAccounts := make(map[string]bool, len(cfg.Accounts))
	for _, account := range cfg.Accounts {
		if err := db.UpsertAccount(ctx, account); err != nil {
			return err
		}
		keepAccounts[account.ID] = true
	}
	stored, err := db.GetAccounts(ctx)
	if err != nil {
		return err
	}
	for _, account := range stored {
		if !keepAccounts[account.ID] {
			if err := db.DeleteAccount(ctx, account.ID); err != nil {
				return err
			}
		}
	}

	keepPrompts := make(map[string]bool, len(cfg.Prompts))
	for _, prompt := range cfg.Prompts {
		if err := db.UpsertPrompt(ctx, prompt); err != nil {
			return err
		}
		keepPrompts[prompt.ID] = true
	}
	prompts, err := db.GetPrompts(ctx)
	if err != nil {
		return err
	}
	for _, prompt := range prompts {
		if !keepPrompts[prompt.ID] {
			if err := db.DeletePrompt(ctx, prompt.ID); err != nil {
				return err
			}
		}
	}

	return nil
}

// runDaemon arms the scheduler and blocks until SIGINT or SIGTERM.
func runDaemon(
	ctx context.Context,
	db store.Store,
	orch *orchestrator.Orchestrator,
	cfg *model.AppConfig,
	logger *zap.Logger,
) {
	accounts, err := db.GetAccounts(ctx)
	if err != nil {
		logger.Fatal("loading accounts", zap.Error(err))
	}
	prompts, err := db.GetPrompts(ctx)
	if err != nil {
		logger.Fatal("loading prompts", zap.Error(err))
	}

	sched := schedule.New(func(prompt model.PromptDefinition) {
		runCtx := context.Background()

		record, err := orch.ExecutePrompt(runCtx, prompt, accounts, cfg.Provider)
		if err != nil {
			// Scheduled failures are logged, never fatal; the timer
			// has already re-armed for the next occurrence.
			logger.Error("scheduled run failed",
				zap.String("prompt", prompt.Name),
				zap.Error(err))
			return
		}

		if err := db.AddExecution(runCtx, record); err != nil {
			logger.Error("storing execution record",
				zap.String("prompt", prompt.Name),
				zap.Error(err))
			return
		}

		if prompt.ActionableOnly && !record.Actionable {
			logger.Info("suppressing non-actionable result",
				zap.String("prompt", prompt.Name),
				zap.Int("messages", record.MessageCount))
			return
		}

		presentRecord(record)
		if err := db.MarkExecutionShown(runCtx, record.ID); err != nil {
			logger.Error("marking record shown",
				zap.String("record", record.ID),
				zap.Error(err))
		}
	}, logger)

	sched.RescheduleAll(prompts)
	defer sched.CancelAll()

	logger.Info("maildroid running",
		zap.Int("accounts", len(accounts)),
		zap.Int("prompts", len(prompts)),
		zap.String("provider", string(cfg.Provider.Kind)))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
}

// runOnce executes a single prompt by id or name and prints the result.
func runOnce(
	ctx context.Context,
	db store.Store,
	orch *orchestrator.Orchestrator,
	cfg *model.AppConfig,
	nameOrID string,
) error {
	prompt, err := findPrompt(ctx, db, nameOrID)
	if err != nil {
		return err
	}
	if !prompt.Enabled {
		return fmt.Errorf("prompt %q is disabled", prompt.Name)
	}
	if prompt.TriggerMode == model.TriggerScheduled {
		return fmt.Errorf("prompt %q only runs on its schedule", prompt.Name)
	}

	accounts, err := db.GetAccounts(ctx)
	if err != nil {
		return err
	}

	record, err := orch.ExecutePrompt(ctx, *prompt, accounts, cfg.Provider)
	if err != nil {
		return err
	}
	if err := db.AddExecution(ctx, record); err != nil {
		return err
	}

	presentRecord(record)
	return db.MarkExecutionShown(ctx, record.ID)
}

// findPrompt resolves a prompt by id first, then by exact name.
func findPrompt(
	ctx context.Context,
	db store.Store,
	nameOrID string,
) (*model.PromptDefinition, error) {
	if prompt, err := db.GetPromptByID(ctx, nameOrID); err == nil {
		return prompt, nil
	}

	prompts, err := db.GetPrompts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range prompts {
		if prompts[i].Name == nameOrID {
			return &prompts[i], nil
		}
	}
	return nil, fmt.Errorf("no prompt named %q", nameOrID)
}

func presentRecord(record model.ExecutionRecord) {
	status := "not actionable"
	if record.Actionable {
		status = "actionable"
	}
	fmt.Printf("=== %s | %s | %d message(s) | %s ===\n%s\n",
		record.PromptName,
		record.Timestamp.Format("Jan 2, 2006 3:04 PM"),
		record.MessageCount,
		status,
		record.Result)
}

func printHistory(ctx context.Context, db store.Store) error {
	recs, err := db.GetExecutions(ctx)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	for _, rec := range recs {
		marker := " "
		if rec.Actionable {
			marker = "!"
		}
		fmt.Printf("%s %s  %-24s %d message(s)\n",
			marker,
			rec.Timestamp.Format("Jan 2, 2006 3:04 PM"),
			rec.PromptName,
			rec.MessageCount)
	}
	return nil
}

func printModels(
	ctx context.Context,
	gateway *llm.Gateway,
	cfg model.ProviderConfig,
) error {
	models, err := gateway.FetchAvailableModels(ctx, cfg)
	if err != nil {
		return fmt.Errorf("listing models for %s: %w", cfg.Kind, err)
	}
	for _, name := range models {
		fmt.Println(name)
	}
	return nil
}

// importGmailToken reads an OAuth token pair as JSON from stdin, as
// produced by a consent flow run elsewhere, and stores it.
func importGmailToken(creds *credential.Store, accountID string) error {
	var payload struct {
		AccessToken  string    `json:"access_token"`
		RefreshToken string    `json:"refresh_token"`
		Expiry       time.Time `json:"expiry"`
	}
	if err := json.NewDecoder(os.Stdin).Decode(&payload); err != nil {
		return fmt.Errorf("decoding token from stdin: %w", err)
	}
	if payload.AccessToken == "" || payload.RefreshToken == "" {
		return fmt.Errorf("token must include access_token and refresh_token")
	}

	if err := creds.SaveGmailToken(
		accountID, payload.AccessToken, payload.RefreshToken, payload.Expiry,
	); err != nil {
		return err
	}
	fmt.Printf("Token stored for account %s.\n", accountID)
	return nil
}

func importPassword(creds *credential.Store, accountID string) error {
	password, err := readLine("IMAP password: ")
	if err != nil {
		return err
	}
	if password == "" {
		return fmt.Errorf("password must not be empty")
	}

	if err := creds.SetPassword(accountID, password); err != nil {
		return err
	}
	fmt.Printf("Password stored for account %s.\n", accountID)
	return nil
}

func importProviderKey(creds *credential.Store, kind model.ProviderKind) error {
	key, err := readLine(fmt.Sprintf("API key for %s: ", kind))
	if err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("API key must not be empty")
	}

	if err := creds.SetProviderKey(kind, key); err != nil {
		return err
	}
	fmt.Printf("API key stored for provider %s.\n", kind)
	return nil
}

func readLine(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimSpace(line), nil
}
