package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dpage/maildroid/internal/llm"
	"github.com/dpage/maildroid/internal/mail"
	"github.com/dpage/maildroid/internal/model"
)

// ErrNoEnabledAccounts indicates that every configured mail account
// is disabled, leaving nothing to analyze.
var ErrNoEnabledAccounts = errors.New("no enabled mail accounts")

// Gateway is the slice of the provider gateway the orchestrator uses.
type Gateway interface {
	SendPrompt(
		ctx context.Context,
		cfg model.ProviderConfig,
		systemPrompt string,
		userContent string,
	) (string, error)
}

// Orchestrator runs one prompt end to end: fetch mail from every
// enabled account, format it, send it to the provider, and parse the
// reply into an execution record.
type Orchestrator struct {
	fetchers map[model.AccountKind]mail.Fetcher
	gateway  Gateway
	logger   *zap.Logger
	now      func() time.Time
}

// New creates an orchestrator that routes each account kind to its
// mail fetcher.
func New(
	fetchers map[model.AccountKind]mail.Fetcher,
	gateway Gateway,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		fetchers: fetchers,
		gateway:  gateway,
		logger:   logger,
		now:      time.Now,
	}
}

// ExecutePrompt performs the fetch, format, send, parse sequence for
// one prompt. Precondition failures (no enabled accounts, provider
// not configured) are reported before any network traffic. An
// individual account's fetch failure is tolerated; only when every
// account fails does the last error propagate.
func (o *Orchestrator) ExecutePrompt(
	ctx context.Context,
	prompt model.PromptDefinition,
	accounts []model.MailAccount,
	providerCfg model.ProviderConfig,
) (model.ExecutionRecord, error) {
	enabled := make([]model.MailAccount, 0, len(accounts))
	for _, account := range accounts {
		if account.Enabled {
			enabled = append(enabled, account)
		}
	}
	if len(enabled) == 0 {
		return model.ExecutionRecord{}, ErrNoEnabledAccounts
	}

	if err := llm.ValidateConfig(providerCfg); err != nil {
		return model.ExecutionRecord{}, err
	}

	since := o.now().Add(-prompt.TimeRange.Duration())

	var messages []model.Message
	var lastErr error
	failed := 0
	for _, account := range enabled {
		fetcher, ok := o.fetchers[account.Kind]
		if !ok {
			lastErr = fmt.Errorf("no fetcher for account kind %q", account.Kind)
			failed++
			continue
		}

		fetched, err := fetcher.FetchEmails(ctx, account, since)
		if err != nil {
			o.logger.Warn("account fetch failed",
				zap.String("account", account.Email),
				zap.Error(err))
			lastErr = err
			failed++
			continue
		}
		messages = append(messages, fetched...)
	}
	if failed == len(enabled) {
		return model.ExecutionRecord{}, lastErr
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Date.After(messages[j].Date)
	})

	block := formatEmails(messages)
	userContent := buildUserContent(len(messages), block, prompt.Instruction)

	raw, err := o.gateway.SendPrompt(ctx, providerCfg, systemInstruction, userContent)
	if err != nil {
		return model.ExecutionRecord{}, err
	}

	cleaned, actionable := parseActionability(raw)

	record := model.ExecutionRecord{
		ID:           uuid.NewString(),
		PromptID:     prompt.ID,
		PromptName:   prompt.Name,
		Timestamp:    o.now(),
		Result:       cleaned,
		Actionable:   actionable,
		MessageCount: len(messages),
	}

	o.logger.Info("prompt executed",
		zap.String("prompt", prompt.Name),
		zap.Int("messages", record.MessageCount),
		zap.Bool("actionable", record.Actionable))

	return record, nil
}
