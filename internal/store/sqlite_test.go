package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpage/maildroid/internal/model"
	"github.com/dpage/maildroid/internal/store"
	"github.com/dpage/maildroid/tests/testutil"
)

func TestAccounts_RoundTrip(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	gmail := model.MailAccount{
		ID:      "acct-gmail",
		Kind:    model.AccountKindGmail,
		Email:   "alice@gmail.com",
		Enabled: true,
	}
	imap := model.MailAccount{
		ID:       "acct-imap",
		Kind:     model.AccountKindIMAP,
		Email:    "bob@example.com",
		Enabled:  true,
		IMAPHost: "mail.example.com",
		IMAPPort: 993,
		IMAPTLS:  true,
		Username: "bob",
	}

	require.NoError(t, s.UpsertAccount(ctx, gmail))
	require.NoError(t, s.UpsertAccount(ctx, imap))

	// Test ordering by email and field round-trip
	accounts, err := s.GetAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, gmail, accounts[0])
	assert.Equal(t, imap, accounts[1])

	// Test upsert replaces instead of duplicating
	gmail.Enabled = false
	require.NoError(t, s.UpsertAccount(ctx, gmail))

	accounts, err = s.GetAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.False(t, accounts[0].Enabled)

	// Test deletion
	require.NoError(t, s.DeleteAccount(ctx, "acct-gmail"))

	accounts, err = s.GetAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "acct-imap", accounts[0].ID)
}

func TestUpsertAccount_GeneratesID(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertAccount(ctx, model.MailAccount{
		Kind:    model.AccountKindGmail,
		Email:   "alice@gmail.com",
		Enabled: true,
	}))

	accounts, err := s.GetAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.NotEmpty(t, accounts[0].ID)
}

func TestPrompts_RoundTrip(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	scheduled := model.PromptDefinition{
		ID:          "prompt-1",
		Name:        "daily digest",
		Instruction: "summarize everything important",
		TimeRange:   model.TimeRange24Hours,
		TriggerMode: model.TriggerBoth,
		Recurrence: &model.RecurrenceSpec{
			Frequency:  model.FrequencyCustom,
			Minute:     30,
			Hour:       9,
			DaysOfWeek: []int{2, 4, 6},
		},
		ActionableOnly: true,
		Enabled:        true,
	}
	onDemand := model.PromptDefinition{
		ID:          "prompt-2",
		Name:        "urgent scan",
		Instruction: "flag anything urgent",
		TimeRange:   model.TimeRange7Days,
		TriggerMode: model.TriggerOnDemand,
		Enabled:     true,
	}

	require.NoError(t, s.UpsertPrompt(ctx, scheduled))
	require.NoError(t, s.UpsertPrompt(ctx, onDemand))

	// Test ordering by name and recurrence round-trip
	prompts, err := s.GetPrompts(ctx)
	require.NoError(t, err)
	require.Len(t, prompts, 2)
	assert.Equal(t, scheduled, prompts[0])
	assert.Equal(t, onDemand, prompts[1])
	assert.Nil(t, prompts[1].Recurrence)

	// Test lookup by ID
	got, err := s.GetPromptByID(ctx, "prompt-1")
	require.NoError(t, err)
	assert.Equal(t, scheduled, *got)

	_, err = s.GetPromptByID(ctx, "missing")
	assert.Error(t, err)

	// Test deletion
	require.NoError(t, s.DeletePrompt(ctx, "prompt-2"))
	assert.Error(t, s.DeletePrompt(ctx, "prompt-2"))

	prompts, err = s.GetPrompts(ctx)
	require.NoError(t, err)
	require.Len(t, prompts, 1)
}

func TestReplaceExecutions_CapsAtLimit(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	recs := testutil.MakeExecutions(110)
	require.NoError(t, s.ReplaceExecutions(ctx, recs))

	got, err := s.GetExecutions(ctx)
	require.NoError(t, err)
	require.Len(t, got, store.MaxExecutions)

	// The first 100 survive in their original order.
	assert.Equal(t, "rec-000", got[0].ID)
	assert.Equal(t, "rec-099", got[99].ID)
	for i, rec := range got {
		assert.Equal(t, recs[i].ID, rec.ID)
	}

	// Test field round-trip on one record
	assert.Equal(t, "prompt-1", got[3].PromptID)
	assert.Equal(t, "urgent scan", got[3].PromptName)
	assert.Equal(t, "result 3", got[3].Result)
	assert.False(t, got[3].Actionable)
	assert.Equal(t, 3, got[3].MessageCount)
	assert.False(t, got[3].Shown)
	assert.WithinDuration(t, recs[3].Timestamp, got[3].Timestamp, time.Second)
}

func TestReplaceExecutions_ClearsPrevious(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceExecutions(ctx, testutil.MakeExecutions(5)))
	require.NoError(t, s.ReplaceExecutions(ctx, []model.ExecutionRecord{
		{ID: "only", PromptID: "p", PromptName: "p", Timestamp: time.Now()},
	}))

	got, err := s.GetExecutions(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "only", got[0].ID)
}

func TestAddExecution_PrependsAndEvicts(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	// Test prepend on an empty store
	first := model.ExecutionRecord{
		ID:         "first",
		PromptID:   "prompt-1",
		PromptName: "urgent scan",
		Timestamp:  time.Now(),
		Result:     "nothing urgent",
	}
	require.NoError(t, s.AddExecution(ctx, first))

	got, err := s.GetExecutions(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "first", got[0].ID)

	// Test eviction once the history is full
	require.NoError(t, s.ReplaceExecutions(ctx, testutil.MakeExecutions(store.MaxExecutions)))

	newest := model.ExecutionRecord{
		ID:         "newest",
		PromptID:   "prompt-1",
		PromptName: "urgent scan",
		Timestamp:  time.Now(),
		Result:     "escalate the outage thread",
		Actionable: true,
	}
	require.NoError(t, s.AddExecution(ctx, newest))

	got, err = s.GetExecutions(ctx)
	require.NoError(t, err)
	require.Len(t, got, store.MaxExecutions)
	assert.Equal(t, "newest", got[0].ID)
	assert.Equal(t, "rec-000", got[1].ID)
	assert.Equal(t, "rec-098", got[99].ID)
}

func TestAddExecution_GeneratesID(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddExecution(ctx, model.ExecutionRecord{
		PromptID:   "prompt-1",
		PromptName: "urgent scan",
		Timestamp:  time.Now(),
	}))

	got, err := s.GetExecutions(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotEmpty(t, got[0].ID)
}

func TestMarkExecutionShown(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddExecution(ctx, model.ExecutionRecord{
		ID:         "rec-1",
		PromptID:   "prompt-1",
		PromptName: "urgent scan",
		Timestamp:  time.Now(),
	}))

	require.NoError(t, s.MarkExecutionShown(ctx, "rec-1"))

	got, err := s.GetExecutions(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Shown)

	// Test unknown record
	assert.Error(t, s.MarkExecutionShown(ctx, "missing"))
}

func TestMigrations_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "maildroid.db")

	s, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.UpsertPrompt(ctx, model.PromptDefinition{
		ID:      "prompt-1",
		Name:    "urgent scan",
		Enabled: true,
	}))
	require.NoError(t, s.Close())

	// Reopening skips the applied migrations and sees the same rows.
	s, err = store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	prompts, err := s.GetPrompts(ctx)
	require.NoError(t, err)
	require.Len(t, prompts, 1)
	assert.Equal(t, "prompt-1", prompts[0].ID)
}
