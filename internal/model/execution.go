package model

import "time"

// ExecutionRecord is the durable outcome of one prompt run.
type ExecutionRecord struct {
	// ID is the unique identifier for this record.
	ID string `json:"id"`

	// PromptID and PromptName identify the prompt that produced the
	// record. The name is denormalized so history survives prompt
	// deletion.
	PromptID   string `json:"prompt_id"`
	PromptName string `json:"prompt_name"`

	// Timestamp is when the run completed.
	Timestamp time.Time `json:"timestamp"`

	// Result is the model's response with the actionability marker
	// removed.
	Result string `json:"result"`

	// Actionable reports whether the result requires the user's
	// attention.
	Actionable bool `json:"actionable"`

	// MessageCount is the number of messages analyzed in this run.
	MessageCount int `json:"message_count"`

	// Shown records whether the result has been presented to the user.
	Shown bool `json:"shown"`
}
