package domain

import "time"

// UsageRecord is an append-only entry recording the tokens and cost of a
// single LLM call, attributed to the processable and user that caused it.
type UsageRecord struct {
	ID            string          `json:"id"             validate:"required"`
	TrackableKind ProcessableKind `json:"trackable_kind" validate:"required"`
	TrackableID   string          `json:"trackable_id"   validate:"required"`
	UserID        string          `json:"user_id"        validate:"required"`
	Provider      string          `json:"provider"       validate:"required"`
	Model         string          `json:"model"          validate:"required"`
	RequestType   ProcessType     `json:"request_type"   validate:"required"`
	InputTokens   int64           `json:"input_tokens"   validate:"gte=0"`
	OutputTokens  int64           `json:"output_tokens"  validate:"gte=0"`
	TokenCount    int64           `json:"token_count"    validate:"gte=0"`
	Cost          MicroUSD        `json:"cost_micro_usd" validate:"gte=0"`
	CreatedAt     time.Time       `json:"created_at"     validate:"required"`
}

// Validate checks the record before it is persisted.
func (u *UsageRecord) Validate() error {
	return validateStruct(ErrInvalidUsageRecord, u)
}
