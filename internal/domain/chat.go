package domain

import "time"

// ChatExchange is one question/answer pair with retrieval metadata.
// Append-only; persistence failure must never fail the chat call.
type ChatExchange struct {
	ID          string
	UserMessage string
	BotResponse string
	Metadata    ExchangeMetadata
	CreatedAt   time.Time
}

// ExchangeMetadata records what grounded the answer.
type ExchangeMetadata struct {
	Sources   []string `json:"sources"`
	BreadTags []string `json:"bread_tags,omitempty"`
	BakeryIDs []string `json:"bakery_ids"`
}
