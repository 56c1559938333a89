// Package domain defines the core types and interfaces for Kestrel.
package domain

import (
	"encoding/json"
	"time"
)

// ScoreRequest carries the transaction attributes submitted for risk scoring.
// It is ephemeral: evaluated against the current model snapshot and never
// persisted by the scoring core.
type ScoreRequest struct {
	// Required
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Timestamp string  `json:"timestamp"`

	// Optional signals
	IP              string `json:"ip,omitempty"`
	IPCountry       string `json:"ipCountry,omitempty"`
	DeviceID        string `json:"deviceId,omitempty"`
	UserID          string `json:"userId,omitempty"`
	EmailHash       string `json:"emailHash,omitempty"` // Hashed email only!
	EmailDomain     string `json:"emailDomain,omitempty"`
	CardBin         string `json:"cardBin,omitempty"`
	MerchantID      string `json:"merchantId,omitempty"`
	MCC             string `json:"mcc,omitempty"`
	MerchantCountry string `json:"merchantCountry,omitempty"`
	UserCountry     string `json:"userCountry,omitempty"`
}

// Decision is the final classification of a scored transaction.
type Decision string

const (
	DecisionAccept  Decision = "Accept"
	DecisionReview  Decision = "Review"
	DecisionDecline Decision = "Decline"
)

// ScoreResult is the outcome of evaluating a request against a model
// snapshot. Reasons preserve evaluation order. ModelVersion and
// ModelUpdatedAt identify exactly the snapshot the request was evaluated
// against, never one published after evaluation began.
type ScoreResult struct {
	Decision       Decision
	Risk           int
	Reasons        []Reason
	ModelVersion   string
	ModelUpdatedAt time.Time
}

// ScoreEvent is the persisted audit record of a successful scoring call.
type ScoreEvent struct {
	ID             string          `json:"id"`
	Decision       string          `json:"decision"`
	Risk           int             `json:"risk"`
	Reasons        json.RawMessage `json:"reasons"`
	ModelVersion   string          `json:"modelVersion"`
	ModelUpdatedAt time.Time       `json:"modelUpdatedAt"`
	CreatedAt      time.Time       `json:"createdAt"`
}
