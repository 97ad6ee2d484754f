package model

import (
	"encoding/json"
	"time"
)

// FitnessConnection links a community member to their account at the
// external fitness-tracking provider. Rows are never deleted: disconnecting
// flips IsActive to false so the credential history survives as an audit
// trail, and reconnecting overwrites the credential fields in place.
type FitnessConnection struct {
	ID                string          `json:"id"`
	UserID            string          `json:"user_id"`
	ProviderAccountID string          `json:"provider_account_id"`
	AccessToken       string          `json:"-"`
	RefreshToken      string          `json:"-"`
	ExpiresAt         time.Time       `json:"expires_at"`
	Scope             string          `json:"scope"`
	AccountMetadata   json.RawMessage `json:"account_metadata,omitempty"`
	IsActive          bool            `json:"is_active"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}
