package models

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"
)

// ErrorEvent is an incoming production-error report to be remediated.
// Events are immutable once created; identity is the ID.
type ErrorEvent struct {
	ID         string         `json:"id"`
	Source     string         `json:"source"`
	Severity   Severity       `json:"severity"`
	Type       string         `json:"type"`
	Context    ErrorContext   `json:"context"`
	RawError   string         `json:"raw_error"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	DetectedAt time.Time      `json:"detected_at"`
}

// ErrorContext localises an error within the owning codebase.
type ErrorContext struct {
	Repository  string `json:"repository"`
	Branch      string `json:"branch,omitempty"`
	Commit      string `json:"commit,omitempty"`
	File        string `json:"file,omitempty"`
	Environment string `json:"environment,omitempty"`
}

// Signature returns a short stable fingerprint used to recognise recurring
// errors (cache key for analysis memoisation).
func (e ErrorEvent) Signature() string {
	components := fmt.Sprintf("%s|%s|%s", e.Source, e.Type, e.Context.File)
	sum := md5.Sum([]byte(components))
	return hex.EncodeToString(sum[:])[:16]
}

// Severity captures impact levels reported by the detection feed.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)
