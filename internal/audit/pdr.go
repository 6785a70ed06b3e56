// Package audit provides decision-record writing for Tempo.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/fentz26/tempo/internal/models"
)

// Sink persists decision records.
type Sink interface {
	WriteAudit(ctx context.Context, action, inputsHash, outcome, taskID, details string) (*models.AuditEntry, error)
}

// Outcomes recorded with each entry.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Recorder writes decision records for state-mutating actions.
type Recorder struct {
	sink Sink
}

// NewRecorder creates a new recorder writing to sink.
func NewRecorder(sink Sink) *Recorder {
	return &Recorder{sink: sink}
}

// Record writes an entry for action. inputs is hashed, not stored.
func (r *Recorder) Record(ctx context.Context, action string, inputs interface{}, outcome, taskID, details string) (*models.AuditEntry, error) {
	return r.sink.WriteAudit(ctx, action, HashInputs(inputs), outcome, taskID, details)
}

// HashInputs creates a SHA256 hash of the JSON form of inputs.
func HashInputs(inputs interface{}) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
