// Package events implements outbound CloudEvents 1.0 notifications for
// a validation run's lifecycle. No CloudEvents SDK is part of this
// module's dependency set, so the envelope is a plain encoding/json
// struct rather than an imported implementation.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const specVersion = "1.0"

// Event types emitted over the outbound webhook.
const (
	TypeValidationStarted   = "com.wikisoft.validation.started"
	TypeValidationCompleted = "com.wikisoft.validation.completed"
	TypeValidationFailed    = "com.wikisoft.validation.failed"
)

// Envelope is a CloudEvents 1.0 structured-mode event.
type Envelope struct {
	ID          string          `json:"id"`
	Source      string          `json:"source"`
	SpecVersion string          `json:"specversion"`
	Type        string          `json:"type"`
	Time        time.Time       `json:"time"`
	DataSchema  string          `json:"dataschema,omitempty"`
	DataContentType string      `json:"datacontenttype,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`

	WikisoftVersion       string `json:"wikisoft_version,omitempty"`
	WikisoftEnvironment   string `json:"wikisoft_environment,omitempty"`
	WikisoftCorrelationID string `json:"wikisoft_correlation_id,omitempty"`
}

// Extensions carries the out-of-band fields New stamps on every
// envelope it builds, set once at process startup.
type Extensions struct {
	Source      string
	Version     string
	Environment string
}

// Builder stamps envelopes with a fixed source and extension set.
type Builder struct {
	ext Extensions
}

// NewBuilder constructs a Builder for this process's event source.
func NewBuilder(ext Extensions) *Builder {
	return &Builder{ext: ext}
}

// New builds an Envelope of eventType carrying data, correlated to
// correlationID (typically the validation session id).
func (b *Builder) New(eventType, correlationID string, data any) (Envelope, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:                    uuid.NewString(),
		Source:                b.ext.Source,
		SpecVersion:           specVersion,
		Type:                  eventType,
		Time:                  time.Now(),
		DataContentType:       "application/json",
		Data:                  payload,
		WikisoftVersion:       b.ext.Version,
		WikisoftEnvironment:   b.ext.Environment,
		WikisoftCorrelationID: correlationID,
	}, nil
}
