package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Keys shared by every log line that talks about the same thing.
const (
	FieldProvider         = "ai_provider"
	FieldModel            = "ai_model"
	FieldSourceListing    = "source_listing_id"
	FieldCandidateListing = "candidate_listing_id"
	FieldRequester        = "requester_id"
	FieldMatch            = "match_id"
)

type StringField struct {
	Key   string
	Value string
}

// StringFields converts pairs into zap fields, skipping blank keys and values
// so lines stay compact when something is unknown.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		key := strings.TrimSpace(f.Key)
		value := strings.TrimSpace(f.Value)
		if key == "" || value == "" {
			continue
		}
		result = append(result, zap.String(key, value))
	}
	return result
}

// With attaches fields to l. A nil logger becomes a no-op one.
func With(l *zap.Logger, fields ...zap.Field) *zap.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// WithProvider tags l with the AI provider and model.
func WithProvider(l *zap.Logger, provider, model string) *zap.Logger {
	return With(l, StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)...)
}

// WithMatching tags l with the listing being matched and who asked for it.
func WithMatching(l *zap.Logger, sourceID, requesterID string) *zap.Logger {
	return With(l, StringFields(
		StringField{Key: FieldSourceListing, Value: sourceID},
		StringField{Key: FieldRequester, Value: requesterID},
	)...)
}
