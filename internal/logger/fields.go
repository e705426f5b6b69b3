package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Field keys shared by the ai backends and the pipeline.
const (
	FieldProvider      = "ai_provider"
	FieldModel         = "ai_model"
	FieldCandidateID   = "candidate_id"
	FieldCandidateName = "candidate_name"
	FieldStage         = "stage"
)

// stringPairs turns key/value pairs into zap string fields. Pairs with a blank key or
// value are dropped and the rest are trimmed. A trailing odd key is ignored.
func stringPairs(pairs ...string) []zap.Field {
	result := make([]zap.Field, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		key, value := strings.TrimSpace(pairs[i]), strings.TrimSpace(pairs[i+1])
		if key == "" || value == "" {
			continue
		}
		result = append(result, zap.String(key, value))
	}
	return result
}

// WithFields attaches fields to the logger. A nil logger becomes a no-op one.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	logger = OrNop(logger)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

// CommonFields describes the AI provider and model. Empty values are omitted.
func CommonFields(provider, model string) []zap.Field {
	return stringPairs(FieldProvider, provider, FieldModel, model)
}

func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, CommonFields(provider, model)...)
}

// CandidateFields identifies a candidate in per-candidate log lines.
func CandidateFields(id, name string) []zap.Field {
	return stringPairs(FieldCandidateID, id, FieldCandidateName, name)
}

// StageFields reports how many candidates a pipeline stage received, dropped and passed on.
func StageFields(name string, initial, dropped, left int) []zap.Field {
	return append(stringPairs(FieldStage, name),
		zap.Int("initial", initial),
		zap.Int("dropped", dropped),
		zap.Int("left", left),
	)
}
