package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringPairs(t *testing.T) {
	fields := stringPairs("  provider  ", "  Gemini  ", "ignored", "   ", "   ", "empty key", "dangling")

	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}
	if fields[0].Key != "provider" || fields[0].String != "Gemini" {
		t.Fatalf("unexpected provider field: %+v", fields[0])
	}

	if empty := stringPairs(); len(empty) != 0 {
		t.Fatalf("expected empty fields, got %d", len(empty))
	}
}

func TestWithFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithFields(zap.New(core), zap.String("foo", "bar")).Info("test log")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if ctx := entries[0].ContextMap(); ctx["foo"] != "bar" {
		t.Fatalf("expected field to be bar, got %q", ctx["foo"])
	}

	// nil falls back to a no-op logger.
	WithFields(nil, zap.String("baz", "qux")).Info("another log")
}

func TestCommonFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithCommonFields(zap.New(core), "  anthropic ", "model-x").Info("test log")

	ctx := observed.All()[0].ContextMap()
	if ctx[FieldProvider] != "anthropic" || ctx[FieldModel] != "model-x" {
		t.Fatalf("unexpected ai fields: %v", ctx)
	}

	if empty := CommonFields("", ""); len(empty) != 0 {
		t.Fatalf("expected empty fields, got %d", len(empty))
	}
	WithCommonFields(nil, "gemini", "").Info("no panic")
}

func TestCandidateFields(t *testing.T) {
	fields := CandidateFields(" CAND001 ", "")
	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}
	if fields[0].Key != FieldCandidateID || fields[0].String != "CAND001" {
		t.Fatalf("unexpected candidate field: %+v", fields[0])
	}

	core, observed := observer.New(zapcore.DebugLevel)
	WithFields(zap.New(core), CandidateFields("CAND002", "Bob")...).Debug("scored")

	if ctx := observed.All()[0].ContextMap(); ctx[FieldCandidateName] != "Bob" {
		t.Fatalf("expected candidate name Bob, got %v", ctx[FieldCandidateName])
	}
}

func TestStageFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	zap.New(core).Info("pipeline step", StageFields("recommend", 5, 2, 5)...)

	ctx := observed.All()[0].ContextMap()
	if ctx[FieldStage] != "recommend" || ctx["initial"] != int64(5) || ctx["dropped"] != int64(2) || ctx["left"] != int64(5) {
		t.Fatalf("unexpected stage fields: %v", ctx)
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("expected a no-op logger")
	}
	l := zap.NewExample()
	if OrNop(l) != l {
		t.Fatal("expected the same logger back")
	}
}
