package id_test

import (
	"strings"
	"testing"

	"github.com/bgribble/flopsy/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"ActionID", id.NewActionID, "act_"},
		{"ReducerID", id.NewReducerID, "rdc_"},
		{"SagaID", id.NewSagaID, "saga_"},
		{"TaskID", id.NewTaskID, "task_"},
		{"SubscriberID", id.NewSubscriberID, "sub_"},
		{"SyncerID", id.NewSyncerID, "sync_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestNew(t *testing.T) {
	i := id.New(id.PrefixReducer)
	if i.IsNil() {
		t.Fatal("expected non-nil ID")
	}
	if i.Prefix() != id.PrefixReducer {
		t.Errorf("expected prefix %q, got %q", id.PrefixReducer, i.Prefix())
	}
}

func TestParseRoundTrip(t *testing.T) {
	original := id.NewSagaID()
	parsed, err := id.Parse(original.String())
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if parsed.String() != original.String() {
		t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
	}
}

func TestParseWithPrefix(t *testing.T) {
	rid := id.NewReducerID()

	if _, err := id.ParseWithPrefix(rid.String(), id.PrefixReducer); err != nil {
		t.Fatalf("parse with matching prefix failed: %v", err)
	}
	if _, err := id.ParseWithPrefix(rid.String(), id.PrefixSaga); err == nil {
		t.Error("expected error parsing reducer ID with saga prefix")
	}
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{"", "not a typeid", "UPPER_01h2xcejqtf2nbrexx3vqjhp41"} {
		if _, err := id.Parse(input); err == nil {
			t.Errorf("Parse(%q): expected error", input)
		}
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero value should be nil")
	}
	if i.String() != "" {
		t.Errorf("nil ID String() = %q, want empty", i.String())
	}

	data, err := i.MarshalText()
	if err != nil {
		t.Fatalf("marshal nil: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("nil ID marshals to %q, want empty", data)
	}

	var back id.ID
	if err := back.UnmarshalText(nil); err != nil {
		t.Fatalf("unmarshal empty: %v", err)
	}
	if !back.IsNil() {
		t.Error("unmarshal of empty text should yield Nil")
	}
}
