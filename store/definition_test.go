package store

import (
	"context"
	"testing"
)

func TestGeneratedSetters(t *testing.T) {
	t.Parallel()

	def := NewDefinition("Counter", WithAttrs("count", "label"))

	fn, attr, ok := def.Fallback("SET_COUNT")
	if !ok {
		t.Fatal("expected generated transform for SET_COUNT")
	}
	if attr != "count" {
		t.Errorf("bound attr = %q, want %q", attr, "count")
	}

	s := New(def)
	a := s.Set("count", 5)
	got, err := fn(context.Background(), s, a, attr, nil)
	if err != nil {
		t.Fatalf("default setter: %v", err)
	}
	if got != 5 {
		t.Errorf("default setter returned %v, want 5", got)
	}

	if _, _, ok := def.Fallback("SYNC_COUNT"); ok {
		t.Error("non-synced type should not generate SYNC_COUNT")
	}
}

func TestSyncedGeneratesSyncActions(t *testing.T) {
	t.Parallel()

	def := NewDefinition("Mirror", WithAttrs("xpos", "ypos"), Synced())

	for _, actionType := range []string{"SET_XPOS", "SYNC_XPOS", "SET_YPOS", "SYNC_YPOS"} {
		if _, _, ok := def.Fallback(actionType); !ok {
			t.Errorf("expected generated transform for %s", actionType)
		}
	}
}

func TestAttrUnionWithAncestors(t *testing.T) {
	t.Parallel()

	base := NewDefinition("Base", WithAttrs("id_attr", "shared"))
	child := NewDefinition("Child", WithAttrs("shared", "extra"), Extends(base))

	attrs := child.Attrs()
	want := []string{"id_attr", "shared", "extra"}
	if len(attrs) != len(want) {
		t.Fatalf("Attrs() = %v, want %v", attrs, want)
	}
	for i, name := range want {
		if attrs[i] != name {
			t.Errorf("Attrs()[%d] = %q, want %q", i, attrs[i], name)
		}
	}

	// Ancestor setters resolve through the chain.
	if _, _, ok := child.Fallback("SET_ID_ATTR"); !ok {
		t.Error("expected ancestor setter SET_ID_ATTR to resolve on child")
	}
	if !child.HasAttr("id_attr") || !child.HasAttr("extra") {
		t.Error("HasAttr should cover own and ancestor attributes")
	}
	if child.HasAttr("nope") {
		t.Error("HasAttr reported an undeclared attribute")
	}
}

func TestCustomReducerNotInFallbackPath(t *testing.T) {
	t.Parallel()

	incr := func(_ context.Context, _ *Store, _ Action, _ string, old any) (any, error) {
		n, _ := old.(int)
		return n + 1, nil
	}
	def := NewDefinition("Counter", WithAttrs("count"), WithReducer("INCR_COUNT", incr))

	if _, ok := def.Transform("INCR_COUNT"); !ok {
		t.Fatal("expected custom transform to resolve")
	}
	if _, _, ok := def.Fallback("INCR_COUNT"); ok {
		t.Error("custom reducers must not be part of the fallback path")
	}
}

func TestAutoIDSequence(t *testing.T) {
	t.Parallel()

	def := NewDefinition("Seq", WithAttrs("v"))

	first := New(def)
	second := New(def)
	explicit := New(def, WithID("custom"))

	if first.ID() != "1" || second.ID() != "2" {
		t.Errorf("auto ids = %q, %q; want 1, 2", first.ID(), second.ID())
	}
	if explicit.ID() != "custom" {
		t.Errorf("explicit id = %q, want %q", explicit.ID(), "custom")
	}
}
