package value

import "testing"

func TestEnvironmentDefineIsFrameLocal(t *testing.T) {
	parent := New(nil)
	parent.Define("x", Number{1})

	child := New(parent)
	child.Define("x", Number{2})

	if v, _ := child.Get("x"); v.(Number).Value != 2 {
		t.Errorf("expected child's shadowed x to be 2, got %v", v)
	}
	if v, _ := parent.Get("x"); v.(Number).Value != 1 {
		t.Errorf("expected parent's x to remain 1, got %v", v)
	}
}

func TestEnvironmentAssignWalksUpChain(t *testing.T) {
	parent := New(nil)
	parent.Define("x", Number{1})
	child := New(parent)

	child.Assign("x", Number{42})

	if v, _ := parent.Get("x"); v.(Number).Value != 42 {
		t.Errorf("expected assign in child to mutate parent's binding, got %v", v)
	}
	if _, ok := child.values["x"]; ok {
		t.Errorf("expected assign to not create a new binding in the child frame")
	}
}

func TestEnvironmentAssignCreatesAtCurrentFrameWhenUndefined(t *testing.T) {
	parent := New(nil)
	child := New(parent)

	child.Assign("y", Number{7})

	if _, ok := parent.Get("y"); ok {
		t.Errorf("expected assign of an undefined name to not leak to the parent")
	}
	if v, ok := child.Get("y"); !ok || v.(Number).Value != 7 {
		t.Errorf("expected assign of an undefined name to define it in the current frame")
	}
}

func TestEnvironmentGetUndefinedReportsNotFound(t *testing.T) {
	env := New(nil)
	if _, ok := env.Get("missing"); ok {
		t.Errorf("expected Get of an undefined name to report not found")
	}
}

func TestEnvironmentCopyIsShallowSnapshot(t *testing.T) {
	env := New(nil)
	env.Define("x", Number{1})

	snapshot := env.Copy()
	env.Define("x", Number{2})
	env.Define("y", Number{3})

	if v, _ := snapshot.Get("x"); v.(Number).Value != 1 {
		t.Errorf("expected the snapshot to retain x's value at copy time, got %v", v)
	}
	if _, ok := snapshot.Get("y"); ok {
		t.Errorf("expected the snapshot to not see bindings added after the copy")
	}
}

func TestEnvironmentScopeHygieneBlockExit(t *testing.T) {
	outer := New(nil)
	block := New(outer)
	block.Define("local", Number{1})

	if outer.Exists("local") {
		t.Errorf("expected a block-local variable to not leak into the outer scope")
	}
}
