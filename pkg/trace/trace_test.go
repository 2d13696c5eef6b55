package trace

import (
	"errors"
	"strings"
	"testing"
)

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	r.State("LOAD_AS_FILE", "file:///x")
	r.Probe("file", "file:///x.js", true)
	r.Error(errors.New("boom"))

	if r.Len() != 0 || r.Events() != nil {
		t.Error("nil recorder should record nothing")
	}
}

func TestRecorder(t *testing.T) {
	r := New()
	if r.ID == "" {
		t.Error("New() should assign an ID")
	}

	r.State("LOAD_NODE_MODULES", "file:///")
	r.Probe("directory", "file:///node_modules/", true)
	r.Descriptor("file:///node_modules/mod/", false)
	r.Link("file:///node_modules/mod", "file:///.pnpm/mod/")
	r.Result("file:///.pnpm/mod/index.js", "commonjs")

	events := r.Events()
	if len(events) != 5 {
		t.Fatalf("len(Events()) = %d, want 5", len(events))
	}
	for i, e := range events {
		if e.Seq != i+1 {
			t.Errorf("events[%d].Seq = %d", i, e.Seq)
		}
	}
	if events[3].Kind != KindLink || events[3].Detail != "file:///.pnpm/mod/" {
		t.Errorf("link event = %+v", events[3])
	}

	// Events returns a copy.
	events[0].Name = "changed"
	if r.Events()[0].Name != "LOAD_NODE_MODULES" {
		t.Error("Events() should return a copy")
	}
}

func TestEventString(t *testing.T) {
	e := Event{Seq: 2, Kind: KindProbe, Name: "file", Location: "file:///a.js"}
	if s := e.String(); !strings.Contains(s, "miss") || !strings.Contains(s, "file:///a.js") {
		t.Errorf("String() = %q", s)
	}
	e.Found = true
	if s := e.String(); !strings.Contains(s, "hit") {
		t.Errorf("String() = %q", s)
	}
}

func TestToDOT(t *testing.T) {
	r := New()
	r.State("ESM_RESOLVE", "file:///main.mjs")
	r.Probe("file", "file:///a.mjs", false)
	r.Result("file:///b.mjs", "module")

	dot := ToDOT(r.Events())

	for _, want := range []string{
		"digraph trace {",
		"e1 [",
		"e1 -> e2;",
		"e2 -> e3;",
		"dashed",
		"#d8f5d0",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() missing %q:\n%s", want, dot)
		}
	}
}

func TestToDOTEmpty(t *testing.T) {
	dot := ToDOT(nil)
	if !strings.HasPrefix(dot, "digraph trace {") || strings.Contains(dot, "->") {
		t.Errorf("ToDOT(nil) = %q", dot)
	}
}
