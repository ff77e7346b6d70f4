package norm

import (
	"context"
	"errors"
	"testing"

	"github.com/nathoo/talespin/engine/parser"
	"github.com/nathoo/talespin/llm"
	"github.com/nathoo/talespin/types"
)

// fakeBackend returns a canned result or error and records the context it
// was handed.
type fakeBackend struct {
	result  llm.Result
	err     error
	lastCtx llm.Context
	calls   int
}

func (f *fakeBackend) SetContext(c llm.Context) { f.lastCtx = c }

func (f *fakeBackend) Interpret(ctx context.Context, raw string) (llm.Result, error) {
	f.calls++
	return f.result, f.err
}

func testParser() *parser.Parser {
	return parser.New(&types.Locale{
		Verbs: map[string][]string{
			"take": {"get"},
			"go":   {"walk"},
		},
		Articles: []string{"the"},
		Linkers:  []string{"with"},
	})
}

func TestNormalize_NoBackend(t *testing.T) {
	n := New(testParser(), nil, nil)
	out := n.Normalize(context.Background(), "take the key")
	if out.Source != SourceParser {
		t.Errorf("source = %v, want parser", out.Source)
	}
	if out.Intent.Verb != "take" || out.Intent.Object != "key" {
		t.Errorf("intent = %+v", out.Intent)
	}
}

func TestNormalize_BackendSure(t *testing.T) {
	backend := &fakeBackend{result: llm.Result{
		Confidence: llm.ConfidenceSure, Verb: "Take", Object: " Key ",
	}}
	n := New(testParser(), backend, nil)

	out := n.Normalize(context.Background(), "i would like to pick up that key please")
	if out.Source != SourceLLM {
		t.Errorf("source = %v, want llm", out.Source)
	}
	if out.Suggested {
		t.Error("sure mapping should not be a suggestion")
	}
	if out.Intent.Verb != "take" || out.Intent.Object != "key" {
		t.Errorf("intent = %+v, want normalized take/key", out.Intent)
	}
}

func TestNormalize_BackendLikely(t *testing.T) {
	backend := &fakeBackend{result: llm.Result{
		Confidence: llm.ConfidenceLikely, Verb: "go", Object: "north",
	}}
	n := New(testParser(), backend, nil)

	out := n.Normalize(context.Background(), "maybe head north?")
	if !out.Suggested {
		t.Error("likely mapping should be flagged as a suggestion")
	}
	if out.Intent.Verb != "go" || out.Intent.Object != "north" {
		t.Errorf("intent = %+v", out.Intent)
	}
}

func TestNormalize_BackendUnsure_FallsBack(t *testing.T) {
	backend := &fakeBackend{result: llm.Result{Confidence: llm.ConfidenceUnsure}}
	n := New(testParser(), backend, nil)

	out := n.Normalize(context.Background(), "get key")
	if out.Source != SourceParser {
		t.Errorf("source = %v, want parser fallback", out.Source)
	}
	if out.Intent.Verb != "take" || out.Intent.Object != "key" {
		t.Errorf("intent = %+v", out.Intent)
	}
}

func TestNormalize_BackendError_FallsBack(t *testing.T) {
	backend := &fakeBackend{err: errors.New("connection refused")}
	n := New(testParser(), backend, nil)

	out := n.Normalize(context.Background(), "walk south")
	if out.Source != SourceParser {
		t.Errorf("source = %v, want parser fallback", out.Source)
	}
	if out.Intent.Verb != "go" || out.Intent.Object != "south" {
		t.Errorf("intent = %+v", out.Intent)
	}
	if backend.calls != 1 {
		t.Errorf("backend calls = %d, want 1", backend.calls)
	}
}

func TestSetContext_Forwards(t *testing.T) {
	backend := &fakeBackend{}
	n := New(testParser(), backend, nil)
	n.SetContext(llm.Context{Language: "de"})
	if backend.lastCtx.Language != "de" {
		t.Error("context not forwarded to backend")
	}

	// No backend: must not panic.
	New(testParser(), nil, nil).SetContext(llm.Context{})
}
