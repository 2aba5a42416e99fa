package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func echoTool(name string) *Tool {
	return &Tool{
		Name:        name,
		Description: "echoes its input",
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{"text": map[string]any{"type": "string"}},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			text, _ := args["text"].(string)
			return "echo: " + text, nil
		},
	}
}

func TestRegister_RejectsDuplicates(t *testing.T) {
	reg := NewRegistry(testLogger())
	if err := reg.Register(echoTool("echo")); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := reg.Register(echoTool("echo")); err == nil {
		t.Fatal("duplicate register should fail")
	}
}

func TestRegister_RejectsInvalid(t *testing.T) {
	reg := NewRegistry(testLogger())
	if err := reg.Register(nil); err == nil {
		t.Error("nil tool should fail")
	}
	if err := reg.Register(&Tool{Name: ""}); err == nil {
		t.Error("empty name should fail")
	}
	if err := reg.Register(&Tool{Name: "broken"}); err == nil {
		t.Error("nil handler should fail")
	}
}

func TestNames_Sorted(t *testing.T) {
	reg := NewRegistry(testLogger())
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := reg.Register(echoTool(name)); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	got := reg.Names()
	want := []string{"alpha", "mid", "zeta"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestSpecs_ShapeAndDefaults(t *testing.T) {
	reg := NewRegistry(testLogger())
	reg.MustRegister(&Tool{
		Name:        "bare",
		Description: "no params declared",
		Handler:     func(ctx context.Context, args map[string]any) (string, error) { return "", nil },
	})

	specs := reg.Specs()
	if len(specs) != 1 {
		t.Fatalf("specs length = %d, want 1", len(specs))
	}
	fn, ok := specs[0]["function"].(map[string]any)
	if !ok {
		t.Fatalf("spec missing function block: %v", specs[0])
	}
	if fn["name"] != "bare" {
		t.Errorf("name = %v", fn["name"])
	}
	params, ok := fn["parameters"].(map[string]any)
	if !ok || params["type"] != "object" {
		t.Errorf("nil parameters should default to an empty object schema, got %v", fn["parameters"])
	}
}

func TestDispatch_Success(t *testing.T) {
	reg := NewRegistry(testLogger())
	reg.MustRegister(echoTool("echo"))

	got := reg.Dispatch(context.Background(), "echo", `{"text":"hi"}`)
	if got != "echo: hi" {
		t.Errorf("Dispatch = %q", got)
	}
}

func TestDispatch_UnknownTool(t *testing.T) {
	reg := NewRegistry(testLogger())
	got := reg.Dispatch(context.Background(), "nope", "{}")
	if !strings.Contains(got, `no tool named "nope"`) {
		t.Errorf("Dispatch = %q, want unknown-tool text", got)
	}
}

func TestDispatch_BadArguments(t *testing.T) {
	reg := NewRegistry(testLogger())
	reg.MustRegister(echoTool("echo"))

	got := reg.Dispatch(context.Background(), "echo", `{not json`)
	if !strings.Contains(got, "invalid arguments for echo") {
		t.Errorf("Dispatch = %q, want invalid-arguments text", got)
	}
}

func TestDispatch_HandlerError(t *testing.T) {
	reg := NewRegistry(testLogger())
	reg.MustRegister(&Tool{
		Name: "failing",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return "", errors.New("upstream offline")
		},
	})

	got := reg.Dispatch(context.Background(), "failing", "{}")
	if got != "Error from failing: upstream offline" {
		t.Errorf("Dispatch = %q", got)
	}
}

func TestDispatch_HandlerPanic(t *testing.T) {
	reg := NewRegistry(testLogger())
	reg.MustRegister(&Tool{
		Name: "explosive",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			panic("boom")
		},
	})

	got := reg.Dispatch(context.Background(), "explosive", "{}")
	if got != "Error: the explosive tool failed unexpectedly." {
		t.Errorf("Dispatch = %q", got)
	}
}

func TestDispatch_ConcurrentReads(t *testing.T) {
	reg := NewRegistry(testLogger())
	for i := range 5 {
		reg.MustRegister(echoTool(fmt.Sprintf("tool%d", i)))
	}

	done := make(chan struct{})
	for i := range 10 {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := range 100 {
				name := fmt.Sprintf("tool%d", (i+j)%5)
				if got := reg.Dispatch(context.Background(), name, `{"text":"x"}`); got != "echo: x" {
					t.Errorf("Dispatch(%s) = %q", name, got)
					return
				}
			}
		}()
	}
	for range 10 {
		<-done
	}
}
