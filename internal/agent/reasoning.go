package agent

import (
	"fmt"
	"strings"
	"sync"
)

// ReasoningCollector accumulates the model's intermediate thinking
// during one generation call: structured reasoning fields, tool-call
// trace lines, and <think> spans inlined into content. One collector is
// created per call and drained once at the end; it is never shared
// between concurrent generations.
type ReasoningCollector struct {
	mu    sync.Mutex
	lines []string
}

// NewReasoningCollector creates an empty collector.
func NewReasoningCollector() *ReasoningCollector {
	return &ReasoningCollector{}
}

func (c *ReasoningCollector) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	c.mu.Lock()
	c.lines = append(c.lines, line)
	c.mu.Unlock()
}

// AddReasoning records a structured reasoning fragment from a model
// response.
func (c *ReasoningCollector) AddReasoning(text string) {
	c.add(text)
}

// AddToolCall records a tool invocation the model requested.
func (c *ReasoningCollector) AddToolCall(name, args string) {
	c.add(fmt.Sprintf("[Tool Call] %s with args: %s", name, args))
}

// AddToolResult records the text a tool returned.
func (c *ReasoningCollector) AddToolResult(name, result string) {
	c.add(fmt.Sprintf("[Tool Result] %s: %s", name, result))
}

// AddModelError records a provider error observed mid-call, so the
// trace shows why a generation went sideways.
func (c *ReasoningCollector) AddModelError(err error) {
	if err == nil {
		return
	}
	c.add(fmt.Sprintf("[Model Error] %v", err))
}

// CollectThink extracts <think>...</think> spans from raw response text
// and records them. Used for providers that inline reasoning into the
// content stream instead of exposing it structurally.
func (c *ReasoningCollector) CollectThink(text string) {
	for _, span := range ExtractThink(text) {
		c.add(span)
	}
}

// Reset discards everything collected so far.
func (c *ReasoningCollector) Reset() {
	c.mu.Lock()
	c.lines = nil
	c.mu.Unlock()
}

// Drain returns the collected reasoning, one fragment per line in
// observation order.
func (c *ReasoningCollector) Drain() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.lines, "\n")
}
