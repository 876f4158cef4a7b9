// Package toolapi exposes the tracker as a set of named tools that take JSON
// arguments and return flat JSON objects, over HTTP and WebSocket.
package toolapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/p-n-ai/learning-tracker/internal/tracker"
)

// NoTutorialMessage is returned by every tool that needs a tutorial when the
// store is empty.
const NoTutorialMessage = "No tutorial exists in this project yet. Create one first."

// ErrUnknownTool is returned by Call for names that were never registered.
var ErrUnknownTool = errors.New("unknown tool")

var errNoTutorial = errors.New(NoTutorialMessage)

// Response is the envelope every tool returns: "success" plus the result's
// fields, or "success": false with an "error" message.
type Response map[string]any

// Success reports the envelope's success flag.
func (r Response) Success() bool {
	ok, _ := r["success"].(bool)
	return ok
}

// Error returns the failure message, if any.
func (r Response) Error() string {
	msg, _ := r["error"].(string)
	return msg
}

// Handler runs one tool call.
type Handler func(ctx context.Context, args json.RawMessage) (map[string]any, error)

// Tool describes a registered tool.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`

	handler Handler
}

// Dispatcher routes tool calls to handlers.
type Dispatcher struct {
	tracker   *tracker.Tracker
	validator *argValidator
	tools     map[string]Tool
	mu        sync.RWMutex
}

// NewDispatcher creates a dispatcher with every tracker tool registered.
func NewDispatcher(tr *tracker.Tracker) (*Dispatcher, error) {
	v, err := newArgValidator()
	if err != nil {
		return nil, err
	}
	d := &Dispatcher{
		tracker:   tr,
		validator: v,
		tools:     make(map[string]Tool),
	}
	d.registerTrackerTools()
	return d, nil
}

// Register adds or replaces a tool.
func (d *Dispatcher) Register(t Tool, h Handler) {
	t.handler = h
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tools[t.Name] = t
	slog.Debug("tool registered", "tool", t.Name)
}

// Has reports whether name is registered.
func (d *Dispatcher) Has(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.tools[name]
	return ok
}

// Tools lists the registered tools sorted by name.
func (d *Dispatcher) Tools() []Tool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Tool, 0, len(d.tools))
	for _, t := range d.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Call runs the named tool. Tool failures are reported inside the Response;
// the returned error is only ErrUnknownTool.
func (d *Dispatcher) Call(ctx context.Context, name string, args json.RawMessage) (Response, error) {
	d.mu.RLock()
	tool, ok := d.tools[name]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	result, err := tool.handler(ctx, args)
	if err != nil {
		if !errors.Is(err, errNoTutorial) {
			slog.Warn("tool call failed", "tool", name, "error", err)
		}
		return Response{"success": false, "error": err.Error()}, nil
	}

	resp := Response{"success": true}
	for k, v := range result {
		resp[k] = v
	}
	return resp, nil
}

// flatten turns a tagged struct into result fields.
func flatten(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return out, nil
}
