// Package telemetry emits structured JSONL events for offline inspection of
// chat traffic: window sizes, latency, provider failures. Emission is off
// unless CHATD_OBSERVE_JSON=1.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var observeEnabled = os.Getenv("CHATD_OBSERVE_JSON") == "1"

// ObserveEnabled reports whether JSONL emission is on. Evaluated at process
// start; tests can flip it mid-run via the environment.
func ObserveEnabled() bool {
	if os.Getenv("CHATD_OBSERVE_JSON") == "1" {
		return true
	}
	return observeEnabled
}

// Emit writes a single JSON line to .chatd/events.jsonl when enabled.
// It augments fields with RFC3339Nano time and the event name.
func Emit(name string, fields map[string]any) {
	if !ObserveEnabled() {
		return
	}

	// Shallow copy so callers' maps aren't mutated.
	m := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		m[k] = v
	}
	m["time"] = time.Now().UTC().Format(time.RFC3339Nano)
	m["event"] = name

	b, err := json.Marshal(m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: marshal: %v\n", err)
		return
	}

	dir := ".chatd"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: mkdir %s: %v\n", dir, err)
		return
	}

	path := filepath.Join(dir, "events.jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: open %s: %v\n", path, err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(b, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: write %s: %v\n", path, err)
	}
}
