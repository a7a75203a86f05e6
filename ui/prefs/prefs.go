// Package prefs provides JSON-based application preferences.
package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

const (
	appDir    = "flow-studio"
	prefsFile = "preferences.json"
)

// Preference keys.
const (
	KeyWindowWidth  = "window_width"
	KeyWindowHeight = "window_height"
	KeyLastDir      = "last_dir"
	KeyAPIBaseURL   = "api_base_url"
	KeyShowGrid     = "show_grid"
	KeyShowMinimap  = "show_minimap"
)

// Prefs stores application preferences as a key-value map backed by one
// JSON file. All accessors are safe for concurrent use.
type Prefs struct {
	mu     sync.RWMutex
	values map[string]any
	path   string
}

// Dir returns the application's config directory, shared with the draft
// library database.
func Dir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, appDir)
}

// Load reads preferences from ~/.config/flow-studio/preferences.json. A
// missing or unreadable file yields empty preferences, never an error;
// callers see their fallbacks until the first Save.
func Load() *Prefs {
	return LoadFile(filepath.Join(Dir(), prefsFile))
}

// LoadFile reads preferences from an explicit path.
func LoadFile(path string) *Prefs {
	p := &Prefs{
		values: make(map[string]any),
		path:   path,
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p
	}
	_ = json.Unmarshal(data, &p.values)
	return p
}

// Save writes the preferences back to their file, creating the directory
// when needed.
func (p *Prefs) Save() error {
	p.mu.RLock()
	data, err := json.MarshalIndent(p.values, "", "  ")
	p.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0o644)
}

// String returns a string preference, or fallback if unset.
func (p *Prefs) String(key, fallback string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if s, ok := p.values[key].(string); ok {
		return s
	}
	return fallback
}

// SetString stores a string preference.
func (p *Prefs) SetString(key, val string) {
	p.mu.Lock()
	p.values[key] = val
	p.mu.Unlock()
}

// Float returns a float64 preference, or fallback if unset. JSON numbers
// always decode as float64.
func (p *Prefs) Float(key string, fallback float64) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if n, ok := p.values[key].(float64); ok {
		return n
	}
	return fallback
}

// SetFloat stores a float64 preference.
func (p *Prefs) SetFloat(key string, val float64) {
	p.mu.Lock()
	p.values[key] = val
	p.mu.Unlock()
}

// Bool returns a bool preference, or fallback if unset.
func (p *Prefs) Bool(key string, fallback bool) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if b, ok := p.values[key].(bool); ok {
		return b
	}
	return fallback
}

// SetBool stores a bool preference.
func (p *Prefs) SetBool(key string, val bool) {
	p.mu.Lock()
	p.values[key] = val
	p.mu.Unlock()
}
