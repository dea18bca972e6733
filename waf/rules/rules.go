package rules

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

// Rule is one manual whitelist or ban entry
type Rule struct {
	Identity  string     `yaml:"identity" json:"identity"`
	Reason    string     `yaml:"reason,omitempty" json:"reason,omitempty"`
	AddedBy   string     `yaml:"added_by,omitempty" json:"added_by,omitempty"`
	CreatedAt time.Time  `yaml:"created_at,omitempty" json:"created_at,omitempty"`
	ExpiresAt *time.Time `yaml:"expires_at,omitempty" json:"expires_at,omitempty"` // nil = permanent
}

// Expired reports whether the rule has lapsed at now
func (r Rule) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// File is the on-disk YAML layout
type File struct {
	Version   string `yaml:"version"`
	Whitelist []Rule `yaml:"whitelist"`
	Bans      []Rule `yaml:"bans"`
}

// Set is an immutable lookup snapshot of a rules file
type Set struct {
	whitelist map[string]Rule
	bans      map[string]Rule
}

func newSet(f *File) *Set {
	s := &Set{
		whitelist: make(map[string]Rule, len(f.Whitelist)),
		bans:      make(map[string]Rule, len(f.Bans)),
	}
	for _, r := range f.Whitelist {
		if r.Identity != "" {
			s.whitelist[r.Identity] = r
		}
	}
	for _, r := range f.Bans {
		if r.Identity != "" {
			s.bans[r.Identity] = r
		}
	}
	return s
}

// Parse decodes a rules document
func Parse(data []byte) (*File, error) {
	f := &File{}
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	for i, r := range append(append([]Rule{}, f.Whitelist...), f.Bans...) {
		if r.Identity == "" {
			return nil, fmt.Errorf("rule %d: identity is required", i)
		}
	}
	return f, nil
}

// Manager owns the rules file and swaps in a fresh Set on every reload.
// Lookups never take a lock.
type Manager struct {
	path string
	now  func() time.Time

	current atomic.Pointer[Set]
	writeMu sync.Mutex // serialises Ban/Unban/Reload
}

// Load reads path, creating an empty rules file when it does not exist
func Load(path string) (*Manager, error) {
	if path == "" {
		path = "./config/guard-rules.yaml"
	}
	m := &Manager{path: path, now: time.Now}

	f, err := m.read()
	if errors.Is(err, os.ErrNotExist) {
		f = &File{Version: "1"}
		if err := m.write(f); err != nil {
			return nil, fmt.Errorf("failed to create rules file: %w", err)
		}
	} else if err != nil {
		return nil, err
	}

	m.current.Store(newSet(f))
	log.Printf("[RULES] loaded %s: %d whitelisted, %d banned", path, len(f.Whitelist), len(f.Bans))
	return m, nil
}

// Path returns the rules file location
func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) read() (*File, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func (m *Manager) write(f *File) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal rules: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write rules: %w", err)
	}
	return os.Rename(tmp, m.path)
}

// Reload re-reads the file. A broken file leaves the previous rules active.
func (m *Manager) Reload() error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	f, err := m.read()
	if err != nil {
		return err
	}
	m.current.Store(newSet(f))
	log.Printf("[RULES] reloaded: %d whitelisted, %d banned", len(f.Whitelist), len(f.Bans))
	return nil
}

// Whitelisted reports whether id skips the guard
func (m *Manager) Whitelisted(id string) bool {
	r, ok := m.current.Load().whitelist[id]
	return ok && !r.Expired(m.now())
}

// Banned reports whether id carries a live manual ban, with its reason
func (m *Manager) Banned(id string) (string, bool) {
	r, ok := m.current.Load().bans[id]
	if !ok || r.Expired(m.now()) {
		return "", false
	}
	if r.Reason == "" {
		return "manual ban", true
	}
	return r.Reason, true
}

// Ban adds or replaces a ban and persists it. duration <= 0 is permanent.
func (m *Manager) Ban(id, reason, by string, duration time.Duration) (Rule, error) {
	if id == "" {
		return Rule{}, errors.New("identity is required")
	}
	now := m.now()
	rule := Rule{Identity: id, Reason: reason, AddedBy: by, CreatedAt: now.UTC()}
	if duration > 0 {
		exp := now.Add(duration).UTC()
		rule.ExpiresAt = &exp
	}

	err := m.mutate(func(s *Set) {
		delete(s.whitelist, id)
		s.bans[id] = rule
	})
	return rule, err
}

// Unban removes a ban; it returns false when id was not banned
func (m *Manager) Unban(id string) (bool, error) {
	var found bool
	err := m.mutate(func(s *Set) {
		_, found = s.bans[id]
		delete(s.bans, id)
	})
	return found, err
}

// mutate copies the current set, applies fn, persists and swaps it in
func (m *Manager) mutate(fn func(*Set)) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	cur := m.current.Load()
	next := &Set{
		whitelist: make(map[string]Rule, len(cur.whitelist)),
		bans:      make(map[string]Rule, len(cur.bans)+1),
	}
	for k, v := range cur.whitelist {
		next.whitelist[k] = v
	}
	for k, v := range cur.bans {
		next.bans[k] = v
	}
	fn(next)

	now := m.now()
	f := &File{Version: "1", Whitelist: sortedRules(next.whitelist, now), Bans: sortedRules(next.bans, now)}
	if err := m.write(f); err != nil {
		return err
	}
	m.current.Store(next)
	return nil
}

// sortedRules drops lapsed entries so the file does not grow forever
func sortedRules(in map[string]Rule, now time.Time) []Rule {
	out := make([]Rule, 0, len(in))
	for _, r := range in {
		if !r.Expired(now) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out
}

// Bans lists live bans sorted by identity
func (m *Manager) Bans() []Rule {
	return sortedRules(m.current.Load().bans, m.now())
}

// Whitelist lists live whitelist entries sorted by identity
func (m *Manager) Whitelist() []Rule {
	return sortedRules(m.current.Load().whitelist, m.now())
}

// Stats summarises the active rules
func (m *Manager) Stats() map[string]interface{} {
	return map[string]interface{}{
		"path":        m.path,
		"whitelisted": len(m.Whitelist()),
		"banned":      len(m.Bans()),
	}
}
