package reload

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"topcompras/waf/metrics"
	"topcompras/waf/respond"
)

// Target is one configuration file with the function that applies it
type Target struct {
	Name   string
	Path   string
	Reload func() error
}

// Manager handles configuration file watching and hot-reloading
type Manager struct {
	watcher        *fsnotify.Watcher
	mu             sync.RWMutex
	targets        map[string]Target // cleaned path -> target
	lastReload     map[string]time.Time
	lastError      map[string]string
	reloadDebounce time.Duration
	stopChan       chan struct{}
	stopOnce       sync.Once
}

// Config holds reload manager configuration
type Config struct {
	DebounceTime time.Duration // Minimum time between reloads for same file
	WatchEnabled bool          // Enable automatic file watching
}

// NewManager creates a new reload manager
func NewManager(config Config) (*Manager, error) {
	if config.DebounceTime == 0 {
		config.DebounceTime = 2 * time.Second
	}

	m := &Manager{
		targets:        make(map[string]Target),
		lastReload:     make(map[string]time.Time),
		lastError:      make(map[string]string),
		reloadDebounce: config.DebounceTime,
		stopChan:       make(chan struct{}),
	}

	if config.WatchEnabled {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("failed to create file watcher: %w", err)
		}
		m.watcher = watcher
		go m.watch()
	}

	return m, nil
}

// Register adds a target and, when watching, its directory
func (m *Manager) Register(t Target) error {
	if t.Name == "" || t.Path == "" || t.Reload == nil {
		return errors.New("reload target needs a name, a path and a reload func")
	}
	key := filepath.Clean(t.Path)

	m.mu.Lock()
	m.targets[key] = t
	m.mu.Unlock()

	if m.watcher == nil {
		return nil
	}
	// watch the directory so atomic renames are seen
	if err := m.watcher.Add(filepath.Dir(key)); err != nil {
		log.Printf("[RELOAD] could not watch %s (automatic reloads unavailable): %v", t.Path, err)
		return err
	}
	log.Printf("[RELOAD] monitoring %s for changes: %s", t.Name, t.Path)
	return nil
}

// watch monitors file system events
func (m *Manager) watch() {
	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				m.handleFileChange(event.Name)
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[RELOAD] file watcher error: %v", err)

		case <-m.stopChan:
			return
		}
	}
}

// handleFileChange reloads the target for path unless it was reloaded
// within the debounce window
func (m *Manager) handleFileChange(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.targets[filepath.Clean(path)]
	if !ok {
		return
	}

	if last, exists := m.lastReload[t.Name]; exists && time.Since(last) < m.reloadDebounce {
		return
	}

	log.Printf("[RELOAD] %s changed, reloading %s", t.Path, t.Name)
	m.run(t)
}

// run must be called with m.mu held
func (m *Manager) run(t Target) error {
	if err := t.Reload(); err != nil {
		m.lastError[t.Name] = err.Error()
		log.Printf("[RELOAD] failed to reload %s: %v", t.Name, err)
		metrics.ConfigReloads.WithLabelValues("error").Inc()
		return err
	}
	delete(m.lastError, t.Name)
	m.lastReload[t.Name] = time.Now()
	metrics.ConfigReloads.WithLabelValues("success").Inc()
	return nil
}

// ReloadAll manually reloads every registered target
func (m *Manager) ReloadAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, t := range m.sortedTargets() {
		if err := m.run(t); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) sortedTargets() []Target {
	out := make([]Target, 0, len(m.targets))
	for _, t := range m.targets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// GetLastReloadTime returns the last successful reload of a target
func (m *Manager) GetLastReloadTime(name string) (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, exists := m.lastReload[name]
	return t, exists
}

// GetStatus returns the current status of the reload manager
func (m *Manager) GetStatus() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make(map[string]string, len(m.targets))
	last := make(map[string]string, len(m.lastReload))
	for _, t := range m.targets {
		files[t.Name] = t.Path
	}
	for name, ts := range m.lastReload {
		last[name] = ts.Format(time.RFC3339)
	}
	errs := make(map[string]string, len(m.lastError))
	for name, e := range m.lastError {
		errs[name] = e
	}

	return map[string]interface{}{
		"watching":      m.watcher != nil,
		"files":         files,
		"debounce_time": m.reloadDebounce.String(),
		"last_reloads":  last,
		"last_errors":   errs,
	}
}

// Handler serves POST /reload
func (m *Manager) Handler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respond.MethodNotAllowed(w)
		return
	}
	if err := m.ReloadAll(); err != nil {
		respond.Error(w, http.StatusInternalServerError, "reload failed", err.Error())
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{"success": true, "status": m.GetStatus()})
}

// StatusHandler serves GET /reload/status
func (m *Manager) StatusHandler(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, m.GetStatus())
}

// WatchSignals reloads everything on SIGHUP until ctx is done
func (m *Manager) WatchSignals(ctx context.Context) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP)
	go func() {
		defer signal.Stop(sig)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sig:
				log.Println("[RELOAD] SIGHUP received, reloading configuration")
				if err := m.ReloadAll(); err != nil {
					log.Printf("[RELOAD] %v", err)
				}
			}
		}
	}()
}

// Stop stops the file watcher
func (m *Manager) Stop() error {
	var err error
	m.stopOnce.Do(func() {
		close(m.stopChan)
		if m.watcher != nil {
			err = m.watcher.Close()
		}
	})
	return err
}
