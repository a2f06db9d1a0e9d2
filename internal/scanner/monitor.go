package scanner

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay absorbs the burst of events a single download or move
// produces before anything touches the catalog.
const debounceDelay = time.Second

// Monitor keeps the catalog in sync with live filesystem changes under the
// library root.
type Monitor struct {
	scanner *Scanner
	root    string
	watcher *fsnotify.Watcher

	mu       sync.Mutex
	debounce map[string]*time.Timer
}

func NewMonitor(s *Scanner, root string) (*Monitor, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Monitor{
		scanner:  s,
		root:     root,
		watcher:  fw,
		debounce: make(map[string]*time.Timer),
	}, nil
}

// Run watches until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.addRecursive(m.root); err != nil {
		return err
	}
	log.Printf("[monitor] watching %s", m.root)
	defer m.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			m.handle(ctx, event)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[monitor] %v", err)
		}
	}
}

func (m *Monitor) addRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() || m.scanner.ignored(path) {
			return nil
		}
		if _, err := os.Stat(filepath.Join(path, ignoreMarker)); err == nil {
			return filepath.SkipDir
		}
		if err := m.watcher.Add(path); err != nil {
			log.Printf("[monitor] watch %s: %v", path, err)
		}
		return nil
	})
}

func (m *Monitor) handle(ctx context.Context, event fsnotify.Event) {
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, ".tmp") ||
		strings.HasSuffix(base, ".part") {
		return
	}
	if m.scanner.ignored(event.Name) {
		return
	}

	isCreate := event.Has(fsnotify.Create)
	isRemove := event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
	if !isCreate && !isRemove {
		// Writes are the download still in progress.
		return
	}

	if isCreate {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			// A moved-in directory arrives as one event; pick up both the
			// new watch and its contents.
			if err := m.addRecursive(event.Name); err != nil {
				log.Printf("[monitor] watch %s: %v", event.Name, err)
			}
			if err := m.scanner.Scan(ctx, event.Name, false); err != nil {
				log.Printf("[monitor] scan %s: %v", event.Name, err)
			}
			return
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if timer, ok := m.debounce[event.Name]; ok {
		timer.Stop()
	}
	name := event.Name
	m.debounce[name] = time.AfterFunc(debounceDelay, func() {
		m.mu.Lock()
		delete(m.debounce, name)
		m.mu.Unlock()

		var err error
		if isCreate {
			err = m.scanner.ScanFile(ctx, name)
		} else {
			err = m.scanner.Remove(ctx, name)
		}
		if err != nil {
			log.Printf("[monitor] %s: %v", name, err)
		}
	})
}
