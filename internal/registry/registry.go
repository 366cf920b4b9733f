package registry

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MrSnakeDoc/pelican/internal/domain"
)

// RemovalFunc is called with the names of services that left the configuration.
type RemovalFunc func(names []string)

// Registry is the in-memory list of monitored services, keyed by name.
// Order of insertion is preserved so the dashboard shows services as configured.
type Registry struct {
	mu         sync.RWMutex
	services   []domain.ServiceDescriptor
	lastReload time.Time
	onRemove   RemovalFunc
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{}
}

// OnRemove registers the hook fired after services are removed.
func (r *Registry) OnRemove(fn RemovalFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRemove = fn
}

// List returns a copy of the configured services.
func (r *Registry) List() []domain.ServiceDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ServiceDescriptor, len(r.services))
	copy(out, r.services)
	return out
}

// Names returns the configured service names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.services))
	for _, s := range r.services {
		names = append(names, s.Name)
	}
	return names
}

// Count returns the number of configured services.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.services)
}

// Get looks up a service by name.
func (r *Registry) Get(name string) (domain.ServiceDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.services {
		if s.Name == name {
			return s, true
		}
	}
	return domain.ServiceDescriptor{}, false
}

// Add appends a service. A service with the same name or url is rejected.
func (r *Registry) Add(desc domain.ServiceDescriptor) error {
	desc = normalize(desc)
	if err := desc.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.services {
		if s.Name == desc.Name || s.URL == desc.URL {
			return fmt.Errorf("%w: %s", domain.ErrServiceExists, desc.Name)
		}
	}
	r.services = append(r.services, desc)
	return nil
}

// Remove deletes a service by name and fires the removal hook.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	idx := -1
	for i, s := range r.services {
		if s.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrServiceNotFound, name)
	}
	r.services = append(r.services[:idx:idx], r.services[idx+1:]...)
	hook := r.onRemove
	r.mu.Unlock()

	if hook != nil {
		hook([]string{name})
	}
	return nil
}

// Replace swaps the whole list (config reload). Invalid and duplicate entries are skipped
// and returned as errors; names that disappeared are reported to the removal hook.
func (r *Registry) Replace(descs []domain.ServiceDescriptor) []error {
	var (
		next    []domain.ServiceDescriptor
		errs    []error
		seenKey = make(map[string]bool, len(descs)*2)
	)
	for _, d := range descs {
		d = normalize(d)
		if err := d.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("service %q: %w", d.Name, err))
			continue
		}
		if seenKey["n:"+d.Name] || seenKey["u:"+d.URL] {
			errs = append(errs, fmt.Errorf("%w: %s", domain.ErrServiceExists, d.Name))
			continue
		}
		seenKey["n:"+d.Name] = true
		seenKey["u:"+d.URL] = true
		next = append(next, d)
	}

	r.mu.Lock()
	var removed []string
	for _, old := range r.services {
		if !seenKey["n:"+old.Name] {
			removed = append(removed, old.Name)
		}
	}
	r.services = next
	r.lastReload = time.Now()
	hook := r.onRemove
	r.mu.Unlock()

	if hook != nil && len(removed) > 0 {
		hook(removed)
	}
	return errs
}

// LastReload returns when Replace last ran.
func (r *Registry) LastReload() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastReload
}

// SeedDefaults removes placeholder services and appends missing defaults.
// It reports whether the list changed, so the caller knows to persist it.
func (r *Registry) SeedDefaults(defaults []domain.ServiceDescriptor, placeholders []string) bool {
	isPlaceholder := make(map[string]bool, len(placeholders))
	for _, p := range placeholders {
		isPlaceholder[p] = true
	}

	r.mu.Lock()
	var (
		kept    []domain.ServiceDescriptor
		removed []string
	)
	for _, s := range r.services {
		if isPlaceholder[s.Name] || strings.Contains(s.URL, "httpstat.us") {
			removed = append(removed, s.Name)
			continue
		}
		kept = append(kept, s)
	}
	changed := len(removed) > 0

	for _, d := range defaults {
		d = normalize(d)
		exists := false
		for _, s := range kept {
			if s.Name == d.Name {
				exists = true
				break
			}
		}
		if !exists {
			kept = append(kept, d)
			changed = true
		}
	}
	r.services = kept
	hook := r.onRemove
	r.mu.Unlock()

	if hook != nil && len(removed) > 0 {
		hook(removed)
	}
	return changed
}

func normalize(d domain.ServiceDescriptor) domain.ServiceDescriptor {
	d.Name = strings.TrimSpace(d.Name)
	d.URL = strings.TrimSpace(d.URL)
	d.Description = strings.TrimSpace(d.Description)
	d.Type = strings.TrimSpace(d.Type)
	return d
}
