package scheduler

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/pelican/internal/logger"
	"github.com/MrSnakeDoc/pelican/internal/registry"
	"github.com/MrSnakeDoc/pelican/internal/sources/servicefile"
)

// ServiceReloader keeps the registry in sync with services.yaml
type ServiceReloader struct {
	loader   *servicefile.Loader
	watcher  *servicefile.Watcher
	registry *registry.Registry
	logger   logger.Logger
	onReload func()
}

// NewServiceReloader creates a new service reloader. watcher may be nil to disable
// hot reload; onReload, when set, runs after every successful reload.
func NewServiceReloader(
	loader *servicefile.Loader,
	watcher *servicefile.Watcher,
	reg *registry.Registry,
	log logger.Logger,
	onReload func(),
) *ServiceReloader {
	return &ServiceReloader{
		loader:   loader,
		watcher:  watcher,
		registry: reg,
		logger:   log,
		onReload: onReload,
	}
}

// Bootstrap loads the file, seeds the default services and writes the file back if it changed.
func (sr *ServiceReloader) Bootstrap() error {
	if err := sr.Reload(); err != nil {
		return fmt.Errorf("initial service load failed: %w", err)
	}

	if sr.registry.SeedDefaults(servicefile.DefaultServices, servicefile.PlaceholderServices) {
		sr.logger.Info("seeded default services",
			logger.Int("count", sr.registry.Count()))
		if err := sr.Persist(); err != nil {
			return err
		}
	}
	return nil
}

// Start reloads the registry every time the watcher reports a change
func (sr *ServiceReloader) Start(ctx context.Context) {
	if sr.watcher == nil {
		return
	}

	go sr.watcher.Run(ctx)
	go func() {
		for {
			select {
			case <-sr.watcher.Changes():
				if err := sr.Reload(); err != nil {
					sr.logger.Error("failed to reload services",
						logger.Error(err))
					continue
				}
				if sr.onReload != nil {
					sr.onReload()
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Reload reads services.yaml and replaces the registry content
func (sr *ServiceReloader) Reload() error {
	services, err := sr.loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load services: %w", err)
	}

	for _, err := range sr.registry.Replace(services) {
		sr.logger.Warn("skipping service entry", logger.Error(err))
	}

	sr.logger.Info("loaded services",
		logger.String("file", sr.loader.Path()),
		logger.Int("count", sr.registry.Count()))
	return nil
}

// Persist writes the current registry to services.yaml
func (sr *ServiceReloader) Persist() error {
	if err := sr.loader.Save(sr.registry.List()); err != nil {
		return fmt.Errorf("failed to persist services: %w", err)
	}
	return nil
}
