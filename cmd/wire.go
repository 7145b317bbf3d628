package cmd

import (
	"fmt"
	"time"

	"github.com/fakeyudi/pulse/internal/agent"
	"github.com/fakeyudi/pulse/internal/collector"
	"github.com/fakeyudi/pulse/internal/deps"
	"github.com/fakeyudi/pulse/internal/heartbeat"
	"github.com/fakeyudi/pulse/internal/settings"
)

// stores opens the shared settings file and the internal state file.
func stores() (*settings.FileStore, *settings.FileStore, error) {
	settingsPath, internalPath, err := settings.DefaultPaths()
	if err != nil {
		return nil, nil, err
	}
	return settings.NewFileStore(settingsPath), settings.NewFileStore(internalPath), nil
}

// newManager builds the collector manager using the proxy from settings.
func newManager(user, internal settings.Store) (*deps.Manager, error) {
	s := settings.Load(user)
	plugin, _ := heartbeat.Identity{
		HostName:     cfg.HostName,
		HostVersion:  cfg.HostVersion,
		AgentVersion: version,
	}.PluginString()
	return deps.NewManager(deps.Options{
		ResourcesDir:  cfg.ResourcesDir,
		RefreshWindow: time.Duration(cfg.RefreshWindow),
		Plugin:        plugin,
		Internal:      internal,
		Fetcher:       deps.NewFetcher(deps.FetcherOptions{Proxy: s.Proxy, Logger: logger}),
		Logger:        logger,
	})
}

// newAgent wires an Agent over the default stores and manager.
func newAgent(editor collector.EditorState) (*agent.Agent, error) {
	user, internal, err := stores()
	if err != nil {
		return nil, err
	}
	mgr, err := newManager(user, internal)
	if err != nil {
		return nil, fmt.Errorf("collector manager: %w", err)
	}
	return agent.New(agent.Options{
		Config:       cfg,
		AgentVersion: version,
		Settings:     user,
		Installer:    mgr,
		Editor:       editor,
		Logger:       logger,
	})
}
