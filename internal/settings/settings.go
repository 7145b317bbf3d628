package settings

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Keys in the settings section.
const (
	KeyAPIKey           = "api_key"
	KeyAPIKeyVaultCmd   = "api_key_vault_cmd"
	KeyAPIURL           = "api_url"
	KeyProxy            = "proxy"
	KeyDebug            = "debug"
	KeyMetrics          = "metrics"
	KeyStatusBarEnabled = "status_bar_enabled"
)

// Keys in the internal section of the internal state file.
const (
	KeyCLIVersionLastAccessed = "cli_version_last_accessed"
	KeyCLIVersionLastModified = "cli_version_last_modified"
	KeyCLIVersion             = "cli_version"
)

// DefaultAPIURL is written into the settings file when no api_url is set.
const DefaultAPIURL = "http://localhost:14400/api/v1"

// ErrInvalidAPIKey is returned when a key is not a UUID, optionally
// prefixed with "waka_".
var ErrInvalidAPIKey = errors.New("invalid api key")

// ValidateAPIKey reports whether key has the expected shape.
func ValidateAPIKey(key string) error {
	key = strings.TrimPrefix(strings.TrimSpace(key), "waka_")
	if _, err := uuid.Parse(key); err != nil || len(key) != 36 {
		return ErrInvalidAPIKey
	}
	return nil
}

// Settings is a typed snapshot of the settings section.
type Settings struct {
	Proxy            string
	Debug            bool
	Metrics          bool
	StatusBarEnabled bool
	APIURL           string
}

// Load reads a Settings snapshot from store. status_bar_enabled defaults to
// true; debug and metrics default to false.
func Load(store Store) Settings {
	s := Settings{StatusBarEnabled: true, APIURL: DefaultAPIURL}
	if v, ok := store.Get(SectionSettings, KeyProxy); ok {
		s.Proxy = v
	}
	if v, ok := store.Get(SectionSettings, KeyDebug); ok {
		s.Debug = parseBool(v)
	}
	if v, ok := store.Get(SectionSettings, KeyMetrics); ok {
		s.Metrics = parseBool(v)
	}
	if v, ok := store.Get(SectionSettings, KeyStatusBarEnabled); ok && v != "" {
		s.StatusBarEnabled = parseBool(v)
	}
	if v, ok := store.Get(SectionSettings, KeyAPIURL); ok && v != "" {
		s.APIURL = v
	}
	return s
}

// EnsureAPIURL writes DefaultAPIURL when no api_url is configured.
func EnsureAPIURL(store Store) error {
	if v, ok := store.Get(SectionSettings, KeyAPIURL); ok && v != "" {
		return nil
	}
	return store.Set(SectionSettings, KeyAPIURL, DefaultAPIURL)
}

func parseBool(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "true")
}

// Credentials caches the api key. Once a non-empty key has been read it is
// only replaced through SetAPIKey.
type Credentials struct {
	store Store

	mu  sync.RWMutex
	key string
}

// NewCredentials returns a cache over store.
func NewCredentials(store Store) *Credentials {
	return &Credentials{store: store}
}

// APIKey returns the cached key, reading the store on a miss. An empty
// string means no key is configured, or the key is resolved by the
// collector itself through api_key_vault_cmd.
func (c *Credentials) APIKey() string {
	c.mu.RLock()
	key := c.key
	c.mu.RUnlock()
	if key != "" {
		return key
	}

	v, _ := c.store.Get(SectionSettings, KeyAPIKey)
	if v == "" {
		return ""
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.key == "" {
		c.key = v
	}
	return c.key
}

// UsesVault reports whether the key is supplied by a vault command.
func (c *Credentials) UsesVault() bool {
	v, ok := c.store.Get(SectionSettings, KeyAPIKeyVaultCmd)
	return ok && v != ""
}

// SetAPIKey persists key and updates the cache immediately.
func (c *Credentials) SetAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if err := c.store.Set(SectionSettings, KeyAPIKey, key); err != nil {
		return err
	}
	c.mu.Lock()
	c.key = key
	c.mu.Unlock()
	return nil
}
