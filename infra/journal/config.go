package journal

import "fmt"

const (
	BackendJSONL  = "jsonl"
	BackendSQLite = "sqlite"
)

// Config defines the outcome journal store. An empty backend disables it.
type Config struct {
	// Backend selects the store type: "jsonl" or "sqlite".
	Backend string `json:"backend"`
	// Path is the file location of the store.
	Path string `json:"path"`
	// MaxSizeMB triggers rotation when the JSONL file exceeds this size in megabytes.
	MaxSizeMB int `json:"max_size_mb"`
	// MaxBackups limits the number of rotated files to keep.
	MaxBackups int `json:"max_backups"`
	// MaxAgeDays removes rotated files older than this number of days.
	MaxAgeDays int `json:"max_age_days"`
}

func (c Config) Enabled() bool { return c.Backend != "" }

// SetDefaults applies defaults when the journal is enabled.
func (c *Config) SetDefaults() {
	if !c.Enabled() || c.Path != "" {
		return
	}
	if c.Backend == BackendSQLite {
		c.Path = "outcomes.db"
	} else {
		c.Path = "outcomes.jsonl"
	}
}

func (c Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if c.Backend != BackendJSONL && c.Backend != BackendSQLite {
		return fmt.Errorf("journal: unknown backend %s", c.Backend)
	}
	if c.Path == "" {
		return fmt.Errorf("journal.path is required")
	}
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return fmt.Errorf("journal: rotation limits must not be negative")
	}
	return nil
}

// Open creates the store selected by cfg.
func Open(cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendJSONL:
		return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case BackendSQLite:
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("journal: unknown backend %q", cfg.Backend)
	}
}
