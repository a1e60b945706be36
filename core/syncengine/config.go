package syncengine

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Default intervals and timeouts.
const (
	DefaultServiceCheckEvery  = 31 * time.Second
	DefaultStatusFlushEvery   = 3 * time.Second
	DefaultStatusRefreshEvery = 12 * time.Hour
	DefaultRequestTimeout     = 30 * time.Second
	DefaultStatusTTL          = 15 * time.Minute
)

// Config holds the engine settings. Durations accept Go duration strings
// when loaded through koanf.
type Config struct {
	AdapterID             string        `json:"adapter_id"`
	ServiceCheckEvery     time.Duration `json:"service_check_every"`
	StatusFlushEvery      time.Duration `json:"status_flush_every"`
	StatusRefreshEvery    time.Duration `json:"status_refresh_every"`
	RequestTimeout        time.Duration `json:"request_timeout"`
	StatusTTL             time.Duration `json:"status_ttl"`
	DisablePushData       bool          `json:"disable_push_data"`
	DisablePushStatus     bool          `json:"disable_push_status"`
	DisableAuthentication bool          `json:"disable_authentication"`
	DisableSendCDRs       bool          `json:"disable_send_cdrs"`
	DisableStatusRefresh  bool          `json:"disable_status_refresh"`
}

// SetDefaults fills unset fields. A missing adapter id is replaced by a
// random one.
func (c *Config) SetDefaults() {
	if c.AdapterID == "" {
		c.AdapterID = uuid.NewString()
	}
	if c.ServiceCheckEvery == 0 {
		c.ServiceCheckEvery = DefaultServiceCheckEvery
	}
	if c.StatusFlushEvery == 0 {
		c.StatusFlushEvery = DefaultStatusFlushEvery
	}
	if c.StatusRefreshEvery == 0 {
		c.StatusRefreshEvery = DefaultStatusRefreshEvery
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.StatusTTL == 0 {
		c.StatusTTL = DefaultStatusTTL
	}
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	var errs []error
	if c.ServiceCheckEvery < 0 {
		errs = append(errs, errors.New("service_check_every must be positive"))
	}
	if c.StatusFlushEvery < 0 {
		errs = append(errs, errors.New("status_flush_every must be positive"))
	}
	if c.StatusRefreshEvery < 0 {
		errs = append(errs, errors.New("status_refresh_every must be positive"))
	}
	if c.RequestTimeout < 0 {
		errs = append(errs, errors.New("request_timeout must be positive"))
	}
	if c.StatusTTL < 0 {
		errs = append(errs, errors.New("status_ttl must be positive"))
	}
	return errors.Join(errs...)
}
