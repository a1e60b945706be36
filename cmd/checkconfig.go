package cmd

import (
	"encoding/json"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evsync/core/syncengine"
)

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Validate the configuration and print the effective settings",
	Args:  cobra.NoArgs,
	RunE:  checkConfig,
}

func init() {
	rootCmd.AddCommand(checkConfigCmd)
}

type syncView struct {
	AdapterID          string   `json:"adapter_id"`
	ServiceCheckEvery  string   `json:"service_check_every"`
	StatusFlushEvery   string   `json:"status_flush_every"`
	StatusRefreshEvery string   `json:"status_refresh_every"`
	RequestTimeout     string   `json:"request_timeout"`
	StatusTTL          string   `json:"status_ttl"`
	Disabled           []string `json:"disabled,omitempty"`
}

func newSyncView(c syncengine.Config) syncView {
	v := syncView{
		AdapterID:          c.AdapterID,
		ServiceCheckEvery:  c.ServiceCheckEvery.String(),
		StatusFlushEvery:   c.StatusFlushEvery.String(),
		StatusRefreshEvery: c.StatusRefreshEvery.String(),
		RequestTimeout:     c.RequestTimeout.String(),
		StatusTTL:          c.StatusTTL.String(),
	}
	for name, off := range map[string]bool{
		"push_data":      c.DisablePushData,
		"push_status":    c.DisablePushStatus,
		"authentication": c.DisableAuthentication,
		"send_cdrs":      c.DisableSendCDRs,
		"status_refresh": c.DisableStatusRefresh,
	} {
		if off {
			v.Disabled = append(v.Disabled, name)
		}
	}
	sort.Strings(v.Disabled)
	return v
}

// effective lists the settings without credentials.
type effective struct {
	Sync     syncView `json:"sync"`
	Remote   string   `json:"remote"`
	Auth     string   `json:"remote_auth"`
	Feed     string   `json:"feed,omitempty"`
	Sinks    []string `json:"sinks,omitempty"`
	PromPort string   `json:"prometheus_port,omitempty"`
	AdminAPI string   `json:"admin_api,omitempty"`
	Journal  string   `json:"journal,omitempty"`
	LogLevel string   `json:"log_level"`
	Sentry   bool     `json:"sentry"`
}

func checkConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	view := effective{
		Sync:     newSyncView(cfg.Sync),
		Remote:   cfg.Remote.BaseURL,
		Auth:     "none",
		PromPort: cfg.Metrics.PrometheusPort,
		AdminAPI: cfg.API.Address,
		LogLevel: cfg.Logging.Level,
		Sentry:   cfg.Sentry.DSN != "",
	}
	switch {
	case cfg.Remote.OAuth != nil:
		view.Auth = "oauth2"
	case cfg.Remote.APIKey != "":
		view.Auth = "api_key"
	}
	if cfg.MQTT.Enabled() {
		view.Feed = cfg.MQTT.Broker + " " + cfg.MQTT.TopicPrefix + "/#"
	}
	if cfg.Journal.Enabled() {
		view.Journal = cfg.Journal.Backend + ":" + cfg.Journal.Path
	}
	for _, s := range cfg.Metrics.Sinks {
		view.Sinks = append(view.Sinks, s.Type)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}
