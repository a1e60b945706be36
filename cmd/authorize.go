package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evsync/core/ack"
	"github.com/kilianp07/evsync/core/syncengine"
	"github.com/kilianp07/evsync/infra/logger"
	"github.com/kilianp07/evsync/infra/ochp"
)

var authorizeCmd = &cobra.Command{
	Use:   "authorize <token>",
	Short: "Ask the clearing house whether a token may charge",
	Args:  cobra.ExactArgs(1),
	RunE:  authorize,
}

func init() {
	rootCmd.AddCommand(authorizeCmd)
}

func authorize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return err
	}
	client, err := ochp.New(cfg.Remote)
	if err != nil {
		return fmt.Errorf("remote client: %w", err)
	}
	engine, err := syncengine.New(cfg.Sync, client, syncengine.WithLogger(logger.New("authorize-command")))
	if err != nil {
		return err
	}
	defer engine.Close()

	res, err := engine.Authorize(contextOf(cmd), args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "%s: %s", res.Token, res.Kind)
	if res.ProviderID != "" {
		_, _ = fmt.Fprintf(out, " (provider %s)", res.ProviderID)
	}
	if res.Description != "" {
		_, _ = fmt.Fprintf(out, " - %s", res.Description)
	}
	_, _ = fmt.Fprintln(out)
	if res.Kind != ack.Authorized {
		return fmt.Errorf("token %s is %s", res.Token, res.Kind)
	}
	return nil
}
