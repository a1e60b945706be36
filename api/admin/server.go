package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kilianp07/evsync/infra/logger"
)

// Config enables the admin API when Address is set.
type Config struct {
	Address string `json:"address"`
	Token   string `json:"token"`
}

func (c Config) Enabled() bool { return c.Address != "" }

func (c Config) Validate() error {
	if c.Enabled() && c.Token == "" {
		return fmt.Errorf("api.token is required when api.address is set")
	}
	return nil
}

// Serve runs the admin API on addr until ctx is canceled.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	log := logger.New("admin-api")
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("admin api shutdown: %v", err)
		}
		cancel()
	}()
	log.Infof("serving admin api on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
