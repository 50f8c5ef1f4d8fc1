package console

import (
	"github.com/jonboulle/clockwork"

	"github.com/quocvuong92/spconsole/internal/backend"
	"github.com/quocvuong92/spconsole/internal/config"
	"github.com/quocvuong92/spconsole/internal/logging"
)

// BackendFactory returns a SessionFactory for the backend selected in cfg.
func BackendFactory(cfg *config.Config, logger *logging.Logger, clk clockwork.Clock) SessionFactory {
	return func(cb backend.Callbacks) (backend.Session, error) {
		if cfg.IsHTTP() {
			s, err := backend.NewHTTP(backend.HTTPOptions{
				Endpoint:  cfg.Endpoint,
				Timeout:   cfg.RequestTimeout,
				Keepalive: cfg.Keepalive,
				Logger:    logger,
				LogHTTP:   cfg.LogHTTP,
			}, cb)
			if err != nil {
				return nil, err
			}
			return s, nil
		}

		s, err := backend.NewSim(backend.SimOptions{
			Users:     cfg.SimUsers,
			Latency:   cfg.SimLatency,
			Keepalive: cfg.Keepalive,
			Clock:     clk,
		}, cb)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}
