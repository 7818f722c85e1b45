// Package devnode implements app.Runner for `forkctl devnode`: a local
// JSON-RPC node that simulates a mainnet fork for playbook runs.
package devnode

import (
	"context"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"time"

	apperrors "github.com/chainsafe/forkctl/pkg/app/errors"
	"github.com/chainsafe/forkctl/pkg/app/httpserver"
	"github.com/chainsafe/forkctl/pkg/config"
	"github.com/chainsafe/forkctl/pkg/forknode"
	"go.uber.org/zap"
)

const readHeaderTimeout = 10 * time.Second

// Runner serves a seeded fork node until its context is canceled.
type Runner struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewRunner initializes a new devnode Runner.
func NewRunner(cfg *config.Config, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, logger: logger}
}

// Run listens on the configured address and serves until ctx is canceled.
func (r *Runner) Run(ctx context.Context) error {
	if r.cfg == nil {
		return apperrors.BadRequestError(nil, "nil config")
	}
	ln, err := net.Listen("tcp", r.cfg.DevNode.ListenAddress)
	if err != nil {
		return apperrors.ConnectivityError(err, fmt.Sprintf("failed to listen on %s", r.cfg.DevNode.ListenAddress))
	}
	return r.RunListener(ctx, ln)
}

// RunListener serves on an already bound listener. The listener is closed
// when the server stops.
func (r *Runner) RunListener(ctx context.Context, ln net.Listener) error {
	if r.cfg == nil {
		_ = ln.Close()
		return apperrors.BadRequestError(nil, "nil config")
	}

	srv, err := r.newServer()
	if err != nil {
		_ = ln.Close()
		return err
	}
	defer srv.Stop()

	httpServer := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	r.logger.Info("Fork node ready",
		zap.String("rpc_url", "http://"+ln.Addr().String()),
		zap.Uint64("block", srv.Chain().BlockNumber()))

	return httpserver.Serve(ctx, r.logger, httpServer, ln, r.cfg.DevNode.ShutdownTimeout)
}

func (r *Runner) newServer() (*forknode.Server, error) {
	cfg := r.cfg.DevNode

	gasPrice, ok := new(big.Int).SetString(cfg.GasPriceWei, 10)
	if !ok || gasPrice.Sign() < 0 {
		return nil, apperrors.BadRequestError(nil, fmt.Sprintf("invalid gas price %q", cfg.GasPriceWei))
	}

	chain := forknode.NewChain(forknode.Options{
		ChainID:      big.NewInt(cfg.ChainID),
		GasPrice:     gasPrice,
		ManualMining: cfg.ManualMining,
	}, r.logger)

	state := forknode.DefaultState()
	if cfg.StateFile != "" {
		loaded, err := forknode.LoadState(cfg.StateFile)
		if err != nil {
			return nil, apperrors.BadRequestError(err, "failed to load state file")
		}
		state = loaded
		r.logger.Info("Loaded fork state", zap.String("state_file", cfg.StateFile))
	}
	if err := chain.Seed(state); err != nil {
		return nil, apperrors.BadRequestError(err, "failed to seed fork state")
	}

	srv, err := forknode.NewServer(chain, forknode.ServerOptions{}, r.logger)
	if err != nil {
		return nil, apperrors.GeneralError(err)
	}
	return srv, nil
}
