package forknode

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const defaultRequestTimeout = 60 * time.Second

// ImpersonationNamespaces are the namespaces the impersonation API is
// registered under, matching hardhat and anvil.
var ImpersonationNamespaces = []string{"hardhat", "anvil"}

// ServerOptions configure the JSON-RPC surface
type ServerOptions struct {
	// DisableImpersonation leaves out the hardhat_ and anvil_ namespaces, like
	// a node that is not a local fork.
	DisableImpersonation bool
}

// Server serves a Chain over Ethereum JSON-RPC
type Server struct {
	chain     *Chain
	rpcServer *rpc.Server
	logger    *zap.Logger
}

// NewServer registers the eth, net, web3, evm and impersonation namespaces
// for chain.
func NewServer(chain *Chain, opts ServerOptions, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		chain:     chain,
		rpcServer: rpc.NewServer(),
		logger:    logger,
	}

	apis := map[string]any{
		"eth":  NewEthAPI(s),
		"net":  NewNetAPI(s),
		"web3": NewWeb3API(),
		"evm":  NewEvmAPI(s),
	}
	if !opts.DisableImpersonation {
		for _, ns := range ImpersonationNamespaces {
			apis[ns] = NewHardhatAPI(s, ns)
		}
	}
	for name, api := range apis {
		if err := s.rpcServer.RegisterName(name, api); err != nil {
			return nil, fmt.Errorf("failed to register %s API: %w", name, err)
		}
	}

	logger.Info("Fork node JSON-RPC server initialized",
		zap.String("chain_id", chain.ChainID().String()),
		zap.String("gas_price_wei", chain.GasPrice().String()),
		zap.Bool("automine", chain.Automine()),
		zap.Bool("impersonation", !opts.DisableImpersonation))

	return s, nil
}

// Chain returns the served chain
func (s *Server) Chain() *Chain {
	return s.chain
}

// ServeHTTP handles JSON-RPC requests
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	s.rpcServer.ServeHTTP(w, r)
}

// Handler returns the HTTP router: JSON-RPC on /, plus /health and /metrics
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(defaultRequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/", s)

	return r
}

// Stop closes the JSON-RPC server
func (s *Server) Stop() {
	s.rpcServer.Stop()
}
