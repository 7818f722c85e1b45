package forknode

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// NetAPI implements the net_* JSON-RPC namespace
type NetAPI struct {
	server *Server
}

// NewNetAPI creates a new NetAPI instance
func NewNetAPI(server *Server) *NetAPI {
	return &NetAPI{server: server}
}

// Version returns the network ID, equal to the chain id
func (api *NetAPI) Version() string {
	observe("net_version")
	return api.server.chain.ChainID().String()
}

// Listening returns true
func (api *NetAPI) Listening() bool {
	observe("net_listening")
	return true
}

// PeerCount returns 0; a simulated fork has no peers
func (api *NetAPI) PeerCount() hexutil.Uint {
	observe("net_peerCount")
	return hexutil.Uint(0)
}
