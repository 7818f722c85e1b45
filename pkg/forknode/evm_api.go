package forknode

// EvmAPI implements the evm_* mining controls
type EvmAPI struct {
	server *Server
}

// NewEvmAPI creates a new EvmAPI instance
func NewEvmAPI(server *Server) *EvmAPI {
	return &EvmAPI{server: server}
}

// Mine mines one block with every pending transaction
func (api *EvmAPI) Mine() string {
	observe("evm_mine")
	api.server.chain.Mine()
	return "0"
}

// SetAutomine switches between mining on submission and mining on evm_mine
func (api *EvmAPI) SetAutomine(enabled bool) bool {
	observe("evm_setAutomine")
	api.server.chain.SetAutomine(enabled)
	return true
}
