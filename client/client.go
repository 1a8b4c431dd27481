package client

import (
	"github.com/walrus-storage/walrus-client-core/internal/chain"
	"github.com/walrus-storage/walrus-client-core/internal/codec"
	"github.com/walrus-storage/walrus-client-core/internal/committee"
	"github.com/walrus-storage/walrus-client-core/internal/transport"
)

// Client is the Walrus client core: the mutable cache of §3
// ("activeCommittee, readCommittee, objectLoader") plus the collaborators
// the read/write paths dispatch through. All per-operation state
// (controllers, counters) lives inside each call, never on Client.
type Client struct {
	Config *WalrusClientConfig

	PackageConfig PackageConfig

	Loader    chain.ObjectLoader
	Executor  chain.Executor
	Transport *transport.Client
	Erasure   codec.Erasure
	BLS       *codec.BLSVerifier

	View *committee.View
}

// New constructs a Client from configuration and the chain/codec
// collaborators. Transport is built here since it is stateless and safe
// for concurrent use (spec §5); Loader and Executor are supplied by the
// caller since they wrap the chain client, which is out of scope for this
// core (spec §1).
func New(cfg *WalrusClientConfig, loader chain.ObjectLoader, executor chain.Executor, erasure codec.Erasure) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pkgCfg, err := cfg.resolvedPackageConfig()
	if err != nil {
		return nil, err
	}
	return &Client{
		Config:        cfg,
		PackageConfig: pkgCfg,
		Loader:        loader,
		Executor:      executor,
		Transport:     transport.New(cfg.transportOptions()),
		Erasure:       erasure,
		BLS:           codec.NewBLSVerifier(),
		View:          committee.New(loader),
	}, nil
}

// Reset drops the client's committee cache and object loader cache (spec
// §3: "reset() drops the cache"), used after a RetryableWalrusClientError.
func (c *Client) Reset() {
	c.View.Reset()
}
