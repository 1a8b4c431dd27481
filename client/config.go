// Package client is the top-level Walrus client: configuration, the
// committee/object-loader cache, and the read/write entry points.
package client

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/walrus-storage/walrus-client-core/internal/errs"
	"github.com/walrus-storage/walrus-client-core/internal/transport"
)

// PackageConfig is the explicit Move package/object id set (spec §6).
type PackageConfig struct {
	PackageID       string
	LatestPackageID string
	WalPackageID    string
	SystemObjectID  string
	StakingPoolID   string
}

// testnetPackageConfig is the "testnet" network preset (spec §6:
// `network` is a "well-known preset selector, currently testnet").
var testnetPackageConfig = PackageConfig{
	PackageID:       "0x1",
	LatestPackageID: "0x1",
	WalPackageID:    "0x2",
	SystemObjectID:  "0x5",
	StakingPoolID:   "0x6",
}

// StorageNodeClientOptions configures the per-node HTTP transport.
type StorageNodeClientOptions struct {
	Timeout   time.Duration
	UserAgent string
}

// WalrusClientConfig is the recognized configuration surface (spec §6).
type WalrusClientConfig struct {
	Network                  string
	PackageConfig             *PackageConfig
	SuiRPCURL                 string
	StorageNodeClientOptions  StorageNodeClientOptions
}

// LoadConfig loads a WalrusClientConfig from the given viper instance,
// mirroring the teacher's spf13/viper-based node configuration loading.
func LoadConfig(v *viper.Viper) (*WalrusClientConfig, error) {
	cfg := &WalrusClientConfig{
		Network:    v.GetString("network"),
		SuiRPCURL:  v.GetString("suiRpcUrl"),
		StorageNodeClientOptions: StorageNodeClientOptions{
			Timeout:   v.GetDuration("storageNodeClientOptions.timeout"),
			UserAgent: v.GetString("storageNodeClientOptions.userAgent"),
		},
	}
	if v.IsSet("packageConfig") {
		cfg.PackageConfig = &PackageConfig{
			PackageID:       v.GetString("packageConfig.packageId"),
			LatestPackageID: v.GetString("packageConfig.latestPackageId"),
			WalPackageID:    v.GetString("packageConfig.walPackageId"),
			SystemObjectID:  v.GetString("packageConfig.systemObjectId"),
			StakingPoolID:   v.GetString("packageConfig.stakingPoolId"),
		}
	}
	return cfg, cfg.Validate()
}

// Validate enforces spec §6: packageConfig is required if no network
// preset is given.
func (c *WalrusClientConfig) Validate() error {
	if c.Network == "" && c.PackageConfig == nil {
		return errs.NewWalrusClientError("WalrusClientConfig: either network or packageConfig must be set")
	}
	if c.Network != "" && c.Network != "testnet" {
		return errs.NewWalrusClientError("WalrusClientConfig: unrecognized network preset %q", c.Network)
	}
	return nil
}

// resolvedPackageConfig returns the explicit packageConfig, or the preset
// for the configured network.
func (c *WalrusClientConfig) resolvedPackageConfig() (PackageConfig, error) {
	if c.PackageConfig != nil {
		return *c.PackageConfig, nil
	}
	switch c.Network {
	case "testnet":
		return testnetPackageConfig, nil
	default:
		return PackageConfig{}, errors.Errorf("client: no package config available for network %q", c.Network)
	}
}

func (c *WalrusClientConfig) transportOptions() transport.Options {
	return transport.Options{
		Timeout:   c.StorageNodeClientOptions.Timeout,
		UserAgent: c.StorageNodeClientOptions.UserAgent,
	}
}
