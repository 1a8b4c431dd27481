// Command walrus-client is the thin CLI surface over the client core:
// load configuration, assemble a client.Client, and dispatch a read,
// write, or status-query to it. Chain RPC and erasure-coding are external
// collaborators (spec §1); this binary is wired against whatever backend
// package registers itself through RegisterBackend, the same deferred-
// assembly shape the teacher's node command uses for its host/consensus/
// blockchain services before calling into node.New.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/walrus-storage/walrus-client-core/client"
	"github.com/walrus-storage/walrus-client-core/internal/chain"
	"github.com/walrus-storage/walrus-client-core/internal/codec"
	"github.com/walrus-storage/walrus-client-core/internal/logging"
	"github.com/walrus-storage/walrus-client-core/internal/shard"
	"github.com/walrus-storage/walrus-client-core/read"
	"github.com/walrus-storage/walrus-client-core/write"
)

// Backend supplies the chain and erasure-coding collaborators a concrete
// deployment wires in; walrus-client-core only consumes the interfaces.
type Backend struct {
	Loader   chain.ObjectLoader
	Executor chain.Executor
	Erasure  codec.Erasure
}

// BackendFactory builds a Backend from the resolved configuration.
type BackendFactory func(cfg *client.WalrusClientConfig) (*Backend, error)

var registeredBackend BackendFactory

// RegisterBackend installs the chain/codec backend this binary dispatches
// through. A build that links a concrete Sui-RPC and native-codec package
// calls this from an init() function; without one, every command fails
// fast with a clear configuration error instead of panicking on a nil
// collaborator.
func RegisterBackend(f BackendFactory) { registeredBackend = f }

func main() {
	app := cli.NewApp()
	app.Name = "walrus-client"
	app.Usage = "read, write, and inspect blobs against a Walrus deployment"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "path to a YAML client configuration file",
		},
	}
	app.Commands = []cli.Command{
		readCommand,
		writeCommand,
		statusCommand,
	}

	if err := app.Run(os.Args); err != nil {
		logging.Logger().Error().Err(err).Msg("walrus-client: command failed")
		os.Exit(1)
	}
}

// requestLogger returns a sub-logger tagged with a fresh correlation id for
// one command invocation, the pborman/uuid-based request-id pattern the
// teacher stamps on inbound RPCs before logging their handling.
func requestLogger(command string) (string, zerolog.Logger) {
	id := uuid.New()
	return id, logging.Logger().With().Str("request_id", id).Str("command", command).Logger()
}

func loadClient(c *cli.Context) (*client.Client, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	path := c.GlobalString("config")
	if path == "" {
		return nil, errors.New("walrus-client: --config is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "walrus-client: open config")
	}
	defer f.Close()
	if err := v.ReadConfig(f); err != nil {
		return nil, errors.Wrap(err, "walrus-client: parse config")
	}

	cfg, err := client.LoadConfig(v)
	if err != nil {
		return nil, err
	}

	if registeredBackend == nil {
		return nil, errors.New("walrus-client: no chain/codec backend registered for this build")
	}
	backend, err := registeredBackend(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "walrus-client: assemble backend")
	}

	return client.New(cfg, backend.Loader, backend.Executor, backend.Erasure)
}

func parseBlobID(hexID string) (shard.ID, error) {
	var id shard.ID
	raw, err := hex.DecodeString(hexID)
	if err != nil {
		return id, errors.Wrap(err, "walrus-client: invalid blob id")
	}
	if len(raw) != shard.IDLength {
		return id, errors.Errorf("walrus-client: blob id must be %d bytes, got %d", shard.IDLength, len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

var readCommand = cli.Command{
	Name:      "read",
	Usage:     "fetch and reconstruct a blob",
	ArgsUsage: "<blobId> <outputPath>",
	Action: func(c *cli.Context) error {
		if c.NArg() < 2 {
			return cli.NewExitError("usage: walrus-client read <blobId> <outputPath>", 1)
		}
		reqID, log := requestLogger("read")
		cl, err := loadClient(c)
		if err != nil {
			return err
		}
		blobID, err := parseBlobID(c.Args().Get(0))
		if err != nil {
			return err
		}
		log.Info().Str("blob_id", blobID.String()).Msg("reading blob")
		data, err := read.ReadBlob(context.Background(), cl, blobID)
		if err != nil {
			return errors.Wrapf(err, "request %s", reqID)
		}
		if err := ioutil.WriteFile(c.Args().Get(1), data, 0o644); err != nil {
			return errors.Wrap(err, "walrus-client: write output")
		}
		fmt.Printf("wrote %d bytes to %s\n", len(data), c.Args().Get(1))
		return nil
	},
}

var writeCommand = cli.Command{
	Name:      "write",
	Usage:     "encode and store a blob",
	ArgsUsage: "<inputPath>",
	Flags: []cli.Flag{
		cli.Uint64Flag{Name: "epochs", Value: 1, Usage: "number of epochs to store for"},
		cli.BoolFlag{Name: "deletable", Usage: "register the blob as deletable"},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() < 1 {
			return cli.NewExitError("usage: walrus-client write <inputPath>", 1)
		}
		reqID, log := requestLogger("write")
		cl, err := loadClient(c)
		if err != nil {
			return err
		}
		data, err := ioutil.ReadFile(c.Args().Get(0))
		if err != nil {
			return errors.Wrap(err, "walrus-client: read input")
		}
		log.Info().Int("size", len(data)).Msg("writing blob")
		res, err := write.WriteBlob(context.Background(), cl, data, write.Options{
			Epochs:          c.Uint64("epochs"),
			Deletable:       c.Bool("deletable"),
			ConcurrencyHint: 16,
		})
		if err != nil {
			return errors.Wrapf(err, "request %s", reqID)
		}
		fmt.Printf("stored blob %s (object %s)\n", res.BlobID.String(), res.BlobObjectID.Hex())
		return nil
	},
}

var statusCommand = cli.Command{
	Name:      "status",
	Usage:     "query the verified lifecycle status of a blob",
	ArgsUsage: "<blobId>",
	Action: func(c *cli.Context) error {
		if c.NArg() < 1 {
			return cli.NewExitError("usage: walrus-client status <blobId>", 1)
		}
		_, log := requestLogger("status")
		cl, err := loadClient(c)
		if err != nil {
			return err
		}
		blobID, err := parseBlobID(c.Args().Get(0))
		if err != nil {
			return err
		}
		ctx := context.Background()
		comm, err := cl.View.ActiveCommittee(ctx)
		if err != nil {
			return err
		}
		log.Info().Str("blob_id", blobID.String()).Msg("querying status")
		kind, err := read.GetVerifiedBlobStatus(ctx, cl, comm, blobID)
		if err != nil {
			return err
		}
		fmt.Println(kind.String())
		return nil
	},
}
