// Package transport is the typed, stateless per-node HTTP client (spec
// §4.B). Every call takes a node URL and a cancellation signal and returns
// either a typed response or one of the uniform transport errors in
// internal/errs; no other node-error semantics are allowed to leak upward,
// since the quorum dispatcher's classification step depends on exactly
// this taxonomy.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/walrus-storage/walrus-client-core/internal/errs"
	"github.com/walrus-storage/walrus-client-core/internal/logging"
	"github.com/walrus-storage/walrus-client-core/internal/shard"
)

// routes mirrors the conceptual paths of spec §6 as a gorilla/mux route
// table. The core never serves these routes; it only asks mux to render
// the client-side request path from the same named-parameter templates a
// server built from this table would register, so route shape lives in
// one declarative place instead of being hand-built with fmt.Sprintf at
// every call site.
var routes = mux.NewRouter()

var (
	metadataRoute      = routes.Path("/v1/metadata/{blobId}").Methods(http.MethodGet, http.MethodPut)
	sliverRoute        = routes.Path("/v1/slivers/{blobId}/{pairIndex}/{sliverKind}").Methods(http.MethodGet, http.MethodPut)
	statusRoute        = routes.Path("/v1/status/{blobId}").Methods(http.MethodGet)
	confirmationRoute  = routes.Path("/v1/confirmations/{blobId}").Methods(http.MethodGet)
)

func mustURL(route *mux.Route, pairs ...string) string {
	u, err := route.URL(pairs...)
	if err != nil {
		panic(errors.Wrap(err, "transport: route template"))
	}
	return u.String()
}

// SliverKind distinguishes the primary/secondary half of a sliver pair.
type SliverKind string

// The two sliver kinds addressable per pair index.
const (
	Primary   SliverKind = "primary"
	Secondary SliverKind = "secondary"
)

// Client is the stateless per-call storage-node HTTP client.
type Client struct {
	http    *http.Client
	userAgent string
}

// Options configures Client construction.
type Options struct {
	Timeout   time.Duration
	UserAgent string
}

// New builds a Client with the given options, wrapping the transport with
// a request-logging round tripper (gorilla/handlers' combined-log idiom,
// inverted from server middleware into an outbound decorator).
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	base := &http.Client{
		Timeout:   timeout,
		Transport: &loggingRoundTripper{next: http.DefaultTransport},
	}
	return &Client{http: base, userAgent: opts.UserAgent}
}

// loggingRoundTripper logs every outbound node request at debug level,
// the round-tripper-shaped analogue of gorilla/handlers.LoggingHandler for
// an http.Client rather than an http.Server.
type loggingRoundTripper struct {
	next http.RoundTripper
}

func (l *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := l.next.RoundTrip(req)
	log := logging.Logger().With().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Dur("elapsed", time.Since(start)).
		Logger()
	if err != nil {
		log.Debug().Err(err).Msg("storage node request failed")
		return resp, err
	}
	log.Debug().Int("status", resp.StatusCode).Msg("storage node request completed")
	return resp, err
}

func classifyStatus(nodeID string, statusCode int, body []byte) error {
	switch statusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return &errs.NotFoundError{NodeID: nodeID}
	case http.StatusUnavailableForLegalReasons:
		return &errs.LegallyUnavailableError{NodeID: nodeID}
	default:
		return &errs.TransportError{NodeID: nodeID, Err: fmt.Errorf("status %d: %s", statusCode, string(body))}
	}
}

func (c *Client) do(ctx context.Context, nodeID, method, url string, body []byte) ([]byte, error) {
	var reqBody *bytes.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	} else {
		reqBody = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, &errs.TransportError{NodeID: nodeID, Err: err}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &errs.UserAbortError{Reason: ctx.Err().Error()}
		}
		return nil, &errs.TransportError{NodeID: nodeID, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.TransportError{NodeID: nodeID, Err: err}
	}
	if err := classifyStatus(nodeID, resp.StatusCode, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}

// BlobMetadataWithID is the node's typed response to a metadata fetch.
type BlobMetadataWithID struct {
	BlobID           shard.ID
	UnencodedLength  uint64
	EncodedMetadata  []byte
}

// GetBlobMetadata fetches metadata for blobID from nodeURL.
func (c *Client) GetBlobMetadata(ctx context.Context, nodeID, nodeURL string, blobID shard.ID) (*BlobMetadataWithID, error) {
	url := nodeURL + mustURL(metadataRoute, "blobId", blobID.String())
	body, err := c.do(ctx, nodeID, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return decodeMetadata(blobID, body)
}

// StoreBlobMetadata pushes metadata bytes for blobID to nodeURL.
func (c *Client) StoreBlobMetadata(ctx context.Context, nodeID, nodeURL string, blobID shard.ID, metadata []byte) error {
	url := nodeURL + mustURL(metadataRoute, "blobId", blobID.String())
	_, err := c.do(ctx, nodeID, http.MethodPut, url, metadata)
	return err
}

// GetSliver fetches one primary or secondary sliver for (blobID, pairIndex).
func (c *Client) GetSliver(ctx context.Context, nodeID, nodeURL string, blobID shard.ID, pairIndex shard.PairIndex, kind SliverKind) ([]byte, error) {
	url := nodeURL + mustURL(sliverRoute,
		"blobId", blobID.String(),
		"pairIndex", fmt.Sprintf("%d", pairIndex),
		"sliverKind", string(kind),
	)
	return c.do(ctx, nodeID, http.MethodGet, url, nil)
}

// StoreSliver pushes one primary or secondary sliver.
func (c *Client) StoreSliver(ctx context.Context, nodeID, nodeURL string, blobID shard.ID, pairIndex shard.PairIndex, kind SliverKind, data []byte) error {
	url := nodeURL + mustURL(sliverRoute,
		"blobId", blobID.String(),
		"pairIndex", fmt.Sprintf("%d", pairIndex),
		"sliverKind", string(kind),
	)
	_, err := c.do(ctx, nodeID, http.MethodPut, url, data)
	return err
}

// BlobType distinguishes permanent vs. deletable certification intent.
type BlobType struct {
	Deletable bool
	ObjectID  *[32]byte
}

// SignedConfirmation is a node's raw confirmation response: the serialized
// canonical message plus its BLS signature.
type SignedConfirmation struct {
	SerializedMessage []byte
	Signature         []byte
}

// GetConfirmation requests a signed storage confirmation for blobID.
func (c *Client) GetConfirmation(ctx context.Context, nodeID, nodeURL string, blobID shard.ID, blobType BlobType) (*SignedConfirmation, error) {
	url := nodeURL + mustURL(confirmationRoute, "blobId", blobID.String())
	if blobType.Deletable && blobType.ObjectID != nil {
		url = fmt.Sprintf("%s?objectId=%x", url, *blobType.ObjectID)
	}
	body, err := c.do(ctx, nodeID, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return decodeConfirmation(body)
}

// RawBlobStatus is the node's unparsed status response.
type RawBlobStatus struct {
	Kind                  string
	InitialCertifiedEpoch *uint64
	ObjectID              *[32]byte
}

// GetStatus fetches the node's reported status for blobID.
func (c *Client) GetStatus(ctx context.Context, nodeID, nodeURL string, blobID shard.ID) (*RawBlobStatus, error) {
	url := nodeURL + mustURL(statusRoute, "blobId", blobID.String())
	body, err := c.do(ctx, nodeID, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return decodeStatus(body)
}
