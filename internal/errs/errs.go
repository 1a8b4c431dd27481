// Package errs defines the closed error taxonomy shared by every layer of
// the client core. Errors here follow the teacher's "error hierarchy with
// retryable marker" shape (see staking/slash for the analogous pattern of
// typed, inspectable fault records): a small set of concrete types, each
// implementing error and, where relevant, Retryable.
package errs

import "fmt"

// Retryable is implemented by errors the read path should recover from by
// resetting the client's committee cache and retrying exactly once.
type Retryable interface {
	IsRetryable() bool
}

// IsRetryable reports whether err carries the Retryable marker and is
// currently retryable.
func IsRetryable(err error) bool {
	r, ok := err.(Retryable)
	return ok && r.IsRetryable()
}

// BehindCurrentEpochError indicates the client's committee view is stale
// relative to the blob's certification epoch.
type BehindCurrentEpochError struct {
	ClientEpoch uint64
	BlobEpoch   uint64
}

func (e *BehindCurrentEpochError) Error() string {
	return fmt.Sprintf("client view at epoch %d is behind blob's certified epoch %d", e.ClientEpoch, e.BlobEpoch)
}

// IsRetryable is always true: the caller should reset() and retry once.
func (e *BehindCurrentEpochError) IsRetryable() bool { return true }

// BlobNotCertifiedError reports that a quorum of shards authoritatively
// denies the existence of the blob.
type BlobNotCertifiedError struct {
	BlobID string
}

func (e *BlobNotCertifiedError) Error() string {
	return fmt.Sprintf("blob %s is not certified: quorum of shards reported not-found", e.BlobID)
}

// BlobBlockedError reports that a quorum of shards has legally refused to
// serve the blob.
type BlobBlockedError struct {
	BlobID string
}

func (e *BlobBlockedError) Error() string {
	return fmt.Sprintf("blob %s is blocked: quorum of shards refused service", e.BlobID)
}

// InconsistentBlobError reports that reconstructed bytes rehash to a
// different blob id than requested.
type InconsistentBlobError struct {
	Requested string
	Computed  string
}

func (e *InconsistentBlobError) Error() string {
	return fmt.Sprintf("reconstructed blob rehashes to %s, expected %s", e.Computed, e.Requested)
}

// NotEnoughSliversReceivedError reports that reconstruction is infeasible:
// fewer than k distinct primary slivers were collected.
type NotEnoughSliversReceivedError struct {
	Collected int
	Required  int
}

func (e *NotEnoughSliversReceivedError) Error() string {
	return fmt.Sprintf("collected %d of %d required primary slivers", e.Collected, e.Required)
}

// NoBlobMetadataReceivedError reports that fewer than required nodes
// returned metadata successfully.
type NoBlobMetadataReceivedError struct{ BlobID string }

func (e *NoBlobMetadataReceivedError) Error() string {
	return fmt.Sprintf("no blob metadata received for %s", e.BlobID)
}

// NoBlobStatusReceivedError reports that fewer than required nodes returned
// a blob status.
type NoBlobStatusReceivedError struct{ BlobID string }

func (e *NoBlobStatusReceivedError) Error() string {
	return fmt.Sprintf("no blob status received for %s", e.BlobID)
}

// NoVerifiedBlobStatusReceivedError reports that no status reaching
// validity threshold could be established.
type NoVerifiedBlobStatusReceivedError struct{ BlobID string }

func (e *NoVerifiedBlobStatusReceivedError) Error() string {
	return fmt.Sprintf("no verified blob status for %s", e.BlobID)
}

// NotEnoughBlobConfirmationsError reports that the write path failed to
// gather a quorum of validly signed confirmations.
type NotEnoughBlobConfirmationsError struct {
	ValidCount int
	NShards    int
}

func (e *NotEnoughBlobConfirmationsError) Error() string {
	return fmt.Sprintf("only %d valid confirmations collected against %d shards, quorum not reached", e.ValidCount, e.NShards)
}

// WalrusClientError is the catch-all for client-side misuse:
// misconfiguration, unexpected chain results, missing objects.
type WalrusClientError struct {
	Msg string
}

func (e *WalrusClientError) Error() string { return e.Msg }

// NewWalrusClientError builds a WalrusClientError with a formatted message.
func NewWalrusClientError(format string, args ...interface{}) *WalrusClientError {
	return &WalrusClientError{Msg: fmt.Sprintf(format, args...)}
}

// Transport-layer errors, produced by internal/transport and consumed only
// by internal/quorum's classification step; they must never surface past
// the dispatcher unclassified.

// NotFoundError means a node authoritatively reported it does not have the
// object.
type NotFoundError struct{ NodeID string }

func (e *NotFoundError) Error() string { return fmt.Sprintf("node %s: not found", e.NodeID) }

// LegallyUnavailableError means a node refused to serve for policy reasons
// (HTTP 451).
type LegallyUnavailableError struct{ NodeID string }

func (e *LegallyUnavailableError) Error() string {
	return fmt.Sprintf("node %s: legally unavailable", e.NodeID)
}

// UserAbortError means the caller's cancellation signal fired.
type UserAbortError struct{ Reason string }

func (e *UserAbortError) Error() string { return fmt.Sprintf("user abort: %s", e.Reason) }

// TransportError wraps any other network/HTTP fault.
type TransportError struct {
	NodeID string
	Err    error
}

func (e *TransportError) Error() string { return fmt.Sprintf("node %s: transport: %v", e.NodeID, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }
