// Package status defines the BlobStatus variant a storage node reports and
// its lifecycle ranking, used to tie-break disagreeing node responses
// (spec §4.C: "the furthest-along state that >=1/3 of shards agree on").
package status

// Kind enumerates the BlobStatus variants, ordered by lifecycle rank: later
// constants outrank earlier ones.
type Kind int

// Lifecycle-ordered status kinds.
const (
	Nonexistent Kind = iota
	Invalid
	Deletable
	Permanent
)

// Rank returns the lifecycle rank used for tie-breaking; higher is
// "further along."
func (k Kind) Rank() int { return int(k) }

func (k Kind) String() string {
	switch k {
	case Nonexistent:
		return "nonexistent"
	case Invalid:
		return "invalid"
	case Deletable:
		return "deletable"
	case Permanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// BlobStatus is a single node's reported status for a blob.
type BlobStatus struct {
	Kind Kind
	// InitialCertifiedEpoch is set for Permanent/Deletable statuses: the
	// epoch in which the blob was first certified.
	InitialCertifiedEpoch *uint64
	// ObjectID is set for Deletable statuses.
	ObjectID *[32]byte
}

// HighestRanked picks, from a set of (status, weight) observations, the
// status with the highest lifecycle rank whose accumulated weight meets
// the validity threshold, per spec §4.C. It returns false if no status
// reaches validity.
func HighestRanked(observations map[Kind]int, nShards int, validity func(w, n int) bool) (Kind, bool) {
	best := Nonexistent
	found := false
	for k, w := range observations {
		if !validity(w, nShards) {
			continue
		}
		if !found || k.Rank() > best.Rank() {
			best = k
			found = true
		}
	}
	return best, found
}
