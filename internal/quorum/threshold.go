// Package quorum implements the shard-weighted quorum dispatcher: fan-out
// of per-shard or per-node tasks against untrusted storage nodes, with
// early abort once a decision is reached. It generalizes the voting
// pattern the teacher's consensus package drives through its own quorum
// package (see consensus/leader.go's calls to consensus.Decider.SubmitVote /
// IsQuorumAchieved / SignersCount), retargeted from "2/3 of staked
// validators signed a block" to "2/3 of shards answered a storage query."
package quorum

// Quorum reports whether weight w out of total n crosses the Byzantine
// safety threshold 3w > 2n (I3), tolerating up to n/3 adversarial weight.
func Quorum(w, n int) bool {
	return 3*w > 2*n
}

// Validity reports whether weight w out of total n crosses the honest-
// witness threshold 3w > n (I3): at least one honest contributor is
// represented whenever adversarial weight is below n/3.
func Validity(w, n int) bool {
	return 3*w > n
}
