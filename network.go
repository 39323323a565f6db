package baker

// NetworkPreset carries the per-network constants that drive cycle geometry
// and commitment scheduling. A zero-value preset is invalid; use one of
// the MainNet, TestNet or ZeroNet values below, or a copy of one.
type NetworkPreset struct {
	// Name identifies the preset for logging purposes only.
	Name string
	// CycleLength is the number of levels in one cycle.
	CycleLength uint32
	// CommitmentInterval is the spacing, in levels, between commitment
	// levels.
	CommitmentInterval uint32
	// CommitmentOffset is the residue commitment levels must satisfy
	// modulo CommitmentInterval.
	CommitmentOffset uint32
}

// MainNet, TestNet and ZeroNet are the three network presets in scope.
// powHeader is identical across all of them.
var (
	MainNet = NetworkPreset{Name: "mainnet", CycleLength: 4096, CommitmentInterval: 32, CommitmentOffset: 0}
	TestNet = NetworkPreset{Name: "testnet", CycleLength: 2048, CommitmentInterval: 32, CommitmentOffset: 0}
	ZeroNet = NetworkPreset{Name: "zeronet", CycleLength: 128, CommitmentInterval: 32, CommitmentOffset: 1}
)

// powHeader is the fixed 4-byte (8 hex char) proof-of-work header segment
// shared by every network in scope.
const powHeader = "00000003"

// stampThreshold is 2^46 - 1, the maximum accepted value of the first 8
// bytes of the stamp hash interpreted as a big-endian unsigned integer.
const stampThreshold uint64 = 70368744177663

// LevelToCycle returns the zero-based cycle a level belongs to.
func (n NetworkPreset) LevelToCycle(level uint32) uint32 {
	return (level - 1) / n.CycleLength
}

// CycleStart returns the first level of cycle c.
func (n NetworkPreset) CycleStart(c uint32) uint32 {
	return c*n.CycleLength + 1
}

// CycleEnd returns the last level of cycle c.
func (n NetworkPreset) CycleEnd(c uint32) uint32 {
	return n.CycleStart(c) + n.CycleLength - 1
}

// IsCommitmentLevel reports whether level is a commitment level under this
// preset: level mod CommitmentInterval == CommitmentOffset.
func (n NetworkPreset) IsCommitmentLevel(level uint32) bool {
	return level%n.CommitmentInterval == n.CommitmentOffset
}

// RevealCycle returns the cycle during which a nonce committed at level
// must be revealed: the cycle immediately following the commitment's own
// cycle.
func (n NetworkPreset) RevealCycle(level uint32) uint32 {
	return n.LevelToCycle(level) + 1
}

// RevealWindow returns the inclusive [start, end] level range during which
// a nonce committed at level must be revealed.
func (n NetworkPreset) RevealWindow(level uint32) (start, end uint32) {
	c := n.RevealCycle(level)
	return n.CycleStart(c), n.CycleEnd(c)
}
