package champ

// Nbits is the number of bits (5) a hash value is split into at each level
// of the trie, giving a 32-way fan-out per node.
const Nbits uint = 5

// hashBits is the width W of the hash value used to index the trie (spec's
// "the implementer picks a width W; the reference shape uses W=32 or 64").
// This port uses the full 64 bits a maphash.Hasher produces.
const hashBits uint = 64

// MaxDepth is ceil(hashBits/Nbits): the deepest a chain of bitmap-indexed
// nodes can go before the hash is fully consumed and a collision leaf must
// terminate the chain instead.
const MaxDepth uint = (hashBits + Nbits - 1) / Nbits

// TableCapacity is the number of logical slots in a single node: 2^Nbits.
const TableCapacity uint = 1 << Nbits

const slotMask uint64 = 1<<Nbits - 1

// maskFrom extracts the Nbits-wide chunk of h that applies at the given
// shift: (h >>> shift) & ((1<<B)-1). The shift is unsigned so the extracted
// chunk is always in [0, TableCapacity).
func maskFrom(h uint64, shift uint) uint {
	return uint((h >> shift) & slotMask)
}

// bitposFrom turns a slot index into its one-hot bit.
func bitposFrom(mask uint) uint32 {
	return uint32(1) << mask
}

// indexFrom returns the popcount of bitmap below bitpos, i.e. the position
// of the bitpos'th set bit within the physical storage array for bitmap.
func indexFrom(bitmap uint32, bitpos uint32) uint {
	return popcount32(bitmap & (bitpos - 1))
}

//POPCNT Implementation
// adapted from the teacher's bitcount32.go, itself copied from
// https://github.com/jddixon/xlUtil_go/blob/master/popCount.go (MIT License)

const (
	octoFives  = uint32(0x55555555)
	octoThrees = uint32(0x33333333)
	octoOnes   = uint32(0x01010101)
	octoFs     = uint32(0x0f0f0f0f)
)

// popcount32 is a software implementation of the POPCNT instruction; it
// returns the number of set bits in a uint32 word.
func popcount32(n uint32) uint {
	n = n - ((n >> 1) & octoFives)
	n = (n & octoThrees) + ((n >> 2) & octoThrees)
	return uint((((n + (n >> 4)) & octoFs) * octoOnes) >> 24)
}
