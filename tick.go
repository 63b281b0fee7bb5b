package depot

// Tick is the logical scheduler counter used to stamp component insertions
// and mutations. It wraps; always compare with NewerThan.
type Tick uint32

// NewerThan reports whether t is strictly newer than other, treating the
// counter as a wrapping sequence number so a wrapped tick never reads as
// older than half the counter space behind it.
func (t Tick) NewerThan(other Tick) bool {
	return int32(t-other) > 0
}

// tickPair records when a row's value for one component kind was inserted
// and last written.
type tickPair struct {
	added   Tick
	changed Tick
}
