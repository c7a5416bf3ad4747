package sccs

import (
	"strconv"
	"strings"
	"time"
)

// Delta is one historical revision in one SCCS file. Its back-reference
// to the owning FileDescriptor is held only by the DeltaRef wrapper the
// Aggregator builds; Delta itself knows nothing about its file, keeping
// ownership exclusively with FileDescriptor per the design note on cyclic
// ownership.
type Delta struct {
	Sid             string
	Type            byte // 'D' (kept) -- 'R' deltas never reach this far
	Seqno           int
	ParentSeqno     int
	CreationDate    string
	CreationTime    string
	Timestamp       time.Time
	TzOffsetDisplay string
	CommitterLogin  string
	Comment         string
	Mrs             []string
}

// validSID reports whether sid has at least two dotted components, each a
// strictly positive integer.
func validSID(sid string) bool {
	parts := strings.Split(sid, ".")
	if len(parts) < 2 {
		return false
	}
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 {
			return false
		}
	}
	return true
}

// sidLevel is the first dotted component of an SID.
func sidLevel(sid string) int {
	i := strings.IndexByte(sid, '.')
	if i < 0 {
		i = len(sid)
	}
	n, _ := strconv.Atoi(sid[:i])
	return n
}

// sidRev is the second dotted component of an SID.
func sidRev(sid string) int {
	parts := strings.SplitN(sid, ".", 3)
	if len(parts) < 2 {
		return 0
	}
	n, _ := strconv.Atoi(parts[1])
	return n
}

// mrsEqual compares two MR lists for ordered equality.
func mrsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
