package vehicle

import "github.com/railwright/amhs-core/internal/graph"

// ShiftPathLeft consumes the head of vehicle i's path buffer, shifting the
// remaining entries left by one and decrementing the length (§9 "Path
// buffer as circular consumption, not queue" — a plain shift is cheap for
// the small MAX_PATH_LENGTH this engine targets).
func (b *Buffer) ShiftPathLeft(i int) {
	length := b.PathLen[i]
	if length <= 0 {
		return
	}
	copy(b.PathBuf[i][0:length-1], b.PathBuf[i][1:length])
	b.PathLen[i] = length - 1
	b.PathRemaining[i] = length - 1
}

// PathAt returns the edge index at position pos (0 = head) of vehicle i's
// remaining path, and whether that position is within the current length.
func (b *Buffer) PathAt(i, pos int) (graph.EdgeIndex, bool) {
	if pos < 0 || pos >= b.PathLen[i] {
		return graph.InvalidEdge, false
	}
	return b.PathBuf[i][pos], true
}

// PathLength returns the number of valid entries remaining in vehicle i's
// path buffer.
func (b *Buffer) PathLength(i int) int { return b.PathLen[i] }

// AppendPath appends edges to the tail of vehicle i's path buffer, up to
// the fixed capacity; returns the number actually appended. Used by RANDOM
// and LOOP transfer modes to replenish a path that has run low, never
// growing the underlying array (§5 zero-allocation hot path).
func (b *Buffer) AppendPath(i int, edges ...graph.EdgeIndex) int {
	length := b.PathLen[i]
	capacity := b.maxPathLength
	room := capacity - length
	if room <= 0 {
		return 0
	}
	n := len(edges)
	if n > room {
		n = room
	}
	copy(b.PathBuf[i][length:length+n], edges[:n])
	b.PathLen[i] = length + n
	b.PathRemaining[i] = length + n
	return n
}

// ClearNextEdgeWindow zeroes vehicle i's look-ahead window and marks it
// EMPTY — used when the path buffer runs dry mid-refill (§4.11 "Path
// buffer empty when refilling next edges").
func (b *Buffer) ClearNextEdgeWindow(i int) {
	b.NextEdge[i] = [NextEdgeWindowSize]graph.EdgeIndex{}
	b.NextEdgeState[i] = Empty
}
