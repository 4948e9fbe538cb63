package scanning

// Partition splits items into n contiguous chunks whose lengths differ by at
// most one; the first len(items)%n chunks get the extra element. n is clamped
// to [1, len(items)] so that no chunk is empty. An empty input yields no
// chunks.
//
// Chunks are capacity-limited views of items, so appending to one never
// writes into its neighbour.
func Partition[T any](items []T, n int) [][]T {
	if len(items) == 0 {
		return nil
	}
	n = min(max(n, 1), len(items))

	base := len(items) / n
	remainder := len(items) % n

	chunks := make([][]T, 0, n)
	start := 0
	for i := 0; i < n; i++ {
		end := start + base
		if i < remainder {
			end++
		}
		chunks = append(chunks, items[start:end:end])
		start = end
	}
	return chunks
}
