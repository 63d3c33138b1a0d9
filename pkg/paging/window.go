package paging

// WindowSize is the most page numbers shown at once.
const WindowSize = 5

// Window returns the page numbers to render around current: at most
// WindowSize consecutive pages centered on current, shifted at the edges so
// the window stays full, clamped to [1, total].
func Window(current, total int) []int {
	if total < 1 {
		return nil
	}
	current = min(max(current, 1), total)

	if total <= WindowSize {
		return pageRange(1, total)
	}

	start := current - WindowSize/2
	start = max(start, 1)
	start = min(start, total-WindowSize+1)
	return pageRange(start, start+WindowSize-1)
}

func pageRange(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}
