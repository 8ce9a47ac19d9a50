package analysis

import (
	"sort"
)

// Window is one aligned time bucket and the indices of the samples inside it.
type Window struct {
	Indices   []int
	StartTime int64
	EndTime   int64
}

// -----------------------------------------------------------------------------

// ResampleIndices groups ascending unix timestamps into windows aligned to
// multiples of windowSeconds. Empty windows are omitted.
func ResampleIndices(timestamps []int64, windowSeconds int64) []Window {
	if len(timestamps) == 0 || windowSeconds <= 0 {
		return []Window{}
	}

	start, _ := CalculateWindowBoundaries(timestamps[0], windowSeconds)
	last := timestamps[len(timestamps)-1]

	var results []Window
	for ; start <= last; start += windowSeconds {
		end := start + windowSeconds

		startIdx := SearchSorted(timestamps, start, "left")
		endIdx := SearchSorted(timestamps, end, "left")
		if startIdx >= endIdx {
			continue
		}

		indices := make([]int, endIdx-startIdx)
		for idx := startIdx; idx < endIdx; idx++ {
			indices[idx-startIdx] = idx
		}
		results = append(results, Window{Indices: indices, StartTime: start, EndTime: end})
	}

	return results
}

// -----------------------------------------------------------------------------

// ResampleData returns the values falling in each window.
func ResampleData[T any](timestamps []int64, data []T, windowSeconds int64) [][]T {
	windows := ResampleIndices(timestamps, windowSeconds)
	out := make([][]T, len(windows))
	for w, win := range windows {
		slice := make([]T, 0, len(win.Indices))
		for _, idx := range win.Indices {
			if idx < len(data) {
				slice = append(slice, data[idx])
			}
		}
		out[w] = slice
	}
	return out
}

// -----------------------------------------------------------------------------

// SearchSorted mirrors numpy's searchsorted on an ascending slice.
func SearchSorted(arr []int64, value int64, side string) int {
	if side == "left" {
		return sort.Search(len(arr), func(i int) bool {
			return arr[i] >= value
		})
	}
	return sort.Search(len(arr), func(i int) bool {
		return arr[i] > value
	})
}

// CalculateWindowBoundaries returns the aligned window containing ts.
func CalculateWindowBoundaries(ts int64, window int64) (int64, int64) {
	start := ts - (ts % window)
	if ts < 0 && ts%window != 0 {
		start -= window
	}
	return start, start + window
}
