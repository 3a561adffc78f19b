package split

import (
	"errors"
	"fmt"
)

var ErrCapacityExceeded = errors.New("blocks do not fit into allowed number of parts")

// Range is half-open interval of block indexes assigned to a part.
type Range struct {
	From, To int
}

func (r Range) Len() int {
	return r.To - r.From
}

// resolvePageSize returns blocks per part. When page size is not fixed it is
// derived from the upper bound on number of parts.
func resolvePageSize(total, pageSize, maxParts int) (int, error) {
	switch {
	case pageSize > 0:
		return pageSize, nil
	case maxParts > 0:
		return max((total+maxParts-1)/maxParts, 1), nil
	default:
		return 0, errors.New("either page size or maximum number of parts must be specified")
	}
}

// Plan partitions total blocks into contiguous ranges of page size, the last
// range receives the remainder. maxParts is an upper bound (0 - unbounded):
// ranges are never created past the last block, and when blocks do not fit
// ErrCapacityExceeded is returned instead of dropping them.
func Plan(total, pageSize, maxParts int) ([]Range, error) {
	if total < 0 || pageSize < 0 || maxParts < 0 {
		return nil, fmt.Errorf("invalid partitioning parameters: total=%d, page size=%d, parts=%d", total, pageSize, maxParts)
	}
	size, err := resolvePageSize(total, pageSize, maxParts)
	if err != nil {
		return nil, err
	}

	ranges := make([]Range, 0, (total+size-1)/size)
	for from := 0; from < total; from += size {
		if maxParts > 0 && len(ranges) == maxParts {
			return nil, fmt.Errorf("%w: %d blocks, %d parts of %d blocks", ErrCapacityExceeded, total, maxParts, size)
		}
		ranges = append(ranges, Range{From: from, To: min(from+size, total)})
	}
	return ranges, nil
}
