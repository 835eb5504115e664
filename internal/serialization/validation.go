package serialization

import (
	"fmt"
	"slices"
	"strings"
)

// Validation limits for security and resource protection.
const (
	MaxHeaderSize    = 100 * 1024 * 1024 // 100MB - maximum header size
	MaxTensorCount   = 100_000           // Maximum number of tensors in a file
	MaxTensorNameLen = 4096              // Maximum tensor name length
)

// tensorRange is the byte range of one tensor within the data section.
type tensorRange struct {
	Name       string
	Start, End int64
}

// validateOffsets checks for negative, out-of-bounds and overlapping ranges.
// Malformed files could otherwise alias one blob's bytes into another.
func validateOffsets(ranges []tensorRange, dataSize int64) error {
	if len(ranges) > MaxTensorCount {
		return &ValidationError{
			Err:     ErrTooManyTensors,
			Details: fmt.Sprintf("got %d, max %d", len(ranges), MaxTensorCount),
		}
	}

	sorted := slices.Clone(ranges)
	slices.SortFunc(sorted, func(a, b tensorRange) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})

	for i, t := range sorted {
		if t.Start < 0 || t.End < t.Start {
			return &ValidationError{
				Err:     ErrNegativeOffset,
				Tensor:  t.Name,
				Details: fmt.Sprintf("range [%d, %d)", t.Start, t.End),
			}
		}
		if t.End > dataSize {
			return &ValidationError{
				Err:     ErrOutOfBounds,
				Tensor:  t.Name,
				Details: fmt.Sprintf("end %d > data_size %d", t.End, dataSize),
			}
		}
		if i < len(sorted)-1 {
			next := sorted[i+1]
			if t.End > next.Start {
				return &ValidationError{
					Err:     ErrOffsetOverlap,
					Tensor:  t.Name,
					Tensor2: next.Name,
					Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap", t.Start, t.End, next.Start, next.End),
				}
			}
		}
	}
	return nil
}

// ValidateTensorName rejects names that are too long or look like paths.
func ValidateTensorName(name string) error {
	if name == "" {
		return &ValidationError{Err: ErrInvalidTensorName, Details: "empty name"}
	}
	if len(name) > MaxTensorNameLen {
		return &ValidationError{
			Err:     ErrInvalidTensorName,
			Tensor:  name,
			Details: fmt.Sprintf("length %d > max %d", len(name), MaxTensorNameLen),
		}
	}
	if strings.Contains(name, "..") {
		return &ValidationError{Err: ErrInvalidTensorName, Tensor: name, Details: "contains '..'"}
	}
	if strings.ContainsAny(name, "/\\") {
		return &ValidationError{Err: ErrInvalidTensorName, Tensor: name, Details: "contains path separator (/ or \\)"}
	}
	if strings.Contains(name, "\x00") {
		return &ValidationError{Err: ErrInvalidTensorName, Tensor: name, Details: "contains null byte"}
	}
	return nil
}
