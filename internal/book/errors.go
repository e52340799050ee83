package book

import "errors"

// Error taxonomy for the pipeline. Only ErrUnsupportedFormat and catastrophic
// I/O errors escape as fatal; everything else is absorbed into warnings.
var (
	// ErrUnsupportedFormat is returned before any analysis for unknown extensions.
	ErrUnsupportedFormat = errors.New("unsupported book format")

	// ErrSegmentationInconclusive means fewer than 2 chapter points were found
	// by either detection strategy.
	ErrSegmentationInconclusive = errors.New("segmentation inconclusive")
)
