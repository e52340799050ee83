// Package book provides the shared data model for the ingestion pipeline.
// This package has no dependencies on other lectern packages to avoid import cycles.
package book

import "time"

// ProcessingStatus tracks the lifecycle of a single processing run.
// A run starts Pending/Processing and transitions exactly once to one of the
// terminal states: Completed, Failed or Scheduled.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
	StatusScheduled  ProcessingStatus = "scheduled"
)

// Terminal reports whether the status is an end state.
func (s ProcessingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusScheduled
}

// DetectionSource indicates where a chapter boundary came from.
type DetectionSource string

const (
	// SourceTOC indicates boundaries read from the document's native outline.
	SourceTOC DetectionSource = "toc"
	// SourceHeuristic indicates boundaries found by heading pattern scanning.
	SourceHeuristic DetectionSource = "heuristic"
	// SourceWindowed indicates fixed page-count windows (resumable mode).
	SourceWindowed DetectionSource = "windowed"
)

// ChapterPoint marks where a chapter begins, before page ranges are computed.
type ChapterPoint struct {
	Title     string `json:"title"`
	StartPage int    `json:"start_page"` // 1-indexed
}

// Chapter is a materialized chapter with an inclusive page range.
type Chapter struct {
	Number     int             `json:"number"`
	Title      string          `json:"title"`
	StartPage  int             `json:"start_page"` // 1-indexed, inclusive
	EndPage    int             `json:"end_page"`   // 1-indexed, inclusive
	Text       string          `json:"-"`
	Source     DetectionSource `json:"source"`
	Confidence float64         `json:"confidence"` // [0,1]
}

// Pages returns the number of pages the chapter spans.
func (c Chapter) Pages() int {
	return c.EndPage - c.StartPage + 1
}

// Metadata describes a book file as seen by the analyzer.
// Immutable once produced.
type Metadata struct {
	Title         string         `json:"title"`
	Author        string         `json:"author"` // raw, possibly multi-author
	Publisher     string         `json:"publisher,omitempty"`
	Year          int            `json:"year,omitempty"`
	ISBN          string         `json:"isbn,omitempty"`
	TotalPages    int            `json:"total_pages"`
	Language      string         `json:"language"`
	ChapterHints  []ChapterPoint `json:"chapter_hints,omitempty"`
	HasImages     bool           `json:"has_images"`
	RequiresOCR   bool           `json:"requires_ocr"`
	EstimatedTime int            `json:"estimated_processing_time"` // seconds
	FileSizeMB    float64        `json:"file_size_mb"`
}

// PageRecord is the per-page output of the extraction engine.
// It exists only during a single Process invocation.
type PageRecord struct {
	PageNum     int
	Text        string
	Confidence  float64
	RequiresOCR bool
	OCRUsed     bool
	Hash        string
}

// ProcessingResult is the single externally observable artifact of a run.
// Created once per Process call, never mutated after return.
type ProcessingResult struct {
	RunID     string           `json:"run_id"`
	Status    ProcessingStatus `json:"status"`
	Metadata  Metadata         `json:"metadata"`
	OutputDir string           `json:"output_dir,omitempty"`
	Chapters  []Chapter        `json:"chapters,omitempty"`
	Error     string           `json:"error,omitempty"`
	Warnings  []string         `json:"warnings,omitempty"`
	StartTime time.Time        `json:"start_time"`
	EndTime   time.Time        `json:"end_time"`
}

// Processing time estimate constants. OCR pages dominate the cost; the
// estimate alone decides immediate vs. deferred execution.
const (
	estimateBaseSeconds   = 10
	estimateOCRPerPage    = 2.0
	estimateNativePerPage = 0.5
	estimateImagePenalty  = 5
)

// EstimateSeconds returns the estimated processing time for the book.
func EstimateSeconds(totalPages int, requiresOCR, hasImages bool) int {
	perPage := estimateNativePerPage
	if requiresOCR {
		perPage = estimateOCRPerPage
	}
	estimate := float64(estimateBaseSeconds) + float64(totalPages)*perPage
	if hasImages {
		estimate += estimateImagePenalty
	}
	return int(estimate)
}
