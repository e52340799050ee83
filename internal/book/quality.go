package book

import "fmt"

// ProcessingQuality selects a fixed configuration bundle for a run.
// Chosen by the caller before Process; never mutated.
type ProcessingQuality string

const (
	QualityDraft    ProcessingQuality = "draft"    // fast, no OCR
	QualityStandard ProcessingQuality = "standard" // speed/quality balance
	QualityHigh     ProcessingQuality = "high"     // slow, more accurate
	QualityAcademic ProcessingQuality = "academic" // maximum quality
)

// ParseQuality converts a string to a ProcessingQuality.
func ParseQuality(s string) (ProcessingQuality, error) {
	switch ProcessingQuality(s) {
	case QualityDraft, QualityStandard, QualityHigh, QualityAcademic:
		return ProcessingQuality(s), nil
	case "":
		return QualityStandard, nil
	}
	return "", fmt.Errorf("unknown quality %q (draft, standard, high, academic)", s)
}

// QualityConfig is the configuration bundle a quality tier expands to.
type QualityConfig struct {
	OCREnabled     bool
	DPI            int  // rasterization resolution for OCR
	PreserveLayout bool // keep native text layout during extraction
	Preprocess     bool // grayscale/contrast/binarize page images before OCR
	MaxPages       int  // page cap, 0 = unlimited
	Parallel       bool // page-range workers vs. strictly sequential
}

// Config returns the fixed configuration for the quality tier.
func (q ProcessingQuality) Config() QualityConfig {
	switch q {
	case QualityDraft:
		return QualityConfig{OCREnabled: false, DPI: 150, MaxPages: 200}
	case QualityHigh:
		return QualityConfig{OCREnabled: true, DPI: 300, PreserveLayout: true, Preprocess: true, Parallel: true}
	case QualityAcademic:
		return QualityConfig{OCREnabled: true, DPI: 400, PreserveLayout: true, Preprocess: true, Parallel: true}
	default: // QualityStandard
		return QualityConfig{OCREnabled: true, DPI: 200, PreserveLayout: true, Parallel: true}
	}
}
