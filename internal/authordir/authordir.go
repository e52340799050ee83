// Package authordir resolves an author string to an on-disk directory name,
// reusing an existing author folder when one is similar enough. This keeps
// "Kant, I." and "Immanuel Kant" from producing two author trees.
package authordir

import (
	"log/slog"
	"regexp"
	"strings"

	"lectern/internal/textnorm"
)

// acceptScore is the minimum similarity against an existing directory name
// required to reuse it instead of minting a new one.
const acceptScore = 0.8

const maxDirNameLen = 80

var (
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	multiSpace           = regexp.MustCompile(`\s+`)
)

// Resolver picks author directory names under a library root.
type Resolver struct {
	logger *slog.Logger
}

// New creates a Resolver. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger}
}

// Resolve returns the directory name to use for the raw author string, given
// the existing author directory names at the target root. It reuses the best
// existing match at or above the accept threshold, otherwise returns a new
// sanitized name.
func (r *Resolver) Resolve(rawAuthor string, existing []string) string {
	primary := textnorm.PrimaryAuthor(rawAuthor)
	if primary == "" {
		primary = "Unknown Author"
	}

	best, score := r.bestMatch(primary, existing)
	if best != "" && score >= acceptScore {
		r.logger.Debug("reusing author directory",
			"author", rawAuthor, "directory", best, "score", score)
		return best
	}

	return Sanitize(primary)
}

// bestMatch scores the candidate against every existing directory name and
// returns the highest scorer.
func (r *Resolver) bestMatch(candidate string, existing []string) (string, float64) {
	candSet := textnorm.TokenSet(candidate)
	candTokens := textnorm.Tokens(candidate)

	var best string
	bestScore := 0.0
	for _, dir := range existing {
		score := textnorm.Jaccard(candSet, textnorm.TokenSet(dir))
		if align := textnorm.AlignmentScore(candTokens, textnorm.Tokens(dir)); align > score {
			score = align
		}
		if score > bestScore {
			bestScore = score
			best = dir
		}
	}
	return best, bestScore
}

// Sanitize makes a name safe for the filesystem: invalid characters become
// underscores, whitespace runs collapse, and length is capped.
func Sanitize(name string) string {
	name = invalidFilenameChars.ReplaceAllString(name, "_")
	name = strings.TrimSpace(multiSpace.ReplaceAllString(name, " "))
	if len(name) > maxDirNameLen {
		name = strings.TrimSpace(name[:maxDirNameLen])
	}
	return name
}
