package id

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/rivo/uniseg"
)

const (
	estimatePrefix = "INV"
	dateFormat     = "2006-01-02"

	// maxTitleLength is the title budget of a default file name, in
	// user-perceived characters.
	maxTitleLength = 20

	// DefaultTitle replaces an empty title in file names.
	DefaultTitle = "estimate"
)

// FormatEstimateNumber returns an estimate number like "INV-2025-007".
// Sequences above 999 keep all their digits.
func FormatEstimateNumber(year, seq int) string {
	return fmt.Sprintf("%s-%04d-%03d", estimatePrefix, year, seq)
}

// EstimateNumber formats seq in the year of now.
func EstimateNumber(now time.Time, seq int) string {
	return FormatEstimateNumber(now.Year(), seq)
}

// RandomEstimateNumber is the first-run fallback used when no sequence state
// exists yet. It can collide with tracker-issued numbers.
func RandomEstimateNumber(now time.Time) string {
	return FormatEstimateNumber(now.Year(), rand.IntN(1000))
}

// ParseEstimateNumber parses "INV-2025-007" into year and seq.
func ParseEstimateNumber(s string) (year, seq int, err error) {
	parts := strings.SplitN(s, "-", 3)
	if len(parts) != 3 || parts[0] != estimatePrefix {
		return 0, 0, fmt.Errorf("invalid estimate number format: %q", s)
	}

	year, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid year in estimate number %q: %w", s, err)
	}

	seq, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid sequence in estimate number %q: %w", s, err)
	}

	return year, seq, nil
}

var illegalPathChars = strings.NewReplacer(
	`\`, "_", "/", "_", ":", "_", "*", "_", "?", "_",
	`"`, "_", "<", "_", ">", "_", "|", "_",
)

// SanitizeTitle makes title safe for use in a file name: path-illegal
// characters become "_" and the result is cut to 20 grapheme clusters.
func SanitizeTitle(title string) string {
	safe := illegalPathChars.Replace(strings.TrimSpace(title))
	if safe == "" {
		return DefaultTitle
	}

	var b strings.Builder
	g := uniseg.NewGraphemes(safe)
	for n := 0; n < maxTitleLength && g.Next(); n++ {
		b.WriteString(g.Str())
	}
	return b.String()
}

// DefaultFileName returns "{title}_{date}_{NNN}". An empty date means today
// in local time.
func DefaultFileName(title, date string, seq int) string {
	if date == "" {
		date = time.Now().Format(dateFormat)
	}
	return fmt.Sprintf("%s_%s_%03d", SanitizeTitle(title), date, seq)
}

// WithExtension appends ext (".pdf") to name unless it already ends with it,
// ignoring case.
func WithExtension(name, ext string) string {
	if strings.HasSuffix(strings.ToLower(name), strings.ToLower(ext)) {
		return name
	}
	return name + ext
}
