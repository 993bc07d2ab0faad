package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	seqPadRe = regexp.MustCompile(`\{SEQ(\d+)\}`)
)

const DefaultTemplate = "{PREFIX}-{YYYY}-{SEQ4}"

// Next renders "{prefix}-{year}-{number}" with the number zero padded to at
// least four digits. Larger numbers are never truncated.
func Next(prefix string, nextNumber int64, year int) string {
	return fmt.Sprintf("%s-%d-%04d", prefix, year, nextNumber)
}

// FormatNumber renders a document number from a template, the issue time and
// a monotonic sequence. Supported tokens: {PREFIX} {YYYY} {YY} {MM} {DD}
// {SEQ} and {SEQn} for an n-digit minimum width.
func FormatNumber(
	template string,
	prefix string,
	issuedAt time.Time,
	seq int64,
) (string, error) {

	if template == "" {
		return "", fmt.Errorf("document number template is empty")
	}

	if seq <= 0 {
		return "", fmt.Errorf("invalid document sequence: %d", seq)
	}

	out := template

	out = strings.ReplaceAll(out, "{PREFIX}", prefix)

	// Date tokens
	out = strings.ReplaceAll(out, "{YYYY}", issuedAt.Format("2006"))
	out = strings.ReplaceAll(out, "{YY}", issuedAt.Format("06"))
	out = strings.ReplaceAll(out, "{MM}", issuedAt.Format("01"))
	out = strings.ReplaceAll(out, "{DD}", issuedAt.Format("02"))

	out = strings.ReplaceAll(out, "{SEQ}", strconv.FormatInt(seq, 10))

	out = seqPadRe.ReplaceAllStringFunc(out, func(m string) string {
		match := seqPadRe.FindStringSubmatch(m)
		if len(match) != 2 {
			return m
		}

		width, err := strconv.Atoi(match[1])
		if err != nil || width <= 0 {
			return m
		}

		return fmt.Sprintf("%0*d", width, seq)
	})

	if strings.Contains(out, "{") || strings.Contains(out, "}") {
		return "", fmt.Errorf("unresolved token in document number format: %s", out)
	}

	return out, nil
}
