package gcp

import (
	"regexp"
	"strings"
)

var (
	fenceMarkers = regexp.MustCompile("```(?:json)?\n?")
	newlineRuns  = regexp.MustCompile(`\n+`)
)

// CleanJSONResponse normalizes raw generative-model output before structural
// parsing: markdown code fences are stripped wherever they appear, surrounding
// whitespace is trimmed and newline runs are collapsed. It is a pure text
// step; whether the remainder parses is decided by the caller.
func CleanJSONResponse(text string) string {
	text = fenceMarkers.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	text = strings.TrimLeft(text, "\n")
	text = newlineRuns.ReplaceAllString(text, "\n")
	return text
}
