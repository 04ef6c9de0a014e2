// Package directive pulls inline control prefixes off the front of a chat
// message before the remainder is sent to the backend. Directives tune how
// the backend answers (thinking depth, verbosity, reasoning display,
// elevation, model choice) without being part of the conversation text.
package directive

import (
	"regexp"
	"strings"
)

// Extraction is the result of scanning a message for leading directives.
type Extraction struct {
	// Directives holds each matched directive, trimmed, in scan order.
	Directives []string

	// Clean is the message with the matched directives removed.
	Clean string
}

// patterns are tried once each, in order, against the shrinking front of
// the message. A directive sitting behind a pattern whose turn already
// passed stays in the message text.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^/(?:thinking|think|t)\s+(?:off|minimal|low|medium|high|xhigh)(?:\s|$)`),
	regexp.MustCompile(`(?i)^/(?:verbose|v)\s+(?:on|full|off)(?:\s|$)`),
	regexp.MustCompile(`(?i)^/(?:reasoning|r)\s+(?:on|off|stream)(?:\s|$)`),
	regexp.MustCompile(`(?i)^/(?:elevate|sudo)\s+(?:on|off|ask|full)(?:\s|$)`),
	regexp.MustCompile(`(?i)^/model\s+\S+(?:\s|$)`),
	regexp.MustCompile(`(?i)^/exec\s+\S+(?:\s|$)`),
}

// Extract scans message for directives anchored at its front.
//
// Supported forms, in match order:
//   - /think|/thinking|/t off|minimal|low|medium|high|xhigh
//   - /verbose|/v on|full|off
//   - /reasoning|/r on|off|stream
//   - /elevate|/sudo on|off|ask|full
//   - /model <token>
//   - /exec <token>
//
// Extraction on a message without leading directives returns the trimmed
// message unchanged, so running Extract over its own Clean output is safe.
func Extract(message string) Extraction {
	remainder := strings.TrimSpace(message)

	var directives []string
	for _, pattern := range patterns {
		loc := pattern.FindStringIndex(remainder)
		if loc == nil {
			continue
		}
		directives = append(directives, strings.TrimSpace(remainder[:loc[1]]))
		remainder = strings.TrimSpace(remainder[loc[1]:])
	}

	return Extraction{Directives: directives, Clean: remainder}
}
