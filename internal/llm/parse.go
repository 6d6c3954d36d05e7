package llm

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	scorePattern  = regexp.MustCompile(`SCORE:\s*(\d+)`)
	reasonPattern = regexp.MustCompile(`(?s)REASON:\s*(.*)$`)
)

// ParseScore reads the "SCORE: n | REASON: text" micro-format. ok is false
// when neither field was found and both values are the defaults.
func ParseScore(text string, defaultScore int, defaultReason string) (score int, reason string, ok bool) {
	score, reason = defaultScore, defaultReason

	if m := scorePattern.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			score = n
			ok = true
		}
	}
	if m := reasonPattern.FindStringSubmatch(text); m != nil {
		if r := strings.TrimSpace(m[1]); r != "" {
			reason = r
			ok = true
		}
	}
	return score, reason, ok
}

// ParseSubjectMessage reads the two line "Subject: ... Message: ..." reply.
// Without a Subject marker the whole reply is the message.
func ParseSubjectMessage(text, defaultSubject string) (subject, message string) {
	if !strings.Contains(text, "Subject:") {
		return defaultSubject, strings.TrimSpace(text)
	}
	rest := text[strings.LastIndex(text, "Subject:")+len("Subject:"):]
	subject, message, _ = strings.Cut(rest, "Message:")
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = defaultSubject
	}
	return subject, strings.TrimSpace(message)
}
