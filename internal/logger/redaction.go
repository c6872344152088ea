package logger

import (
	"io"
	"regexp"
)

// Redactor scrubs credential-shaped strings from log output before it
// reaches any writer. Capability handlers log freely; identities, API
// keys and fetch headers must not end up in files.
type Redactor struct {
	patterns []*regexp.Regexp
}

const redactedPlaceholder = "[REDACTED]"

// NewRedactor creates a redactor with the default pattern set.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []*regexp.Regexp{
			// Provider API keys
			regexp.MustCompile(`sk-[a-zA-Z0-9_-]{20,}`),
			regexp.MustCompile(`sk-ant-[a-zA-Z0-9_-]{20,}`),

			// Bearer tokens
			regexp.MustCompile(`Bearer\s+[a-zA-Z0-9._-]+`),

			// AWS access keys
			regexp.MustCompile(`AKIA[0-9A-Z]{16}`),

			// Key/value shaped secrets
			regexp.MustCompile(`password["\s:=]+[^\s"]+`),
			regexp.MustCompile(`token["\s:=]+[a-zA-Z0-9._-]{20,}`),
			regexp.MustCompile(`secret["\s:=]+[^\s"]+`),
		},
	}
}

// Redact replaces every secret-shaped match in the input.
func (r *Redactor) Redact(s string) string {
	for _, pattern := range r.patterns {
		s = pattern.ReplaceAllString(s, redactedPlaceholder)
	}
	return s
}

// Wrap returns a writer that redacts everything written through it.
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{redactor: r, next: w}
}

type redactingWriter struct {
	redactor *Redactor
	next     io.Writer
}

func (w *redactingWriter) Write(p []byte) (int, error) {
	scrubbed := w.redactor.Redact(string(p))
	if _, err := w.next.Write([]byte(scrubbed)); err != nil {
		return 0, err
	}
	// Report the original length so zerolog does not treat the shorter
	// scrubbed write as an error.
	return len(p), nil
}
