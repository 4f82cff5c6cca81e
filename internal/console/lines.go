package console

import (
	"strings"
	"time"

	"github.com/five82/scrapedeck/internal/scraper"
)

// Source labels where a log line came from. Sources are rendered in separate
// sections and never interleaved.
type Source string

const (
	SourceLocal  Source = "local"
	SourceErrors Source = "errors"
	SourceCI     Source = "ci"
)

// LogLine is the normalized shape of every log source.
type LogLine struct {
	Timestamp time.Time
	Source    Source
	SiteKey   string
	Message   string
}

// FromLogEntries converts local recent-log entries. The level is folded into
// the message so the aggregator never needs to know about it.
func FromLogEntries(entries []scraper.LogEntry) []LogLine {
	if len(entries) == 0 {
		return nil
	}
	out := make([]LogLine, 0, len(entries))
	for _, e := range entries {
		msg := strings.TrimSpace(e.Message)
		if level := strings.ToUpper(strings.TrimSpace(e.Level)); level != "" {
			msg = level + " " + msg
		}
		out = append(out, LogLine{
			Timestamp: e.ParsedTime(),
			Source:    SourceLocal,
			SiteKey:   strings.TrimSpace(e.SiteKey),
			Message:   msg,
		})
	}
	return out
}

// FromErrorLogs converts local error-log entries.
func FromErrorLogs(entries []scraper.ErrorLog) []LogLine {
	if len(entries) == 0 {
		return nil
	}
	out := make([]LogLine, 0, len(entries))
	for _, e := range entries {
		msg := strings.TrimSpace(e.Message)
		if kind := strings.TrimSpace(e.ErrorType); kind != "" {
			msg = kind + ": " + msg
		}
		out = append(out, LogLine{
			Timestamp: e.ParsedTime(),
			Source:    SourceErrors,
			SiteKey:   strings.TrimSpace(e.SiteKey),
			Message:   msg,
		})
	}
	return out
}

// FromJobLog converts one raw CI log line. CI runners prefix lines with an
// RFC 3339 timestamp; when present it is split off into Timestamp.
func FromJobLog(raw string) LogLine {
	line := LogLine{Source: SourceCI, Message: strings.TrimRight(raw, "\r\n")}
	head, rest, found := strings.Cut(line.Message, " ")
	if !found {
		return line
	}
	if ts, err := time.Parse(time.RFC3339Nano, head); err == nil {
		line.Timestamp = ts
		line.Message = rest
	}
	return line
}

// FromJobLogs converts a slice of raw CI log lines.
func FromJobLogs(raw []string) []LogLine {
	if len(raw) == 0 {
		return nil
	}
	out := make([]LogLine, len(raw))
	for i, r := range raw {
		out[i] = FromJobLog(r)
	}
	return out
}

// CapRecent returns lines most-recent-first, truncated to max entries. The
// input is expected oldest-first as served by the API.
func CapRecent(lines []LogLine, max int) []LogLine {
	if len(lines) == 0 {
		return nil
	}
	n := len(lines)
	if max > 0 && n > max {
		n = max
	}
	out := make([]LogLine, 0, n)
	for i := len(lines) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, lines[i])
	}
	return out
}

// String renders the line for copy/paste.
func (l LogLine) String() string {
	var b strings.Builder
	if !l.Timestamp.IsZero() {
		b.WriteString(l.Timestamp.Local().Format("15:04:05"))
		b.WriteByte(' ')
	}
	if l.SiteKey != "" {
		b.WriteByte('[')
		b.WriteString(l.SiteKey)
		b.WriteString("] ")
	}
	b.WriteString(l.Message)
	return b.String()
}
