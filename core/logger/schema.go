package logger

import "strings"

var levelNames = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

var knownStatus = map[string]struct{}{
	"ok":           {},
	"fail":         {},
	"skip":         {},
	"retry":        {},
	"rate_limited": {},
	"cancelled":    {},
}

var knownOutcome = map[string]struct{}{
	"ok":           {},
	"fail":         {},
	"cancelled":    {},
	"rejected":     {},
	"rate_limited": {},
}

func normalizeLevel(level string) string {
	if level == "" {
		return "INFO"
	}
	if mapped, ok := levelNames[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

// normalizeEnum lowercases v and reports whether it belongs to the allowed set.
func normalizeEnum(v string, allowed map[string]struct{}) (string, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "", false
	}
	_, ok := allowed[v]
	return v, ok
}

// defaultKeyOrder pins the leading keys of every line; the rest follow sorted.
var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"handler",
	"state_from",
	"state_to",
	"event_kind",
	"submission_id",
	"department",
	"outcome",
	"duration_ms",
	"messages",
	"kb",
	"payload",
	"username",
	"mode",
	"listen",
	"public_url",
	"smtp_host",
	"smtp_port",
	"file_unique_id",
	"bytes",
	"err",
	"err_code",
	"cause",
	"attempts",
}
