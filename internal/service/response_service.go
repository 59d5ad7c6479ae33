package service

import "time"

// LogFilter narrows the session event log.
type LogFilter struct {
	Severity string // "", "info", "success", "warning", "danger"
	Badge    string // "", "MANUAL", "AUTO"
	Limit    int    // 0 means every retained entry
}

// ArchiveFilter supports archive filtering by time range and severity.
type ArchiveFilter struct {
	From     time.Time // inclusive; zero means no lower bound
	To       time.Time // inclusive; zero means no upper bound
	Severity string
}
