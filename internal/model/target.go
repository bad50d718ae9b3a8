package model

import (
	"net"
	"strconv"
)

// DefaultPort is used when an input line carries no usable port.
const DefaultPort = 443

// UnknownCountry is the label recorded when geolocation fails.
const UnknownCountry = "unknown"

// Entry is a normalized input line such as:
//
//	1.2.3.4
//	example.com
//	example.com:8443
type Entry struct {
	Host    string // IPv4 literal or hostname
	Port    int
	Literal bool   // Host is already an IPv4 address
	Raw     string // original line
}

// Target is a single (ip, port) candidate produced from an input line.
type Target struct {
	Address      string // IPv4 literal
	Port         int
	OriginalHost string // input line the target came from
}

// Addr returns the dialable "ip:port" form.
func (t Target) Addr() string {
	return net.JoinHostPort(t.Address, strconv.Itoa(t.Port))
}

// Key identifies a target for deduplication.
func (t Target) Key() string {
	return t.Address + ":" + strconv.Itoa(t.Port)
}

// ProbeOutcome is the result of one TLS handshake attempt.
type ProbeOutcome struct {
	Success   bool
	LatencyMs int64  // set only on success
	Error     string // set only on failure, "Timeout" when the deadline fired
}

// EnrichedResult is a reachable target annotated with its country.
// Only targets with a successful probe ever become one.
type EnrichedResult struct {
	Address   string `json:"address"`
	Port      int    `json:"port"`
	Host      string `json:"host"`
	Country   string `json:"country"`
	LatencyMs int64  `json:"latency_ms"`
}

// RunStats aggregates summary analytics for an entire run.
type RunStats struct {
	Entries               int     `json:"entries"`
	Targets               int     `json:"targets"`
	UniqueTargets         int     `json:"unique_targets"`
	Alive                 int     `json:"alive"`
	SuccessRatePct        float64 `json:"success_rate_pct"`
	AvgLatencyMs          float64 `json:"avg_latency_ms"`
	MinLatencyMs          int64   `json:"min_latency_ms"`
	MaxLatencyMs          int64   `json:"max_latency_ms"`
	TotalProcessingTimeMs int64   `json:"total_processing_time_ms"`
}
