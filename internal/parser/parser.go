package parser

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/August26/tlsprobe-go/internal/model"
)

var dottedQuad = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)

// LoadFromFile reads a file line by line and returns the trimmed entries.
// Empty lines and lines starting with '#' are ignored.
func LoadFromFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan input file: %w", err)
	}
	return out, nil
}

// ParseEntry turns a single line into an Entry.
//
// Supported:
//  1. 1.2.3.4        -> literal, port 443
//  2. host           -> resolve, port 443
//  3. host:port      -> resolve, port (443 when unparsable)
//  4. 1.2.3.4:port   -> literal with port
func ParseEntry(line string) model.Entry {
	if IsIPv4(line) {
		return model.Entry{Host: canonicalIPv4(line), Port: model.DefaultPort, Literal: true, Raw: line}
	}

	host, port := splitHostPort(line)
	if IsIPv4(host) {
		return model.Entry{Host: canonicalIPv4(host), Port: port, Literal: true, Raw: line}
	}
	return model.Entry{Host: host, Port: port, Raw: line}
}

// ParseEntries parses every line, in order.
func ParseEntries(lines []string) []model.Entry {
	out := make([]model.Entry, 0, len(lines))
	for _, l := range lines {
		out = append(out, ParseEntry(l))
	}
	return out
}

// IsIPv4 reports whether s is a dotted-quad address with every octet <= 255.
func IsIPv4(s string) bool {
	if !dottedQuad.MatchString(s) {
		return false
	}
	for _, octet := range strings.Split(s, ".") {
		if n, err := strconv.Atoi(octet); err != nil || n > 255 {
			return false
		}
	}
	return true
}

// canonicalIPv4 drops leading zeros ("01.002.3.4" -> "1.2.3.4") so the
// dialer sees a plain address. s must satisfy IsIPv4.
func canonicalIPv4(s string) string {
	octets := strings.Split(s, ".")
	for i, o := range octets {
		n, _ := strconv.Atoi(o)
		octets[i] = strconv.Itoa(n)
	}
	return strings.Join(octets, ".")
}

// splitHostPort splits on the last ':'; the port falls back to 443.
func splitHostPort(s string) (string, int) {
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return s, model.DefaultPort
	}
	host := s[:idx]
	port, err := strconv.Atoi(s[idx+1:])
	if err != nil || port < 1 || port > 65535 {
		port = model.DefaultPort
	}
	return host, port
}
