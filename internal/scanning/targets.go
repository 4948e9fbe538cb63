package scanning

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

const (
	maxPort = 65535

	// Port validation constants.
	expectedPortRangeParts = 2
)

// defaultPorts is the table of commonly probed service ports.
var defaultPorts = [...]uint16{
	20,    // FTP Data
	21,    // FTP Control
	22,    // SSH
	23,    // Telnet
	25,    // SMTP
	53,    // DNS
	80,    // HTTP
	110,   // POP3
	115,   // SFTP
	119,   // NNTP
	123,   // NTP
	143,   // IMAP
	161,   // SNMP
	194,   // IRC
	443,   // HTTPS
	445,   // Microsoft-DS (SMB)
	587,   // SMTP Submission
	993,   // IMAPS
	995,   // POP3S
	1433,  // Microsoft SQL Server
	1521,  // Oracle Database
	3306,  // MySQL
	3389,  // RDP
	5432,  // PostgreSQL
	5900,  // VNC
	8080,  // HTTP Alternative
	8443,  // HTTPS Alternative
	9090,  // HTTP Alternative
	9200,  // Elasticsearch
	27017, // MongoDB
}

// DefaultPorts returns a copy of the default port table.
func DefaultPorts() []uint16 {
	out := make([]uint16, len(defaultPorts))
	copy(out, defaultPorts[:])
	return out
}

// EffectivePorts returns the port list a scan should use. Unless only is set
// the defaults come first, followed by the user ports. An empty result falls
// back to the defaults.
func EffectivePorts(user []uint16, only bool) []uint16 {
	var ports []uint16
	if !only {
		ports = DefaultPorts()
	}
	ports = append(ports, user...)
	if len(ports) == 0 {
		return DefaultPorts()
	}
	return ports
}

// NormalizePorts converts parsed port numbers to uint16, silently dropping
// values outside 0-65535.
func NormalizePorts(values []int) []uint16 {
	out := make([]uint16, 0, len(values))
	for _, v := range values {
		if v < 0 || v > maxPort {
			continue
		}
		out = append(out, uint16(v))
	}
	return out
}

// ParsePorts parses a port specification such as "22 80,443 8000-8010".
// Tokens are separated by commas or whitespace. Non-numeric tokens are an
// error; numbers outside the valid range are dropped by NormalizePorts.
func ParsePorts(spec string) ([]int, error) {
	fields := strings.FieldsFunc(spec, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})

	var ports []int
	for _, field := range fields {
		if strings.Contains(field, "-") && !isNegativeNumber(field) {
			expanded, err := parsePortRange(field)
			if err != nil {
				return nil, err
			}
			ports = append(ports, expanded...)
			continue
		}

		port, err := parsePortNumber(field)
		if err != nil {
			return nil, fmt.Errorf("invalid port: %s", field)
		}
		ports = append(ports, port)
	}
	return ports, nil
}

// parsePortNumber parses a decimal port. Numbers too large for an int come
// back saturated rather than as an error, so NormalizePorts drops them.
func parsePortNumber(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
		return n, nil
	}
	return n, err
}

// isNegativeNumber reports whether s is "-" followed by decimal digits.
func isNegativeNumber(s string) bool {
	if len(s) < 2 || s[0] != '-' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// parsePortRange expands "a-b". Bounds are clamped to 0-65535 so that an
// oversized range does not expand into values that would be dropped anyway.
func parsePortRange(part string) ([]int, error) {
	rangeParts := strings.Split(part, "-")
	if len(rangeParts) != expectedPortRangeParts {
		return nil, fmt.Errorf("invalid port range format: %s", part)
	}

	start, err := parsePortNumber(strings.TrimSpace(rangeParts[0]))
	if err != nil {
		return nil, fmt.Errorf("invalid start port: %s", rangeParts[0])
	}
	end, err := parsePortNumber(strings.TrimSpace(rangeParts[1]))
	if err != nil {
		return nil, fmt.Errorf("invalid end port: %s", rangeParts[1])
	}
	if start > end {
		return nil, fmt.Errorf("invalid port range: %s (start port must not exceed end port)", part)
	}

	start = max(start, 0)
	end = min(end, maxPort)
	ports := make([]int, 0, max(end-start+1, 0))
	for p := start; p <= end; p++ {
		ports = append(ports, p)
	}
	return ports, nil
}

// BuildTargets returns the address-major cross product of addrs and ports,
// keeping the order of both inputs.
func BuildTargets(addrs []netip.Addr, ports []uint16) []Target {
	targets := make([]Target, 0, len(addrs)*len(ports))
	for _, addr := range addrs {
		for _, port := range ports {
			targets = append(targets, Target{Addr: addr, Port: port})
		}
	}
	return targets
}
