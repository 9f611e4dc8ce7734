// Package proxy holds the optional rotating proxy pool. Rotation is a plain
// atomic take-next so concurrent batches stay safe without locking.
package proxy

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
)

type Pool struct {
	servers []string
	cursor  atomic.Int64
	enabled bool
}

// NewPool builds a pool over the given servers. A nil or empty list yields a
// disabled pool whose Next always reports no proxy.
func NewPool(servers []string, enabled bool) *Pool {
	cleaned := make([]string, 0, len(servers))
	for _, s := range servers {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
			s = "http://" + s
		}
		cleaned = append(cleaned, s)
	}
	return &Pool{servers: cleaned, enabled: enabled && len(cleaned) > 0}
}

// LoadFromFile reads one proxy per line, skipping blanks. A missing file is
// not an error; it yields a disabled pool.
func LoadFromFile(path string, enabled bool) (*Pool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewPool(nil, false), nil
		}
		return nil, fmt.Errorf("failed to open proxy list: %w", err)
	}
	defer f.Close()

	var servers []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		servers = append(servers, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read proxy list: %w", err)
	}

	return NewPool(servers, enabled), nil
}

// Next returns the next proxy in rotation, or false when rotation is
// disabled or the list is empty.
func (p *Pool) Next() (string, bool) {
	if p == nil || !p.enabled {
		return "", false
	}
	idx := p.cursor.Add(1) - 1
	return p.servers[int(idx)%len(p.servers)], true
}

// Enabled reports whether rotation is active.
func (p *Pool) Enabled() bool {
	return p != nil && p.enabled
}

// Size returns the number of configured servers.
func (p *Pool) Size() int {
	if p == nil {
		return 0
	}
	return len(p.servers)
}
