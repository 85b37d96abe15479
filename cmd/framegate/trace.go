package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/framegate/framegate/probe"
)

/*
parseTick parses one trace entry into a host surface:

	60        the host reports an FPS property of 60
	dt:0.05   the host reports no FPS property, and an update delta of 0.05 seconds
	-         the host reports nothing
*/
func parseTick(entry string) (*simHost, error) {
	entry = strings.TrimSpace(entry)
	switch {
	case entry == "-":
		return &simHost{}, nil
	case strings.HasPrefix(entry, "dt:"):
		delta, err := strconv.ParseFloat(strings.TrimPrefix(entry, "dt:"), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid delta %q: %w", entry, err)
		}
		return &simHost{updateDelta: delta}, nil
	default:
		fps, err := strconv.ParseFloat(entry, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid sample %q: %w", entry, err)
		}
		return &simHost{info: probe.MapInfo{probe.FPSProperty: fps}}, nil
	}
}

// readTrace reads one entry per line, skipping blank lines and lines starting with #.
func readTrace(r io.Reader) ([]*simHost, error) {
	var hosts []*simHost
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		host, err := parseTick(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		hosts = append(hosts, host)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return hosts, nil
}
