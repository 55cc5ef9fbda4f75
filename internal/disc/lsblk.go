package disc

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ReadLabel returns the filesystem label lsblk reports for device.
func ReadLabel(ctx context.Context, binary, device string, timeout time.Duration) (string, error) {
	device = strings.TrimSpace(device)
	if device == "" {
		return "", fmt.Errorf("no device specified")
	}
	if strings.TrimSpace(binary) == "" {
		binary = "lsblk"
	}

	lsblkCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		lsblkCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	output, err := exec.CommandContext(lsblkCtx, binary, "-P", "-o", "LABEL,FSTYPE", device).Output() //nolint:gosec
	if err != nil {
		return "", fmt.Errorf("run lsblk: %w", err)
	}

	label, _ := ParseLSBLKLabelFSType(string(output))
	if strings.TrimSpace(label) == "" {
		return "", fmt.Errorf("no disc label found")
	}
	return label, nil
}

// ParseLSBLKLabelFSType parses lsblk -P output and returns the first LABEL/FSTYPE pair.
func ParseLSBLKLabelFSType(output string) (string, string) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		data := parseLSBLKPairs(line)
		if len(data) == 0 {
			continue
		}
		return data["LABEL"], data["FSTYPE"]
	}
	return "", ""
}

// parseLSBLKPairs reads KEY="value" pairs; values may contain spaces.
func parseLSBLKPairs(line string) map[string]string {
	result := make(map[string]string)
	for len(line) > 0 {
		line = strings.TrimLeft(line, " \t")
		eq := strings.IndexByte(line, '=')
		if eq <= 0 {
			break
		}
		key := line[:eq]
		rest := line[eq+1:]
		var value string
		if strings.HasPrefix(rest, "\"") {
			end := strings.IndexByte(rest[1:], '"')
			if end < 0 {
				value, rest = rest[1:], ""
			} else {
				value, rest = rest[1:end+1], rest[end+2:]
			}
		} else {
			sp := strings.IndexAny(rest, " \t")
			if sp < 0 {
				value, rest = rest, ""
			} else {
				value, rest = rest[:sp], rest[sp:]
			}
		}
		result[key] = value
		line = rest
	}
	return result
}
