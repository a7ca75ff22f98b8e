package tier

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// MemoryProbe reports total host memory in GB. The probe runs once at
// manager construction; a failing probe drops the manager to the
// conservative default tier.
type MemoryProbe interface {
	TotalRAMGB() (float64, error)
}

// ProcMeminfoProbe reads MemTotal from /proc/meminfo.
type ProcMeminfoProbe struct {
	// Path overrides the meminfo location, for tests.
	Path string
}

// TotalRAMGB parses MemTotal out of the meminfo file.
func (p ProcMeminfoProbe) TotalRAMGB() (float64, error) {
	path := p.Path
	if path == "" {
		path = "/proc/meminfo"
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open meminfo: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			break
		}
		kb, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return 0, fmt.Errorf("parse MemTotal: %w", err)
		}
		return kb / (1024 * 1024), nil
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("MemTotal not found in %s", path)
}

// StaticProbe returns a fixed value. Used in tests and by callers that
// already know the host memory.
type StaticProbe struct {
	GB  float64
	Err error
}

func (p StaticProbe) TotalRAMGB() (float64, error) {
	return p.GB, p.Err
}
