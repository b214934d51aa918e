package types

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultPortRange is the range handed to resource coordinators when none is configured
const DefaultPortRange = "12000-13000"

// PortRange is an inclusive range of ports a resource coordinator may allocate from
type PortRange struct {
	Start int
	End   int
}

// ParsePortRange parses a "start-end" string where start and end are integers and start < end
func ParsePortRange(s string) (PortRange, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return PortRange{}, portRangeError(s)
	}
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return PortRange{}, portRangeError(s)
	}
	end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return PortRange{}, portRangeError(s)
	}
	if start >= end {
		return PortRange{}, portRangeError(s)
	}
	return PortRange{Start: start, End: end}, nil
}

func portRangeError(s string) error {
	return NewConfigurationError("unknown port range format in string '%s', format is: start-end, "+
		"where start and end are integers and start is smaller than end", s)
}

// Size returns the number of ports in the range
func (p PortRange) Size() int {
	return p.End - p.Start + 1
}

// Contains reports whether port lies within the range
func (p PortRange) Contains(port int) bool {
	return port >= p.Start && port <= p.End
}

func (p PortRange) String() string {
	return fmt.Sprintf("%d-%d", p.Start, p.End)
}
