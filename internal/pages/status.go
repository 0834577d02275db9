package pages

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lifetime-memories/albumkeeper/internal/github"
)

// Status is the build state of a Pages site as the poller sees it.
type Status string

const (
	NotStarted Status = "not-started"
	Building   Status = "building"
	Completed  Status = "completed"
	Failed     Status = "failed"
	TimedOut   Status = "timed-out"
)

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool {
	switch s {
	case Completed, Failed, TimedOut:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// ParseStatus accepts the status names used in configuration.
func ParseStatus(name string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(name))) {
	case NotStarted, "not_started", "notstarted":
		return NotStarted, nil
	case Building:
		return Building, nil
	case Completed:
		return Completed, nil
	case Failed:
		return Failed, nil
	case TimedOut, "timed_out", "timeout":
		return TimedOut, nil
	}
	return "", fmt.Errorf("unknown build status %q", name)
}

// Mapper turns the raw status strings GitHub reports into Status values.
type Mapper struct {
	table map[string]Status
}

func defaultTable() map[string]Status {
	return map[string]Status{
		"":                NotStarted,
		"null":            NotStarted,
		github.NotEnabled: NotStarted,
		"queued":          Building,
		"building":        Building,
		"built":           Completed,
		"errored":         Failed,
	}
}

// DefaultMapper maps GitHub's documented Pages statuses.
func DefaultMapper() Mapper {
	return Mapper{table: defaultTable()}
}

// NewMapper layers overrides (raw value to status name) on top of the
// defaults.
func NewMapper(overrides map[string]string) (Mapper, error) {
	table := defaultTable()
	keys := make([]string, 0, len(overrides))
	for raw := range overrides {
		keys = append(keys, raw)
	}
	sort.Strings(keys)
	for _, raw := range keys {
		status, err := ParseStatus(overrides[raw])
		if err != nil {
			return Mapper{}, fmt.Errorf("status_map[%q]: %w", raw, err)
		}
		table[strings.ToLower(strings.TrimSpace(raw))] = status
	}
	return Mapper{table: table}, nil
}

// Map returns the status for raw. Unknown values map to Building with
// known=false so the caller can log them.
func (m Mapper) Map(raw string) (status Status, known bool) {
	table := m.table
	if table == nil {
		table = defaultTable()
	}
	status, known = table[strings.ToLower(strings.TrimSpace(raw))]
	if !known {
		return Building, false
	}
	return status, true
}
