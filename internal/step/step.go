package step

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Kind is the closed set of actions a step may perform.
type Kind string

const (
	Navigate Kind = "NAVIGATE"
	Click    Kind = "CLICK"
	Type     Kind = "TYPE"
	Select   Kind = "SELECT"
	Wait     Kind = "WAIT"
)

// ParseKind normalizes a raw action name into a Kind.
func ParseKind(raw string) (Kind, error) {
	switch Kind(strings.ToUpper(strings.TrimSpace(raw))) {
	case Navigate:
		return Navigate, nil
	case Click:
		return Click, nil
	case Type:
		return Type, nil
	case Select:
		return Select, nil
	case Wait:
		return Wait, nil
	default:
		return "", fmt.Errorf("unknown action %q", raw)
	}
}

// Step is one planned action against the page. Steps come from the planner
// and are treated as untrusted input: Validate before executing.
type Step struct {
	Action Kind   `json:"action" yaml:"action"`
	Target string `json:"target" yaml:"target"`
	Value  string `json:"value,omitempty" yaml:"value,omitempty"`
	Region string `json:"region,omitempty" yaml:"region,omitempty"`
}

func (s Step) Validate() error {
	switch s.Action {
	case Navigate:
		t := strings.TrimSpace(s.Target)
		if !strings.HasPrefix(t, "http://") && !strings.HasPrefix(t, "https://") {
			return fmt.Errorf("NAVIGATE target must be a URL, got %q", s.Target)
		}
	case Click:
		if strings.TrimSpace(s.Target) == "" {
			return fmt.Errorf("CLICK requires a target")
		}
	case Type, Select:
		if strings.TrimSpace(s.Target) == "" {
			return fmt.Errorf("%s requires a target", s.Action)
		}
		if s.Value == "" {
			return fmt.Errorf("%s requires a value", s.Action)
		}
	case Wait:
		// Either a duration or an element description; both live in Target/Value.
	default:
		return fmt.Errorf("unknown action %q", s.Action)
	}
	return nil
}

func (s Step) String() string {
	if s.Value != "" {
		return fmt.Sprintf("%s(%q, %q)", s.Action, s.Target, s.Value)
	}
	return fmt.Sprintf("%s(%q)", s.Action, s.Target)
}

var waitSecondsRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:s|sec|seconds?)?`)

// WaitDuration parses a WAIT step into a fixed hold duration. Zero with
// ok=false means the step describes an element to poll for instead.
func (s Step) WaitDuration() (time.Duration, bool) {
	if s.Action != Wait {
		return 0, false
	}
	for _, raw := range []string{s.Value, s.Target} {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		m := waitSecondsRe.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		// Reject targets like "search results" where the digit is incidental.
		if m[0] != raw {
			continue
		}
		sec, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		return time.Duration(sec * float64(time.Second)), true
	}
	return 0, false
}
