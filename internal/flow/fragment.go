package flow

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/ssvmg10-debug/UI-automation/internal/step"
)

// FragmentStep is one step of a recorded fragment. Values are stripped:
// a fragment describes where clicks lead, not what was typed.
type FragmentStep struct {
	Action step.Kind `json:"action"`
	Target string    `json:"target"`
}

// Fragment is a successful step sequence observed on a site: from a start
// URL, through the recorded steps, to an end URL. Replaying it means
// jumping straight to the end URL.
type Fragment struct {
	ID           int64     `db:"id" json:"id"`
	Site         string    `db:"site" json:"site"`
	StartURL     string    `db:"start_url" json:"start_url"`
	EndURL       string    `db:"end_url" json:"end_url"`
	StepsJSON    string    `db:"steps" json:"-"`
	SuccessCount int       `db:"success_count" json:"success_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

func (f *Fragment) Steps() ([]FragmentStep, error) {
	var steps []FragmentStep
	if err := json.Unmarshal([]byte(f.StepsJSON), &steps); err != nil {
		return nil, err
	}
	return steps, nil
}

func (f *Fragment) SetSteps(steps []FragmentStep) error {
	data, err := json.Marshal(steps)
	if err != nil {
		return err
	}
	f.StepsJSON = string(data)
	return nil
}

// NormalizeTarget canonicalizes a target for fragment identity and
// matching: folded case, collapsed whitespace.
func NormalizeTarget(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// NormalizeURL strips the trailing slash so /cart and /cart/ are one URL.
func NormalizeURL(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), "/")
}

// FragmentStepOf converts a plan step into its fragment form.
func FragmentStepOf(st step.Step) FragmentStep {
	return FragmentStep{Action: st.Action, Target: NormalizeTarget(st.Target)}
}

// Replayable reports whether a step kind may participate in fragments.
// Form-filling steps are excluded by default: replaying past a TYPE would
// skip data entry that the run actually needs.
func Replayable(kind step.Kind, includeFormSteps bool) bool {
	switch kind {
	case step.Navigate, step.Click, step.Wait:
		return true
	case step.Type, step.Select:
		return includeFormSteps
	default:
		return false
	}
}
