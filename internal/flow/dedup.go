package flow

import (
	"fmt"
	"time"

	"github.com/ssvmg10-debug/UI-automation/internal/step"
)

// Dedup normalizes a plan before execution: consecutive WAITs merge into
// one with their durations summed, zero-duration WAITs drop, and repeated
// identical CLICKs collapse to a single click. Order of the surviving
// steps is preserved.
func Dedup(steps []step.Step) []step.Step {
	out := make([]step.Step, 0, len(steps))
	for i := 0; i < len(steps); i++ {
		st := steps[i]
		switch st.Action {
		case step.Wait:
			total, fixed := st.WaitDuration()
			last := st
			for i+1 < len(steps) && steps[i+1].Action == step.Wait {
				i++
				last = steps[i]
				if d, ok := last.WaitDuration(); ok {
					total += d
					fixed = true
				} else {
					fixed = false
				}
			}
			if fixed {
				if total <= 0 {
					continue
				}
				out = append(out, step.Step{
					Action: step.Wait,
					Value:  fmt.Sprintf("%g", total.Round(100*time.Millisecond).Seconds()),
				})
				continue
			}
			// Element waits are not summable; keep the last one.
			out = append(out, last)
		case step.Click:
			if len(out) > 0 {
				prev := out[len(out)-1]
				if prev.Action == step.Click && NormalizeTarget(prev.Target) == NormalizeTarget(st.Target) {
					continue
				}
			}
			out = append(out, st)
		default:
			out = append(out, st)
		}
	}
	return out
}
