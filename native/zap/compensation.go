package zap

import "fmt"

// compensationStep reverses a single applied external effect.
type compensationStep struct {
	label  string
	revert func() error
}

// compensationLog records the external effects applied so far in a composite
// flow. When a later leg fails the log is unwound in reverse order before
// the failure surfaces, reproducing all-or-nothing semantics in an
// environment without implicit rollback.
type compensationLog struct {
	steps []compensationStep
}

func newCompensationLog() *compensationLog {
	return &compensationLog{}
}

func (c *compensationLog) record(label string, revert func() error) {
	c.steps = append(c.steps, compensationStep{label: label, revert: revert})
}

// unwind reverses the recorded effects and returns the original cause. A
// failed reversal is attached to the returned error so the caller can see
// that manual reconciliation is required.
func (c *compensationLog) unwind(cause error) error {
	for i := len(c.steps) - 1; i >= 0; i-- {
		step := c.steps[i]
		if err := step.revert(); err != nil {
			return fmt.Errorf("%w (compensation %q failed: %v)", cause, step.label, err)
		}
	}
	return cause
}
