package step

// FailureReason classifies why a step could not be completed. The value is
// stable and machine-readable; callers branch on it for recovery.
type FailureReason string

const (
	ReasonNone FailureReason = ""

	// ReasonExtractionEmpty: the page yielded no elements of the needed class.
	ReasonExtractionEmpty FailureReason = "EXTRACTION_EMPTY"

	// ReasonFilterEmpty: candidates existed but none survived filtering,
	// even after the relaxed pass.
	ReasonFilterEmpty FailureReason = "FILTER_EMPTY"

	// ReasonNoCandidateAboveThreshold: ranking produced scores, none cleared
	// the effective acceptance threshold.
	ReasonNoCandidateAboveThreshold FailureReason = "NO_CANDIDATE_ABOVE_THRESHOLD"

	// ReasonActionFailed: the browser-level interaction itself errored.
	ReasonActionFailed FailureReason = "ACTION_FAILED"

	// ReasonNoValidTransition: the action ran but the page state did not
	// change in a way consistent with the action.
	ReasonNoValidTransition FailureReason = "NO_VALID_TRANSITION"

	// ReasonWaitTimeout: a WAIT step's condition never became true.
	ReasonWaitTimeout FailureReason = "WAIT_TIMEOUT"

	// ReasonInvalidStep: the step failed structural validation.
	ReasonInvalidStep FailureReason = "INVALID_STEP"
)
