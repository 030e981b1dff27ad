package entity

// Step is a state of the editing flow.
type Step string

const (
	StepUpload  Step = "UPLOAD"
	StepExtract Step = "EXTRACT"
	StepSelect  Step = "SELECT"
	StepResult  Step = "RESULT"
	StepMeasure Step = "MEASURE"
)

// TranslationKey is the i18n key naming the step in the progress header.
func (s Step) TranslationKey() string {
	switch s {
	case StepUpload:
		return "editor.step.upload"
	case StepExtract:
		return "editor.step.extract"
	case StepSelect:
		return "editor.step.select"
	case StepResult:
		return "editor.step.result"
	case StepMeasure:
		return "editor.result.measure"
	default:
		return string(s)
	}
}

// CanTransition reports whether the flow allows moving from s to next.
// Reset to StepUpload is handled separately and allowed from every step.
func (s Step) CanTransition(next Step) bool {
	switch s {
	case StepUpload:
		return next == StepExtract
	case StepExtract:
		return next == StepSelect
	case StepSelect:
		return next == StepResult
	case StepResult:
		return next == StepMeasure || next == StepUpload
	case StepMeasure:
		return next == StepResult
	}
	return false
}
