package checkout

// Step is one of the five named checkout phases. Progress is forward through
// the numbered steps; backward navigation is allowed except once the attempt
// reaches Processing.
type Step int

const (
	StepProductSelection Step = iota + 1
	StepPaymentInfo
	StepSummary
	StepProcessing
	StepResult
)

var stepNames = map[Step]string{
	StepProductSelection: "product_selection",
	StepPaymentInfo:      "payment_info",
	StepSummary:          "summary",
	StepProcessing:       "processing",
	StepResult:           "result",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether s is one of the named steps.
func (s Step) Valid() bool {
	_, ok := stepNames[s]
	return ok
}
