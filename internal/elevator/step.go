package elevator

type StepKind int

const (
	StepNone StepKind = iota
	StepMoved
	StepReversed
	StepIdled
)

var stepKindNames = map[StepKind]string{
	StepNone:     "none",
	StepMoved:    "moved",
	StepReversed: "reversed",
	StepIdled:    "idled",
}

func (k StepKind) String() string {
	if name, ok := stepKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Step describes the outcome of one Advance call. Floor and Direction are
// the car's position after the step.
type Step struct {
	Kind      StepKind
	Floor     int
	Direction Direction
}
