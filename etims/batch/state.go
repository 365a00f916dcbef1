package batch

// State of the processor. Failed persists until the next run starts.
type State int32

const (
	Idle State = iota
	Loading
	Extracting
	Processing
	Committing
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Extracting:
		return "extracting"
	case Processing:
		return "processing"
	case Committing:
		return "committing"
	case Failed:
		return "failed"
	}
	return "unknown"
}
