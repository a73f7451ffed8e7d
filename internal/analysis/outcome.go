package analysis

// Outcome carries a step result and whether it came from the model or from defaults.
type Outcome[T any] struct {
	Data     T
	Degraded bool
	Reason   string
}

func Analyzed[T any](data T) Outcome[T] {
	return Outcome[T]{Data: data}
}

func Degraded[T any](data T, reason string) Outcome[T] {
	return Outcome[T]{Data: data, Degraded: true, Reason: reason}
}
