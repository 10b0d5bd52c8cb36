package cart

type Status string

const (
	StatusOpen      Status = "open"
	StatusCompleted Status = "completed"
)

// Checkout is the only way out of open; completed is terminal.
var validNext = map[Status]map[Status]bool{
	StatusOpen:      {StatusCompleted: true},
	StatusCompleted: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
