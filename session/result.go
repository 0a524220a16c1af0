package session

// Result is the outcome of a controller operation. On failure Error holds
// a message fit to show to the user and Data is the zero value.
type Result[T any] struct {
	Success bool
	Data    T
	Error   string
}

// Ok wraps a successful outcome.
func Ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

// Fail wraps a failure message.
func Fail[T any](msg string) Result[T] {
	return Result[T]{Error: msg}
}
