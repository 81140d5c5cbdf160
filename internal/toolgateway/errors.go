package toolgateway

import "fmt"

// ToolNotFoundError is returned when tools/call names a tool absent
// from the session role's bundle.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("toolgateway: tool %q not found", e.Name)
}

func newToolNotFound(name string) error {
	return &ToolNotFoundError{Name: name}
}
