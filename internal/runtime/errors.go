package runtime

import "fmt"

// ActionError is the final failure of an action node after all retries.
type ActionError struct {
	NodeID   string
	Action   string
	Attempts int
	Err      error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %s at node %s failed after %d attempt(s): %v", e.Action, e.NodeID, e.Attempts, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}
