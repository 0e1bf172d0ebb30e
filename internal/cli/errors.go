package cli

import (
	"fmt"
	"strconv"

	"tasklist/internal/api"
)

type notFoundError struct {
	kind string
	id   string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.kind, e.id)
}

func errNotFound(kind, id string) error {
	return notFoundError{kind: kind, id: id}
}

// rejectedError maps an API rejection of task id to what the user should read.
func rejectedError(id int64, err error) error {
	if api.IsNotFound(err) {
		return errNotFound("task", strconv.FormatInt(id, 10))
	}
	return fmt.Errorf("rejected by the task API: %w", err)
}
