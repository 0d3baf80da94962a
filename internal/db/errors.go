package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"
)

// Sentinel errors for database operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrTaskAlreadyExists indicates a task record with the same ID was
	// previously created.
	ErrTaskAlreadyExists = errors.New("task record already exists")

	// ErrNotFound indicates the requested task record does not exist.
	ErrNotFound = errors.New("task record not found")
)

// wrapQueryError inspects a SurrealDB error and wraps it with the
// appropriate sentinel error if it's a known query error type. Returns the
// original error otherwise.
func wrapQueryError(err error) error {
	if err == nil {
		return nil
	}

	var queryErr *surrealdb.QueryError
	if errors.As(err, &queryErr) {
		if strings.Contains(queryErr.Message, "already exists") {
			return fmt.Errorf("%w: %s", ErrTaskAlreadyExists, queryErr.Message)
		}
	}

	return err
}
