package reconcile

import (
	"errors"
	"fmt"
)

// ErrRankContention is returned when ranks could not be settled because
// houses kept changing underneath the writer.
var ErrRankContention = errors.New("ranks kept changing during reconciliation")

// PartialWriteError reports a propagation that stopped partway. Houses
// written before the failure keep their new values.
type PartialWriteError struct {
	// Written counts houses whose score and rank were both written.
	Written int
	HouseID string
	Err     error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("reconcile stopped at house %s after %d houses: %v", e.HouseID, e.Written, e.Err)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }
