package numerator

import (
	"context"
	"time"
)

// Generator hands out collision-free numbers.
//
// Two concurrent calls for the same prefix and day never receive the same number.
// Implementations serialise on the (prefix, day) key with an atomic increment;
// deriving "last number + 1" from a plain read is not allowed.
type Generator interface {
	// NextNumber returns PREFIX-YYYYMMDD-NNNN, NNNN being one past the day's current maximum.
	NextNumber(ctx context.Context, prefix string, date time.Time) (string, error)
}
