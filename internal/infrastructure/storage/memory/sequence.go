package memory

import (
	"context"
	"time"

	"pharmaledger/internal/core/numerator"
)

// NextNumber implements numerator.Generator. Counters live in the store
// state, so a rolled-back unit of work gives its numbers back.
func (s *Store) NextNumber(_ context.Context, prefix string, date time.Time) (string, error) {
	if err := numerator.ValidatePrefix(prefix); err != nil {
		return "", err
	}
	key := numerator.Key(prefix, date)

	var number string
	err := s.write(func(d *state) error {
		next := d.sequences[key] + 1
		n, err := numerator.Checked(prefix, date, next)
		if err != nil {
			return err
		}
		d.sequences[key] = next
		number = n
		return nil
	})
	return number, err
}
