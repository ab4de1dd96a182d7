package event

import (
	"github.com/Iqvpi1024/dirsoul/pkg/models"
	"github.com/jmoiron/sqlx"
)

// EventIterator streams query results row by row so unbounded time ranges
// are never materialized in memory.
type EventIterator struct {
	rows *sqlx.Rows
	err  error
}

// Next advances to the next event. It returns false when the result set is
// exhausted or a scan error occurred; check Err after the loop.
func (it *EventIterator) Next() bool {
	if it.err != nil {
		return false
	}
	return it.rows.Next()
}

// Event scans the current row
func (it *EventIterator) Event() (*models.Event, error) {
	var event models.Event
	if err := it.rows.StructScan(&event); err != nil {
		it.err = err
		return nil, err
	}
	return &event, nil
}

// Err returns the first error encountered during iteration
func (it *EventIterator) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.rows.Err()
}

// Close releases the underlying rows
func (it *EventIterator) Close() error {
	return it.rows.Close()
}

// Collect drains the iterator into a slice and closes it
func (it *EventIterator) Collect() ([]models.Event, error) {
	defer it.Close()

	var items []models.Event
	for it.Next() {
		event, err := it.Event()
		if err != nil {
			return nil, err
		}
		items = append(items, *event)
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
