package pairs

import (
	"time"

	"pairlab/internal/domain"
)

// Record is the full simulation output for one date. Model and Obs are only
// meaningful when HasModel is true.
type Record struct {
	Date     time.Time
	HasModel bool
	Refit    bool
	Model    HedgeModel
	Obs      SpreadObservation

	Signal   domain.PositionSide
	Position domain.PositionSide
	DaysHeld int
	Cost     float64
	PnL      float64
	Equity   float64
}

// Journal is the append-only, date-ordered log of records. Values a later
// date depends on are read back from it by index offset, never recomputed.
type Journal struct {
	records []Record
}

func newJournal(capacity int) *Journal {
	return &Journal{records: make([]Record, 0, capacity)}
}

func (j *Journal) append(r Record) {
	j.records = append(j.records, r)
}

// Len returns the number of recorded dates.
func (j *Journal) Len() int { return len(j.records) }

// At returns the record for date index i.
func (j *Journal) At(i int) Record { return j.records[i] }

// Lag returns the record k dates before index i, if one exists.
func (j *Journal) Lag(i, k int) (Record, bool) {
	idx := i - k
	if k < 0 || idx < 0 || idx >= len(j.records) {
		return Record{}, false
	}
	return j.records[idx], true
}

// Records returns a copy of every record.
func (j *Journal) Records() []Record {
	out := make([]Record, len(j.records))
	copy(out, j.records)
	return out
}
