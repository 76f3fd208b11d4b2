package pairs

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pairlab/internal/domain"
)

// State is the running context threaded from one date to the next.
type State struct {
	Equity   float64
	Position domain.PositionSide
	DaysHeld int
	Model    HedgeModel
	HasModel bool
}

// DayInput is everything a single date's position and ledger transition
// reads. PrevZ comes from the previous date's journal record.
type DayInput struct {
	Date       time.Time
	Model      HedgeModel
	Obs        SpreadObservation
	PrevZ      float64
	HasPrevZ   bool
	RetA       float64
	RetB       float64
	HasReturns bool
	Refit      bool
}

// Advance applies one date's transition to st: decide the signal from the
// previous z-score, charge the transition cost, adopt the position, then
// accrue the day's P&L on the adopted position.
func Advance(st State, in DayInput, p Params) (State, Record) {
	signal := domain.SideFlat
	if in.HasPrevZ {
		signal = NextPosition(st.Position, st.DaysHeld, in.PrevZ, Thresholds{
			EntryZ:  p.EntryZ,
			ExitZ:   p.ExitZ,
			MaxHold: p.MaxHold,
		})
	}

	cost := TransitionCost(st.Equity, st.Position, signal, p)
	st.Equity -= cost
	st.DaysHeld = advanceHeld(signal, st.DaysHeld)
	st.Position = signal

	pnl := 0.0
	if in.HasReturns {
		pnl = DailyPnL(st.Position, in.Model.Beta, st.Equity*p.LegFraction, in.RetA, in.RetB)
	}
	st.Equity += pnl

	return st, Record{
		Date:     in.Date,
		HasModel: true,
		Refit:    in.Refit,
		Model:    in.Model,
		Obs:      in.Obs,
		Signal:   signal,
		Position: st.Position,
		DaysHeld: st.DaysHeld,
		Cost:     cost,
		PnL:      pnl,
		Equity:   st.Equity,
	}
}

// Simulation steps through a price history one date at a time.
type Simulation struct {
	params  Params
	history *PriceHistory
	legs    legs
	journal *Journal
	state   State

	degenerateFits int
	log            *slog.Logger
}

// NewSimulation validates the inputs and prepares a simulation positioned
// before the first date.
func NewSimulation(h *PriceHistory, p Params) (*Simulation, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if h == nil {
		return nil, fmt.Errorf("%w: nil history", ErrMisaligned)
	}
	if h.Len() < p.Window {
		return nil, &InsufficientHistoryError{Have: h.Len(), Need: p.Window}
	}
	return &Simulation{
		params:  p,
		history: h,
		legs:    buildLegs(h, p.InvertB),
		journal: newJournal(h.Len()),
		state:   State{Equity: p.CapitalStart},
		log: slog.Default().With(
			"component", "pairs",
			"pair", h.SymbolB()+"/"+h.SymbolA(),
		),
	}, nil
}

// Done reports whether every date has been processed.
func (s *Simulation) Done() bool { return s.journal.Len() == s.history.Len() }

// State returns the context after the last processed date.
func (s *Simulation) State() State { return s.state }

// Journal returns the log of processed dates.
func (s *Simulation) Journal() *Journal { return s.journal }

// Step processes the next date and returns its record.
func (s *Simulation) Step() (Record, error) {
	if s.Done() {
		return Record{}, errors.New("simulation already complete")
	}
	i := s.journal.Len()
	row := s.history.Row(i)
	w := s.params.Window

	if i < w {
		return s.passThrough(row.Date), nil
	}

	refit := false
	if refreshDue(i, w, s.params.RefreshBeta) {
		m, err := fitWindow(s.legs, i, w, row.Date)
		switch {
		case err == nil:
			s.state.Model = m
			s.state.HasModel = true
			refit = true
			s.log.Debug("hedge refit", "date", row.Date.Format(time.DateOnly), "alpha", m.Alpha, "beta", m.Beta)
		case errors.Is(err, ErrDegenerateRegression):
			s.degenerateFits++
			s.log.Debug("keeping prior hedge", "date", row.Date.Format(time.DateOnly), "err", err)
		default:
			return Record{}, err
		}
	}
	if !s.state.HasModel {
		return s.passThrough(row.Date), nil
	}

	in := DayInput{
		Date:  row.Date,
		Model: s.state.Model,
		Obs:   observeSpread(s.legs, i, w, s.state.Model),
		Refit: refit,
	}
	if i > w {
		if prev, ok := s.journal.Lag(i, 1); ok && prev.HasModel {
			in.PrevZ = prev.Obs.Z
			in.HasPrevZ = true
		}
	}
	if i > 0 {
		prev := s.history.Row(i - 1)
		in.RetA = simpleReturn(prev.CloseA, row.CloseA)
		in.RetB = simpleReturn(prev.CloseB, row.CloseB)
		in.HasReturns = true
	}

	var rec Record
	s.state, rec = Advance(s.state, in, s.params)
	s.journal.append(rec)
	return rec, nil
}

// passThrough records a date on which no hedge model exists: flat, no P&L.
func (s *Simulation) passThrough(date time.Time) Record {
	rec := Record{
		Date:     date,
		Signal:   domain.SideFlat,
		Position: domain.SideFlat,
		Equity:   s.state.Equity,
	}
	s.journal.append(rec)
	return rec
}

// Result is a completed run.
type Result struct {
	SymbolA        string
	SymbolB        string
	Params         Params
	Records        []Record
	Summary        Summary
	DegenerateFits int
}

// Run simulates the whole history and summarizes it.
func Run(h *PriceHistory, p Params) (*Result, error) {
	sim, err := NewSimulation(h, p)
	if err != nil {
		return nil, err
	}
	for !sim.Done() {
		if _, err := sim.Step(); err != nil {
			return nil, fmt.Errorf("step %d: %w", sim.journal.Len(), err)
		}
	}
	records := sim.journal.Records()
	return &Result{
		SymbolA:        h.SymbolA(),
		SymbolB:        h.SymbolB(),
		Params:         p,
		Records:        records,
		Summary:        Summarize(records, p.CapitalStart),
		DegenerateFits: sim.degenerateFits,
	}, nil
}
