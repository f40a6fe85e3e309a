/*
snapshot.go - Ledger snapshot encoding

PURPOSE:
  EncodeState and DecodeState convert a worklog.State to and from the
  snapshot document used by the JSON file store and the state API.

JSON SCHEMA:
  {
    "openSessions":       [{"employeeId": "e1", "start": 1704096000, "end": null}],
    "unassignedSessions": [{"employeeId": "e1", "start": 1704096000, "end": 1704103200}],
    "payPeriods": [
      {
        "start":    {"year": 2024, "month": 1, "day": 1},
        "end":      {"year": 2024, "month": 1, "day": 14},
        "sessions": [...]
      }
    ]
  }

  Instants are Unix seconds. Periods are listed newest first.
  Older snapshots name the open sessions "clockedIn"; both names are read,
  only "openSessions" is written.

DECODING:
  Every field above is required except "end" on an open session. A missing
  field is a *generic.SnapshotError naming its path, e.g.
  "payPeriods[1].sessions[0].start". Nothing is partially decoded.
*/
package factory

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/warp/payclock/generic"
	"github.com/warp/payclock/worklog"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// Decoding uses pointer fields so absent and zero values can be told apart.

type stateDoc struct {
	OpenSessions *[]sessionDoc `json:"openSessions"`
	ClockedIn    *[]sessionDoc `json:"clockedIn"`
	Unassigned   *[]sessionDoc `json:"unassignedSessions"`
	PayPeriods   *[]periodDoc  `json:"payPeriods"`
}

type sessionDoc struct {
	EmployeeID *string `json:"employeeId"`
	Start      *int64  `json:"start"`
	End        *int64  `json:"end"`
}

type dateDoc struct {
	Year  *int `json:"year"`
	Month *int `json:"month"`
	Day   *int `json:"day"`
}

type periodDoc struct {
	Start    *dateDoc      `json:"start"`
	End      *dateDoc      `json:"end"`
	Sessions *[]sessionDoc `json:"sessions"`
}

// StateJSON is the encoded form of a snapshot.
type StateJSON struct {
	OpenSessions []SessionJSON `json:"openSessions"`
	Unassigned   []SessionJSON `json:"unassignedSessions"`
	PayPeriods   []PeriodJSON  `json:"payPeriods"`
}

// SessionJSON is one encoded session. End is nil for an open session.
type SessionJSON struct {
	EmployeeID string `json:"employeeId"`
	Start      int64  `json:"start"`
	End        *int64 `json:"end"`
}

// DateJSON is an encoded calendar date.
type DateJSON struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// PeriodJSON is one encoded pay period.
type PeriodJSON struct {
	Start    DateJSON      `json:"start"`
	End      DateJSON      `json:"end"`
	Sessions []SessionJSON `json:"sessions"`
}

// =============================================================================
// ENCODING
// =============================================================================

// StateToJSON converts a state to its JSON representation.
func StateToJSON(state worklog.State) StateJSON {
	out := StateJSON{
		OpenSessions: sessionsToJSON(state.OpenSessions),
		Unassigned:   sessionsToJSON(state.Unassigned),
		PayPeriods:   make([]PeriodJSON, 0, len(state.Periods)),
	}
	for _, p := range state.Periods {
		out.PayPeriods = append(out.PayPeriods, PeriodJSON{
			Start:    dateToJSON(p.Range.Start),
			End:      dateToJSON(p.Range.End),
			Sessions: sessionsToJSON(p.Sessions),
		})
	}
	return out
}

// EncodeState renders state as an indented snapshot document.
func EncodeState(state worklog.State) ([]byte, error) {
	data, err := json.MarshalIndent(StateToJSON(state), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

func sessionsToJSON(sessions []worklog.WorkSession) []SessionJSON {
	out := make([]SessionJSON, 0, len(sessions))
	for _, s := range sessions {
		sj := SessionJSON{EmployeeID: string(s.EmployeeID), Start: s.Start.Unix()}
		if !s.IsOpen() {
			end := s.End.Unix()
			sj.End = &end
		}
		out = append(out, sj)
	}
	return out
}

func dateToJSON(d generic.Date) DateJSON {
	return DateJSON{Year: d.Year, Month: int(d.Month), Day: d.Day}
}

// =============================================================================
// DECODING
// =============================================================================

// DecodeState parses a snapshot document. Malformed JSON and missing fields
// both wrap generic.ErrInvalidSnapshot.
func DecodeState(data []byte) (worklog.State, error) {
	var doc stateDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return worklog.State{}, fmt.Errorf("%w: %v", generic.ErrInvalidSnapshot, err)
	}

	open := doc.OpenSessions
	if open == nil {
		open = doc.ClockedIn
	}
	if open == nil {
		return worklog.State{}, generic.MissingField("openSessions")
	}
	if doc.Unassigned == nil {
		return worklog.State{}, generic.MissingField("unassignedSessions")
	}
	if doc.PayPeriods == nil {
		return worklog.State{}, generic.MissingField("payPeriods")
	}

	var state worklog.State
	var err error
	if state.OpenSessions, err = sessionsFromDoc("openSessions", *open); err != nil {
		return worklog.State{}, err
	}
	if state.Unassigned, err = sessionsFromDoc("unassignedSessions", *doc.Unassigned); err != nil {
		return worklog.State{}, err
	}

	state.Periods = make([]worklog.PeriodState, 0, len(*doc.PayPeriods))
	for i, pd := range *doc.PayPeriods {
		field := fmt.Sprintf("payPeriods[%d]", i)
		start, err := dateFromDoc(field+".start", pd.Start)
		if err != nil {
			return worklog.State{}, err
		}
		end, err := dateFromDoc(field+".end", pd.End)
		if err != nil {
			return worklog.State{}, err
		}
		if pd.Sessions == nil {
			return worklog.State{}, generic.MissingField(field + ".sessions")
		}
		sessions, err := sessionsFromDoc(field+".sessions", *pd.Sessions)
		if err != nil {
			return worklog.State{}, err
		}
		state.Periods = append(state.Periods, worklog.PeriodState{
			Range:    generic.DateRange{Start: start, End: end},
			Sessions: sessions,
		})
	}
	return state, nil
}

func sessionsFromDoc(field string, docs []sessionDoc) ([]worklog.WorkSession, error) {
	out := make([]worklog.WorkSession, 0, len(docs))
	for i, sd := range docs {
		path := fmt.Sprintf("%s[%d]", field, i)
		if sd.EmployeeID == nil || *sd.EmployeeID == "" {
			return nil, generic.MissingField(path + ".employeeId")
		}
		if sd.Start == nil {
			return nil, generic.MissingField(path + ".start")
		}
		s := worklog.WorkSession{
			EmployeeID: generic.EmployeeID(*sd.EmployeeID),
			Start:      time.Unix(*sd.Start, 0).UTC(),
		}
		if sd.End != nil {
			s.End = time.Unix(*sd.End, 0).UTC()
		}
		out = append(out, s)
	}
	return out, nil
}

func dateFromDoc(field string, dd *dateDoc) (generic.Date, error) {
	switch {
	case dd == nil:
		return generic.Date{}, generic.MissingField(field)
	case dd.Year == nil:
		return generic.Date{}, generic.MissingField(field + ".year")
	case dd.Month == nil:
		return generic.Date{}, generic.MissingField(field + ".month")
	case dd.Day == nil:
		return generic.Date{}, generic.MissingField(field + ".day")
	}
	if *dd.Month < 1 || *dd.Month > 12 {
		return generic.Date{}, &generic.SnapshotError{Field: field + ".month", Reason: fmt.Sprintf("month %d out of range", *dd.Month)}
	}
	if *dd.Day < 1 || *dd.Day > 31 {
		return generic.Date{}, &generic.SnapshotError{Field: field + ".day", Reason: fmt.Sprintf("day %d out of range", *dd.Day)}
	}
	d := generic.NewDate(*dd.Year, time.Month(*dd.Month), *dd.Day)
	if d.Month != time.Month(*dd.Month) || d.Day != *dd.Day {
		return generic.Date{}, &generic.SnapshotError{
			Field:  field,
			Reason: fmt.Sprintf("%04d-%02d-%02d is not a calendar day", *dd.Year, *dd.Month, *dd.Day),
		}
	}
	return d, nil
}
