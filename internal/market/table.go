package market

import (
	"sort"
	"time"
)

// Table is an ordered candle series for one (instrument, interval),
// tagged with the provider that produced or last refreshed it.
// After Normalize the rows have strictly increasing, unique UTC timestamps.
type Table struct {
	Source string
	Rows   []Candle
}

func (t Table) Len() int    { return len(t.Rows) }
func (t Table) Empty() bool { return len(t.Rows) == 0 }

func (t Table) Last() (Candle, bool) {
	if len(t.Rows) == 0 {
		return Candle{}, false
	}
	return t.Rows[len(t.Rows)-1], true
}

// Normalize returns a copy sorted by timestamp with duplicate timestamps
// collapsed keep-last, all times converted to UTC.
func (t Table) Normalize() Table {
	rows := make([]Candle, len(t.Rows))
	copy(rows, t.Rows)
	for i := range rows {
		rows[i].Time = rows[i].Time.UTC()
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Time.Before(rows[j].Time) })
	out := rows[:0]
	for _, c := range rows {
		n := len(out)
		if n > 0 && out[n-1].Time.Equal(c.Time) {
			out[n-1] = c
			continue
		}
		out = append(out, c)
	}
	return Table{Source: t.Source, Rows: out}
}

// Merge outer-unions t with other keyed by timestamp; rows from other win on
// conflicting timestamps. The result carries other's source tag when set.
func (t Table) Merge(other Table) Table {
	rows := make([]Candle, 0, len(t.Rows)+len(other.Rows))
	rows = append(rows, t.Rows...)
	rows = append(rows, other.Rows...)
	source := other.Source
	if source == "" {
		source = t.Source
	}
	return Table{Source: source, Rows: rows}.Normalize()
}

// Clip restricts the table to [start, end]. Zero bounds are open.
func (t Table) Clip(start, end time.Time) Table {
	rows := t.Rows
	if !start.IsZero() {
		i := sort.Search(len(rows), func(i int) bool { return !rows[i].Time.Before(start) })
		rows = rows[i:]
	}
	if !end.IsZero() {
		i := sort.Search(len(rows), func(i int) bool { return rows[i].Time.After(end) })
		rows = rows[:i]
	}
	out := make([]Candle, len(rows))
	copy(out, rows)
	return Table{Source: t.Source, Rows: out}
}
