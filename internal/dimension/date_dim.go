package dimension

// DateEntry is one dim_date row derived from a distinct release date.
type DateEntry struct {
	Date    Date
	Year    int
	Month   int
	Quarter int
	Day     int // 0 when the source date had no day
}

// DateDimension accumulates one entry per distinct release date, including the
// unknown sentinel. Entries keep first-registration order.
type DateDimension struct {
	index   map[Date]int
	entries []DateEntry
}

func NewDateDimension() *DateDimension {
	return &DateDimension{index: make(map[Date]int)}
}

// Register adds d if it has not been seen. Repeated registration is a no-op.
func (dd *DateDimension) Register(d Date) {
	if _, ok := dd.index[d]; ok {
		return
	}
	e := DateEntry{Date: d}
	if d.Known() {
		e.Year = d.Year
		e.Month = int(d.Month)
		e.Quarter = d.Quarter()
		e.Day = d.Day
	}
	dd.index[d] = len(dd.entries)
	dd.entries = append(dd.entries, e)
}

// Lookup returns the entry registered for d.
func (dd *DateDimension) Lookup(d Date) (DateEntry, bool) {
	i, ok := dd.index[d]
	if !ok {
		return DateEntry{}, false
	}
	return dd.entries[i], true
}

func (dd *DateDimension) Len() int { return len(dd.entries) }

// Entries returns the registered entries. The slice must not be modified.
func (dd *DateDimension) Entries() []DateEntry { return dd.entries }
