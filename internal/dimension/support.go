package dimension

// Support is the (mac, windows, linux) platform flag triple.
type Support struct {
	Mac     bool
	Windows bool
	Linux   bool
}

// SupportEntry is one dim_support row.
type SupportEntry struct {
	ID int64
	Support
}

// SupportDimension assigns dense first-seen ids to distinct Support triples.
type SupportDimension struct {
	ids     map[Support]int64
	entries []SupportEntry
}

func NewSupportDimension() *SupportDimension {
	return &SupportDimension{ids: make(map[Support]int64)}
}

// Resolve returns the id for s, assigning the next one on first sight.
func (sd *SupportDimension) Resolve(s Support) int64 {
	if id, ok := sd.ids[s]; ok {
		return id
	}
	id := int64(len(sd.entries) + 1)
	sd.ids[s] = id
	sd.entries = append(sd.entries, SupportEntry{ID: id, Support: s})
	return id
}

func (sd *SupportDimension) Len() int { return len(sd.entries) }

// Entries returns entries ordered by id. The slice must not be modified.
func (sd *SupportDimension) Entries() []SupportEntry { return sd.entries }
