// Package source decodes the raw game catalog document into Records.
package source

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// Record is one product from the catalog document. ID is the document key.
type Record struct {
	ID string `json:"-"`

	Name                string    `json:"name"`
	ReleaseDate         string    `json:"release_date"`
	RequiredAge         Int       `json:"required_age"`
	Price               float64   `json:"price"`
	DLCCount            Int       `json:"dlc_count"`
	DetailedDescription string    `json:"detailed_description"`
	AboutTheGame        string    `json:"about_the_game"`
	ShortDescription    string    `json:"short_description"`
	Reviews             string    `json:"reviews"`
	HeaderImage         string    `json:"header_image"`
	Website             string    `json:"website"`
	SupportURL          string    `json:"support_url"`
	SupportEmail        string    `json:"support_email"`
	Windows             bool      `json:"windows"`
	Mac                 bool      `json:"mac"`
	Linux               bool      `json:"linux"`
	MetacriticScore     Int       `json:"metacritic_score"`
	MetacriticURL       string    `json:"metacritic_url"`
	Achievements        Int       `json:"achievements"`
	Recommendations     Int       `json:"recommendations"`
	Notes               string    `json:"notes"`
	SupportedLanguages  []string  `json:"supported_languages"`
	FullAudioLanguages  []string  `json:"full_audio_languages"`
	Packages            []Package `json:"packages"`
	Developers          []string  `json:"developers"`
	Publishers          []string  `json:"publishers"`
	Categories          []string  `json:"categories"`
	Genres              []string  `json:"genres"`
	Screenshots         []string  `json:"screenshots"`
	Movies              []string  `json:"movies"`
	UserScore           Int       `json:"user_score"`
	ScoreRank           Int       `json:"score_rank"`
	Positive            Int       `json:"positive"`
	Negative            Int       `json:"negative"`
	EstimatedOwners     string    `json:"estimated_owners"`

	AveragePlaytimeForever Int `json:"average_playtime_forever"`
	AveragePlaytime2Weeks  Int `json:"average_playtime_2weeks"`
	MedianPlaytimeForever  Int `json:"median_playtime_forever"`
	MedianPlaytime2Weeks   Int `json:"median_playtime_2weeks"`
	PeakCCU                Int `json:"peak_ccu"`

	Tags TagCounts `json:"tags"`
}

// Package is one purchasable bundle offered on the product page.
type Package struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Subs        []SubPackage `json:"subs"`
}

// SubPackage is one price tier inside a Package.
type SubPackage struct {
	Text        string  `json:"text"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// Int is an integer attribute that may be absent.
//
// The catalog mixes numbers, numeric strings and "" for the same field; "" and
// null decode as not Valid.
type Int struct {
	Value int64
	Valid bool
}

func IntOf(v int64) Int { return Int{Value: v, Valid: true} }

func (i *Int) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*i = Int{}
		return nil
	}

	s := string(b)
	if b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = strings.TrimSpace(str)
		if s == "" {
			*i = Int{}
			return nil
		}
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*i = Int{Value: n, Valid: true}
		return nil
	}
	// Whole floats such as 12.0 show up in re-exported dumps.
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return fmt.Errorf("source: not an integer: %s", s)
	}
	*i = Int{Value: int64(f), Valid: true}
	return nil
}

// OrZero returns the value, or 0 when absent.
func (i Int) OrZero() int64 {
	if !i.Valid {
		return 0
	}
	return i.Value
}

// Any returns the value as a bind argument: int64 or nil.
func (i Int) Any() any {
	if !i.Valid {
		return nil
	}
	return i.Value
}

// Tag is a user tag and the number of users who applied it.
type Tag struct {
	Name  string
	Count int64
}

// TagCounts is the tags attribute, sorted by tag name.
//
// The catalog writes an object {"tag": count} when a product has tags and an
// empty array otherwise; anything that is not an object decodes as no tags.
type TagCounts []Tag

func (tc *TagCounts) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		*tc = nil
		return nil
	}

	var m map[string]int64
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("source: tags: %w", err)
	}
	if len(m) == 0 {
		*tc = nil
		return nil
	}

	out := make(TagCounts, 0, len(m))
	for name, n := range m {
		out = append(out, Tag{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	*tc = out
	return nil
}
