package source

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
  "20200": {
    "name": "Galactic Bowling",
    "release_date": "Oct 21, 2008",
    "required_age": 0,
    "price": 19.99,
    "dlc_count": 0,
    "about_the_game": "<p>Bowl <b>in space</b></p>",
    "windows": true, "mac": false, "linux": false,
    "supported_languages": ["English"],
    "full_audio_languages": [],
    "packages": [{"title": "Buy Galactic Bowling", "description": "", "subs": [{"text": "Galactic Bowling - $19.99", "description": "", "price": 19.99}]}],
    "developers": ["Perpetual FX Creative"],
    "publishers": ["Perpetual FX Creative"],
    "categories": ["Single-player", "Multi-player"],
    "genres": ["Casual", "Indie", "Sports"],
    "screenshots": ["https://cdn/ss_1.jpg"],
    "movies": ["https://cdn/movie.mp4"],
    "score_rank": "",
    "positive": 6, "negative": 11,
    "estimated_owners": "0 - 20000",
    "tags": {"Indie": 22, "Casual": 21}
  },
  "655370": {
    "name": "Train Bandit",
    "release_date": "Oct 2017",
    "positive": "53",
    "tags": []
  }
}`

func collect(t *testing.T, doc string) ([]Record, error) {
	t.Helper()
	var out []Record
	_, err := StreamRecords(context.Background(), strings.NewReader(doc), func(r Record) error {
		out = append(out, r)
		return nil
	})
	return out, err
}

func TestStreamRecords_DocumentOrder(t *testing.T) {
	recs, err := collect(t, sampleDoc)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	first := recs[0]
	assert.Equal(t, "20200", first.ID)
	assert.Equal(t, "Galactic Bowling", first.Name)
	assert.Equal(t, 19.99, first.Price)
	assert.True(t, first.Windows)
	assert.Equal(t, []string{"English"}, first.SupportedLanguages)
	assert.Empty(t, first.FullAudioLanguages)
	require.Len(t, first.Packages, 1)
	assert.Equal(t, "Galactic Bowling - $19.99", first.Packages[0].Subs[0].Text)
	assert.False(t, first.ScoreRank.Valid)
	assert.Equal(t, IntOf(6), first.Positive)
	assert.Equal(t, TagCounts{{Name: "Casual", Count: 21}, {Name: "Indie", Count: 22}}, first.Tags)

	second := recs[1]
	assert.Equal(t, "655370", second.ID)
	assert.Equal(t, IntOf(53), second.Positive)
	assert.False(t, second.Negative.Valid)
	assert.Nil(t, second.Tags)
	assert.Nil(t, second.Developers)
}

func TestStreamRecords_EmptyInputs(t *testing.T) {
	for _, doc := range []string{"", "   ", "{}"} {
		n, err := StreamRecords(context.Background(), strings.NewReader(doc), func(Record) error {
			t.Fatalf("unexpected record for %q", doc)
			return nil
		})
		require.NoError(t, err, "doc %q", doc)
		assert.Zero(t, n)
	}
}

func TestStreamRecords_Malformed(t *testing.T) {
	cases := []struct {
		name    string
		doc     string
		wantSub string
	}{
		{name: "root array", doc: `[{"name":"x"}]`, wantSub: "root must be an object"},
		{name: "wrong field type", doc: `{"7": {"name": "ok"}, "8": {"price": "free"}}`, wantSub: `record "8"`},
		{name: "fractional integer", doc: `{"9": {"dlc_count": 1.5}}`, wantSub: `record "9"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := collect(t, tc.doc)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantSub)
		})
	}
}

func TestStreamRecords_CallbackErrorStops(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	n, err := StreamRecords(context.Background(), strings.NewReader(sampleDoc), func(Record) error {
		calls++
		return stop
	})
	require.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
	assert.Zero(t, n)
}

func TestStreamRecords_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := StreamRecords(ctx, strings.NewReader(sampleDoc), func(Record) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}
