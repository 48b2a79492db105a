package transform

import (
	"gamestar/internal/dimension"
	"gamestar/internal/source"
)

// FactColumns is the fact_game column order used by FactRow.Values.
var FactColumns = []string{
	"id", "name", "about", "about_text", "detailed_desc", "short_desc", "reviews",
	"header_img", "website", "support_url", "support_email",
	"price", "required_age", "dlc_count", "achievements", "recommendations", "user_score",
	"ave_playtime_forever", "ave_playtime_2weeks", "med_playtime_forever", "med_playtime_2weeks",
	"peak_ccu", "metacritic_score", "metacritic_url", "notes", "score_rank",
	"positive_reviews", "negative_reviews", "reviewer_count", "estimated_owners",
	"release_date",
	"language_group_id", "developer_group_id", "publisher_group_id",
	"category_group_id", "genre_group_id", "tag_group_id", "support_id",
}

// FactRow is one fact_game row: the record's scalars plus its dimension keys.
type FactRow struct {
	ID                  string
	Name                string
	About               string
	AboutText           string
	DetailedDescription string
	ShortDescription    string
	Reviews             string
	HeaderImage         string
	Website             string
	SupportURL          string
	SupportEmail        string

	Price           float64
	RequiredAge     source.Int
	DLCCount        source.Int
	Achievements    source.Int
	Recommendations source.Int
	UserScore       source.Int

	AveragePlaytimeForever source.Int
	AveragePlaytime2Weeks  source.Int
	MedianPlaytimeForever  source.Int
	MedianPlaytime2Weeks   source.Int
	PeakCCU                source.Int

	MetacriticScore source.Int
	MetacriticURL   string
	Notes           string
	ScoreRank       source.Int
	Positive        source.Int
	Negative        source.Int
	ReviewerCount   int64
	EstimatedOwners string

	ReleaseDate dimension.Date

	LanguageGroupID  int64
	DeveloperGroupID int64
	PublisherGroupID int64
	CategoryGroupID  int64
	GenreGroupID     int64
	TagGroupID       int64
	SupportID        int64
}

// Values returns the row in FactColumns order. Absent integers are nil.
func (f FactRow) Values() []any {
	return []any{
		f.ID, f.Name, f.About, f.AboutText, f.DetailedDescription, f.ShortDescription, f.Reviews,
		f.HeaderImage, f.Website, f.SupportURL, f.SupportEmail,
		f.Price, f.RequiredAge.Any(), f.DLCCount.Any(), f.Achievements.Any(), f.Recommendations.Any(), f.UserScore.Any(),
		f.AveragePlaytimeForever.Any(), f.AveragePlaytime2Weeks.Any(), f.MedianPlaytimeForever.Any(), f.MedianPlaytime2Weeks.Any(),
		f.PeakCCU.Any(), f.MetacriticScore.Any(), f.MetacriticURL, f.Notes, f.ScoreRank.Any(),
		f.Positive.Any(), f.Negative.Any(), f.ReviewerCount, f.EstimatedOwners,
		f.ReleaseDate.Key(),
		f.LanguageGroupID, f.DeveloperGroupID, f.PublisherGroupID,
		f.CategoryGroupID, f.GenreGroupID, f.TagGroupID, f.SupportID,
	}
}

// Assemble resolves every dimension for rec, appends its child rows and returns
// its fact row. The fact row is not kept; use Add for that.
func (s *Session) Assemble(rec source.Record) FactRow {
	release := dimension.ParseReleaseDate(rec.ReleaseDate)
	s.Dates.Register(release)

	f := FactRow{
		ID:                  rec.ID,
		Name:                rec.Name,
		About:               rec.AboutTheGame,
		AboutText:           PlainText(rec.AboutTheGame),
		DetailedDescription: rec.DetailedDescription,
		ShortDescription:    rec.ShortDescription,
		Reviews:             rec.Reviews,
		HeaderImage:         rec.HeaderImage,
		Website:             rec.Website,
		SupportURL:          rec.SupportURL,
		SupportEmail:        rec.SupportEmail,

		Price:           rec.Price,
		RequiredAge:     rec.RequiredAge,
		DLCCount:        rec.DLCCount,
		Achievements:    rec.Achievements,
		Recommendations: rec.Recommendations,
		UserScore:       rec.UserScore,

		AveragePlaytimeForever: rec.AveragePlaytimeForever,
		AveragePlaytime2Weeks:  rec.AveragePlaytime2Weeks,
		MedianPlaytimeForever:  rec.MedianPlaytimeForever,
		MedianPlaytime2Weeks:   rec.MedianPlaytime2Weeks,
		PeakCCU:                rec.PeakCCU,

		MetacriticScore: rec.MetacriticScore,
		MetacriticURL:   rec.MetacriticURL,
		Notes:           rec.Notes,
		ScoreRank:       rec.ScoreRank,
		Positive:        rec.Positive,
		Negative:        rec.Negative,
		ReviewerCount:   rec.Positive.OrZero() + rec.Negative.OrZero(),
		EstimatedOwners: rec.EstimatedOwners,

		ReleaseDate: release,
	}

	langs := make([]string, 0, len(rec.SupportedLanguages)+len(rec.FullAudioLanguages))
	langs = append(langs, rec.SupportedLanguages...)
	langs = append(langs, rec.FullAudioLanguages...)
	f.LanguageGroupID = s.Languages.Resolve(
		dimension.Canonical(rec.SupportedLanguages, rec.FullAudioLanguages), langs)

	f.DeveloperGroupID = s.Developers.Resolve(dimension.Canonical(rec.Developers), rec.Developers)
	f.PublisherGroupID = s.Publishers.Resolve(dimension.Canonical(rec.Publishers), rec.Publishers)
	f.CategoryGroupID = s.Categories.Resolve(dimension.Canonical(rec.Categories), rec.Categories)
	f.GenreGroupID = s.Genres.Resolve(dimension.Canonical(rec.Genres), rec.Genres)
	f.TagGroupID = s.Tags.Resolve(tagKey(rec.Tags), rec.Tags)

	f.SupportID = s.Support.Resolve(dimension.Support{
		Mac:     rec.Mac,
		Windows: rec.Windows,
		Linux:   rec.Linux,
	})

	s.assembleChildren(rec)
	return f
}

// tagKey keys a tag set on (name, count) pairs, so the same tags with
// different counts are different groups.
func tagKey(tags source.TagCounts) dimension.GroupKey {
	pairs := make([]string, len(tags))
	for i, t := range tags {
		pairs[i] = dimension.PairElement(t.Name, t.Count)
	}
	return dimension.Canonical(pairs)
}
