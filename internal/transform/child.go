package transform

import "gamestar/internal/source"

var (
	PackageColumns    = []string{"package_id", "game_id", "title", "description"}
	SubPackageColumns = []string{"package_id", "text", "description", "price"}
	MediaColumns      = []string{"game_id", "url"}
)

type PackageRow struct {
	PackageID   int64
	GameID      string
	Title       string
	Description string
}

func (p PackageRow) Values() []any {
	return []any{p.PackageID, p.GameID, p.Title, p.Description}
}

// SubPackageRow references its parent through PackageRow.PackageID.
type SubPackageRow struct {
	PackageID   int64
	Text        string
	Description string
	Price       float64
}

func (sp SubPackageRow) Values() []any {
	return []any{sp.PackageID, sp.Text, sp.Description, sp.Price}
}

// MediaRow is a movie or screenshot URL of one game.
type MediaRow struct {
	GameID string
	URL    string
}

func (m MediaRow) Values() []any { return []any{m.GameID, m.URL} }

// assembleChildren numbers packages with the run-wide counter; sub-packages
// take their parent's number. Nothing here is deduplicated.
func (s *Session) assembleChildren(rec source.Record) {
	for _, pkg := range rec.Packages {
		s.lastPackageID++
		id := s.lastPackageID
		s.packages = append(s.packages, PackageRow{
			PackageID:   id,
			GameID:      rec.ID,
			Title:       pkg.Title,
			Description: pkg.Description,
		})
		for _, sub := range pkg.Subs {
			s.subPackages = append(s.subPackages, SubPackageRow{
				PackageID:   id,
				Text:        sub.Text,
				Description: sub.Description,
				Price:       sub.Price,
			})
		}
	}
	for _, url := range rec.Movies {
		s.movies = append(s.movies, MediaRow{GameID: rec.ID, URL: url})
	}
	for _, url := range rec.Screenshots {
		s.screenshots = append(s.screenshots, MediaRow{GameID: rec.ID, URL: url})
	}
}
