// Package transform turns catalog records into star-schema rows.
//
// A Session owns all dimension state for one run: the six group deduplicators,
// the date and support dimensions, the fact rows and the child rows. It is not
// safe for concurrent use; records are assembled one at a time, in order.
package transform

import (
	"gamestar/internal/dimension"
	"gamestar/internal/source"
)

type Session struct {
	Languages  *dimension.Group[string]
	Developers *dimension.Group[string]
	Publishers *dimension.Group[string]
	Categories *dimension.Group[string]
	Genres     *dimension.Group[string]
	Tags       *dimension.Group[source.Tag]

	Dates   *dimension.DateDimension
	Support *dimension.SupportDimension

	facts       []FactRow
	packages    []PackageRow
	subPackages []SubPackageRow
	movies      []MediaRow
	screenshots []MediaRow

	// lastPackageID is the running package sequence number for the whole run.
	lastPackageID int64
}

func NewSession() *Session {
	return &Session{
		Languages:  dimension.NewGroup[string](),
		Developers: dimension.NewGroup[string](),
		Publishers: dimension.NewGroup[string](),
		Categories: dimension.NewGroup[string](),
		Genres:     dimension.NewGroup[string](),
		Tags:       dimension.NewGroup[source.Tag](),
		Dates:      dimension.NewDateDimension(),
		Support:    dimension.NewSupportDimension(),
	}
}

// Add assembles rec and keeps the resulting rows. It is the callback handed to
// source.StreamRecords.
func (s *Session) Add(rec source.Record) error {
	s.facts = append(s.facts, s.Assemble(rec))
	return nil
}

func (s *Session) Facts() []FactRow             { return s.facts }
func (s *Session) Packages() []PackageRow       { return s.packages }
func (s *Session) SubPackages() []SubPackageRow { return s.subPackages }
func (s *Session) Movies() []MediaRow           { return s.movies }
func (s *Session) Screenshots() []MediaRow      { return s.screenshots }

// Stats is a row-count summary for logs.
type Stats struct {
	Facts, Packages, SubPackages, Movies, Screenshots int

	LanguageGroups, DeveloperGroups, PublisherGroups int
	CategoryGroups, GenreGroups, TagGroups           int

	Dates, SupportCombos int
}

func (s *Session) Stats() Stats {
	return Stats{
		Facts:           len(s.facts),
		Packages:        len(s.packages),
		SubPackages:     len(s.subPackages),
		Movies:          len(s.movies),
		Screenshots:     len(s.screenshots),
		LanguageGroups:  s.Languages.Len(),
		DeveloperGroups: s.Developers.Len(),
		PublisherGroups: s.Publishers.Len(),
		CategoryGroups:  s.Categories.Len(),
		GenreGroups:     s.Genres.Len(),
		TagGroups:       s.Tags.Len(),
		Dates:           s.Dates.Len(),
		SupportCombos:   s.Support.Len(),
	}
}
