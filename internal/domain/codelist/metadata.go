package codelist

import (
	"encoding/json"
	"sort"
	"time"
)

// Metadata groups the descriptive fields of a codelist. Each group is
// independently optional; zero values mean "not set".
type Metadata struct {
	Provenance             Provenance             `json:"provenance" yaml:"provenance"`
	CategorisationAndUsage CategorisationAndUsage `json:"categorisation_and_usage" yaml:"categorisation_and_usage"`
	PurposeAndContext      PurposeAndContext      `json:"purpose_and_context" yaml:"purpose_and_context"`
	ValidationAndReview    ValidationAndReview    `json:"validation_and_review" yaml:"validation_and_review"`
}

type Provenance struct {
	Source           Source    `json:"source" yaml:"source"`
	Description      string    `json:"description,omitempty" yaml:"description,omitempty"`
	Contributors     []string  `json:"contributors" yaml:"contributors"`
	CreatedDate      time.Time `json:"created_date" yaml:"created_date"`
	LastModifiedDate time.Time `json:"last_modified_date" yaml:"last_modified_date"`
}

type CategorisationAndUsage struct {
	Authors  []string  `json:"authors" yaml:"authors"`
	Keywords StringSet `json:"keywords" yaml:"keywords"`
	Tags     StringSet `json:"tags" yaml:"tags"`
	Usage    StringSet `json:"usage" yaml:"usage"`
	License  string    `json:"license,omitempty" yaml:"license,omitempty"`
}

type PurposeAndContext struct {
	Version    string `json:"version,omitempty" yaml:"version,omitempty"`
	Purpose    string `json:"purpose,omitempty" yaml:"purpose,omitempty"`
	Audience   string `json:"audience,omitempty" yaml:"audience,omitempty"`
	UseContext string `json:"use_context,omitempty" yaml:"use_context,omitempty"`
}

type ValidationAndReview struct {
	Reviewed   bool       `json:"reviewed" yaml:"reviewed"`
	Reviewer   string     `json:"reviewer,omitempty" yaml:"reviewer,omitempty"`
	ReviewDate *time.Time `json:"review_date,omitempty" yaml:"review_date,omitempty"`
	Status     string     `json:"status,omitempty" yaml:"status,omitempty"`
	Notes      string     `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Dates exposes the creation and last modification timestamps.
type Dates struct {
	DateCreated      time.Time `json:"date_created"`
	LastModifiedDate time.Time `json:"last_modified_date"`
}

func newMetadata(source Source, now time.Time) Metadata {
	return Metadata{
		Provenance: Provenance{
			Source:           source,
			CreatedDate:      now,
			LastModifiedDate: now,
		},
		CategorisationAndUsage: CategorisationAndUsage{
			Keywords: StringSet{},
			Tags:     StringSet{},
			Usage:    StringSet{},
		},
	}
}

func (m Metadata) clone() Metadata {
	out := m
	out.Provenance.Contributors = append([]string(nil), m.Provenance.Contributors...)
	out.CategorisationAndUsage.Authors = append([]string(nil), m.CategorisationAndUsage.Authors...)
	out.CategorisationAndUsage.Keywords = m.CategorisationAndUsage.Keywords.clone()
	out.CategorisationAndUsage.Tags = m.CategorisationAndUsage.Tags.clone()
	out.CategorisationAndUsage.Usage = m.CategorisationAndUsage.Usage.clone()
	if m.ValidationAndReview.ReviewDate != nil {
		d := *m.ValidationAndReview.ReviewDate
		out.ValidationAndReview.ReviewDate = &d
	}
	return out
}

// StringSet is an unordered set of strings. Values are always returned
// sorted so output is stable.
type StringSet map[string]struct{}

func (s StringSet) Add(v string)      { s[v] = struct{}{} }
func (s StringSet) Remove(v string)   { delete(s, v) }
func (s StringSet) Has(v string) bool { _, ok := s[v]; return ok }

func (s StringSet) Values() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (s StringSet) clone() StringSet {
	out := make(StringSet, len(s))
	for v := range s {
		out[v] = struct{}{}
	}
	return out
}

func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}

func (s *StringSet) UnmarshalJSON(b []byte) error {
	var values []string
	if err := json.Unmarshal(b, &values); err != nil {
		return err
	}
	*s = make(StringSet, len(values))
	for _, v := range values {
		(*s)[v] = struct{}{}
	}
	return nil
}

// MarshalYAML renders the set as a sorted sequence.
func (s StringSet) MarshalYAML() (interface{}, error) {
	return s.Values(), nil
}

// -- scalar field contract: add when absent, update/remove when present --

func addScalar(dst *string, value, field string) error {
	if err := requireValue(value, field); err != nil {
		return err
	}
	if *dst != "" {
		return newError(ErrConflict, "Unable to add %s. Please use update %s instead.", field, field)
	}
	*dst = value
	return nil
}

func updateScalar(dst *string, value, field string) error {
	if err := requireValue(value, field); err != nil {
		return err
	}
	if *dst == "" {
		return newError(ErrNotFound, "Unable to update %s. Please use add %s instead.", field, field)
	}
	*dst = value
	return nil
}

func removeScalar(dst *string, field string) error {
	if *dst == "" {
		return newError(ErrNotFound, "Unable to remove %s.", field)
	}
	*dst = ""
	return nil
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func removeString(list []string, v string) []string {
	out := list[:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
