package codelist

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CreateRequest carries everything needed to construct a codelist.
type CreateRequest struct {
	Name            string   `json:"name" validate:"required"`
	CodelistType    string   `json:"codelist_type" validate:"required"`
	Source          string   `json:"source"`
	Description     string   `json:"description"`
	Authors         []string `json:"authors"`
	Contributors    []string `json:"contributors"`
	Tags            []string `json:"tags"`
	Usage           []string `json:"usage"`
	Keywords        []string `json:"keywords"`
	License         string   `json:"license"`
	Version         string   `json:"version"`
	Purpose         string   `json:"purpose"`
	Audience        string   `json:"audience"`
	UseContext      string   `json:"use_context"`
	AllowDuplicates bool     `json:"allow_duplicates"`
	Entries         []Entry  `json:"entries" validate:"dive"`
}

// Options converts the request's optional metadata into construction options.
func (r *CreateRequest) Options() []Option {
	opts := []Option{
		WithAuthors(r.Authors...),
		WithContributors(r.Contributors...),
		WithTags(r.Tags...),
		WithUsage(r.Usage...),
		WithKeywords(r.Keywords...),
		WithAllowDuplicates(r.AllowDuplicates),
	}
	if r.Description != "" {
		opts = append(opts, WithDescription(r.Description))
	}
	if r.License != "" {
		opts = append(opts, WithLicense(r.License))
	}
	if r.Version != "" {
		opts = append(opts, WithVersion(r.Version))
	}
	if r.Purpose != "" {
		opts = append(opts, WithPurpose(r.Purpose))
	}
	if r.Audience != "" {
		opts = append(opts, WithAudience(r.Audience))
	}
	if r.UseContext != "" {
		opts = append(opts, WithUseContext(r.UseContext))
	}
	return opts
}

// Service coordinates codelist operations against a Repository. Every
// mutation runs inside Repository.Update, which gives each stored codelist
// the single-writer access it requires.
type Service struct {
	repo          Repository
	logger        zerolog.Logger
	metrics       *Metrics
	defaultSource string
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger, defaultSource: string(SourceManual)}
}

func (s *Service) SetMetrics(m *Metrics)       { s.metrics = m }
func (s *Service) SetDefaultSource(src string) { s.defaultSource = src }

func (s *Service) CreateCodeList(ctx context.Context, req *CreateRequest) (*CodeList, error) {
	source := req.Source
	if source == "" {
		source = s.defaultSource
	}
	cl, err := New(req.Name, req.CodelistType, source, req.Options()...)
	if err != nil {
		s.metrics.observe("create", nil, err)
		return nil, err
	}
	for _, e := range req.Entries {
		if err := cl.AddEntry(e.Code, e.Term, e.Comment); err != nil {
			s.metrics.observe("create", nil, err)
			return nil, err
		}
	}
	return s.Import(ctx, cl)
}

// Import stores a codelist built elsewhere, typically by a file loader.
func (s *Service) Import(ctx context.Context, cl *CodeList) (*CodeList, error) {
	if err := s.repo.Create(ctx, cl); err != nil {
		s.metrics.observe("create", nil, err)
		return nil, fmt.Errorf("store codelist: %w", err)
	}
	s.metrics.observe("create", cl, nil)
	s.logger.Info().
		Str("codelist_id", cl.ID().String()).
		Str("name", cl.Name()).
		Str("type", cl.Type().String()).
		Str("source", cl.Source().Label()).
		Int("entries", cl.Len()).
		Msg("codelist created")
	return cl, nil
}

func (s *Service) GetCodeList(ctx context.Context, id uuid.UUID) (*CodeList, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListCodeLists(ctx context.Context, params map[string]string, limit, offset int) ([]*CodeList, int, error) {
	return s.repo.List(ctx, params, limit, offset)
}

func (s *Service) DeleteCodeList(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Delete(ctx, id)
	s.metrics.observe("delete", nil, err)
	if err == nil {
		s.logger.Info().Str("codelist_id", id.String()).Msg("codelist deleted")
	}
	return err
}

// mutate applies fn to the stored codelist under the repository's write
// lock. A failing fn leaves the stored codelist untouched.
func (s *Service) mutate(ctx context.Context, id uuid.UUID, op string, fn func(*CodeList) error) (*CodeList, error) {
	cl, err := s.repo.Update(ctx, id, fn)
	return s.finish(id, op, cl, err)
}

func (s *Service) finish(id uuid.UUID, op string, cl *CodeList, err error) (*CodeList, error) {
	s.metrics.observe(op, cl, err)
	if err != nil {
		s.logger.Warn().Err(err).Str("codelist_id", id.String()).Str("op", op).Msg("codelist operation rejected")
		return nil, err
	}
	s.logger.Debug().Str("codelist_id", id.String()).Str("op", op).Int("entries", cl.Len()).Msg("codelist updated")
	return cl, nil
}

// -- Entries --

func (s *Service) AddEntry(ctx context.Context, id uuid.UUID, e Entry) (*CodeList, error) {
	return s.mutate(ctx, id, "add_entry", func(cl *CodeList) error {
		return cl.AddEntry(e.Code, e.Term, e.Comment)
	})
}

func (s *Service) RemoveEntry(ctx context.Context, id uuid.UUID, code string) (*CodeList, error) {
	return s.mutate(ctx, id, "remove_entry", func(cl *CodeList) error {
		return cl.RemoveEntry(code)
	})
}

// Annotation selects the entry field an AnnotationAction targets.
type Annotation string

const (
	AnnotationTerm    Annotation = "term"
	AnnotationComment Annotation = "comment"
)

// Action is one of add, update or remove.
type Action string

const (
	ActionAdd    Action = "add"
	ActionUpdate Action = "update"
	ActionRemove Action = "remove"
)

// Annotate adds, updates or removes an entry's term or comment.
func (s *Service) Annotate(ctx context.Context, id uuid.UUID, field Annotation, action Action, code, value string) (*CodeList, error) {
	op := string(action) + "_" + string(field)
	return s.mutate(ctx, id, op, func(cl *CodeList) error {
		switch field {
		case AnnotationTerm:
			switch action {
			case ActionAdd:
				return cl.AddTerm(code, value)
			case ActionUpdate:
				return cl.UpdateTerm(code, value)
			case ActionRemove:
				return cl.RemoveTerm(code)
			}
		case AnnotationComment:
			switch action {
			case ActionAdd:
				return cl.AddComment(code, value)
			case ActionUpdate:
				return cl.UpdateComment(code, value)
			case ActionRemove:
				return cl.RemoveComment(code)
			}
		}
		return newError(ErrUnsupported, "unsupported %s action: %s", field, action)
	})
}

// -- Validation and transforms --

// Validate runs ValidateCodes, or ValidateCodesWithPattern when pattern is
// not empty. The outcome is always stored, so a failed validation clears a
// previously validated codelist.
func (s *Service) Validate(ctx context.Context, id uuid.UUID, pattern string) (*CodeList, error) {
	var verr error
	cl, err := s.repo.Update(ctx, id, func(cl *CodeList) error {
		if pattern != "" {
			verr = cl.ValidateCodesWithPattern(pattern)
		} else {
			verr = cl.ValidateCodes()
		}
		return nil
	})
	if err == nil {
		err = verr
	}
	return s.finish(id, "validate", cl, err)
}

func (s *Service) Truncate(ctx context.Context, id uuid.UUID, termManagement string) (*CodeList, error) {
	return s.mutate(ctx, id, "truncate", func(cl *CodeList) error {
		return cl.TruncateTo3Digits(TermManagement(termManagement))
	})
}

func (s *Service) AddXCodes(ctx context.Context, id uuid.UUID) (*CodeList, error) {
	return s.mutate(ctx, id, "add_x_codes", func(cl *CodeList) error {
		return cl.AddXCodes()
	})
}

// -- Metadata --

// SetKind selects a set-valued metadata field.
type SetKind string

const (
	SetTags         SetKind = "tags"
	SetUsage        SetKind = "usage"
	SetKeywords     SetKind = "keywords"
	SetContributors SetKind = "contributors"
	SetAuthors      SetKind = "authors"
)

// ModifySet adds to or removes from a set-valued metadata field. Adds are
// idempotent and removing an absent value is a no-op.
func (s *Service) ModifySet(ctx context.Context, id uuid.UUID, kind SetKind, action Action, value string) (*CodeList, error) {
	return s.mutate(ctx, id, string(action)+"_"+string(kind), func(cl *CodeList) error {
		var add, remove func(string)
		switch kind {
		case SetTags:
			add, remove = cl.AddTag, cl.RemoveTag
		case SetUsage:
			add, remove = cl.AddUsage, cl.RemoveUsage
		case SetKeywords:
			add, remove = cl.AddKeyword, cl.RemoveKeyword
		case SetContributors:
			add, remove = cl.AddContributor, cl.RemoveContributor
		case SetAuthors:
			add, remove = cl.AddAuthor, cl.RemoveAuthor
		default:
			return newError(ErrUnsupported, "unknown metadata set: %s", kind)
		}
		switch action {
		case ActionAdd:
			add(value)
		case ActionRemove:
			remove(value)
		default:
			return newError(ErrUnsupported, "unsupported %s action: %s", kind, action)
		}
		return nil
	})
}

// ModifyField adds, updates or removes a scalar metadata field. Field names
// are description, version, purpose, audience, use_context, license,
// reviewer, status and notes.
func (s *Service) ModifyField(ctx context.Context, id uuid.UUID, field string, action Action, value string) (*CodeList, error) {
	return s.mutate(ctx, id, string(action)+"_"+field, func(cl *CodeList) error {
		ops, ok := scalarFields(cl)[field]
		if !ok {
			return newError(ErrUnsupported, "unknown metadata field: %s", field)
		}
		switch action {
		case ActionAdd:
			return ops.add(value)
		case ActionUpdate:
			return ops.update(value)
		case ActionRemove:
			return ops.remove()
		}
		return newError(ErrUnsupported, "unsupported %s action: %s", field, action)
	})
}

type fieldOps struct {
	add    func(string) error
	update func(string) error
	remove func() error
}

func scalarFields(cl *CodeList) map[string]fieldOps {
	return map[string]fieldOps{
		"description": {cl.AddDescription, cl.UpdateDescription, cl.RemoveDescription},
		"version":     {cl.AddVersion, cl.UpdateVersion, cl.RemoveVersion},
		"purpose":     {cl.AddPurpose, cl.UpdatePurpose, cl.RemovePurpose},
		"audience":    {cl.AddAudience, cl.UpdateAudience, cl.RemoveAudience},
		"use_context": {cl.AddUseContext, cl.UpdateUseContext, cl.RemoveUseContext},
		"license":     {cl.AddLicense, cl.UpdateLicense, cl.RemoveLicense},
		"reviewer":    {cl.AddReviewer, cl.UpdateReviewer, cl.RemoveReviewer},
		"status":      {cl.AddReviewStatus, cl.UpdateReviewStatus, cl.RemoveReviewStatus},
		"notes":       {cl.AddValidationNotes, cl.UpdateValidationNotes, cl.RemoveValidationNotes},
	}
}

func (s *Service) AddValidationInfo(ctx context.Context, id uuid.UUID, reviewer, status, notes string) (*CodeList, error) {
	return s.mutate(ctx, id, "add_validation_info", func(cl *CodeList) error {
		return cl.AddValidationInfo(reviewer, status, notes)
	})
}

func (s *Service) AddNote(ctx context.Context, id uuid.UUID, note string) (*CodeList, error) {
	return s.mutate(ctx, id, "add_note", func(cl *CodeList) error {
		cl.AddNote(note)
		return nil
	})
}

func errorKindLabel(err error) string {
	switch {
	case errors.Is(err, ErrConstruction):
		return "construction"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrUnsupported):
		return "unsupported"
	}
	return "error"
}
