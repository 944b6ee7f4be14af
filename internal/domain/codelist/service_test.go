package codelist

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

// =========== Mock Repository ===========

type mockRepo struct {
	store     map[uuid.UUID]*CodeList
	createErr error
	updates   int
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[uuid.UUID]*CodeList)}
}

func (m *mockRepo) Create(_ context.Context, cl *CodeList) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.store[cl.ID()] = cl.Clone()
	return nil
}

func (m *mockRepo) Get(_ context.Context, id uuid.UUID) (*CodeList, error) {
	cl, ok := m.store[id]
	if !ok {
		return nil, newError(ErrNotFound, "codelist %s not found", id)
	}
	return cl.Clone(), nil
}

func (m *mockRepo) List(_ context.Context, _ map[string]string, _, _ int) ([]*CodeList, int, error) {
	var out []*CodeList
	for _, cl := range m.store {
		out = append(out, cl.Clone())
	}
	return out, len(out), nil
}

func (m *mockRepo) Update(_ context.Context, id uuid.UUID, fn func(*CodeList) error) (*CodeList, error) {
	m.updates++
	cl, ok := m.store[id]
	if !ok {
		return nil, newError(ErrNotFound, "codelist %s not found", id)
	}
	working := cl.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	m.store[id] = working
	return working.Clone(), nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.store[id]; !ok {
		return newError(ErrNotFound, "codelist %s not found", id)
	}
	delete(m.store, id)
	return nil
}

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo, zerolog.Nop()), repo
}

func createICD10(t *testing.T, svc *Service, entries ...Entry) *CodeList {
	t.Helper()
	cl, err := svc.CreateCodeList(context.Background(), &CreateRequest{
		Name:         "test",
		CodelistType: "ICD10",
		Entries:      entries,
	})
	if err != nil {
		t.Fatalf("CreateCodeList: %v", err)
	}
	return cl
}

// =========== Create Tests ===========

func TestService_CreateCodeList(t *testing.T) {
	svc, repo := newTestService()
	cl := createICD10(t, svc, Entry{Code: "A01", Term: "Typhoid"}, Entry{Code: "A02"})

	if cl.Source() != SourceManual {
		t.Errorf("expected default source MANUAL, got %s", cl.Source())
	}
	if cl.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", cl.Len())
	}
	if _, ok := repo.store[cl.ID()]; !ok {
		t.Error("expected codelist to be stored")
	}
}

func TestService_CreateCodeList_DefaultSource(t *testing.T) {
	svc, _ := newTestService()
	svc.SetDefaultSource("FILE")
	cl := createICD10(t, svc)
	if cl.Source() != SourceFile {
		t.Errorf("expected FILE, got %s", cl.Source())
	}
}

func TestService_CreateCodeList_InvalidType(t *testing.T) {
	svc, repo := newTestService()
	_, err := svc.CreateCodeList(context.Background(), &CreateRequest{Name: "x", CodelistType: "INVALID"})
	if err == nil || err.Error() != "Invalid codelist type: INVALID" {
		t.Fatalf("unexpected error %v", err)
	}
	if len(repo.store) != 0 {
		t.Error("nothing should be stored")
	}
}

func TestService_CreateCodeList_ConflictingEntries(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.CreateCodeList(context.Background(), &CreateRequest{
		Name:         "x",
		CodelistType: "ICD10",
		Entries:      []Entry{{Code: "A01", Term: "one"}, {Code: "A01", Term: "two"}},
	})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestService_Import_StoreError(t *testing.T) {
	svc, repo := newTestService()
	repo.createErr = errors.New("disk full")
	cl, _ := New("x", "ICD10", "FILE")
	_, err := svc.Import(context.Background(), cl)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("expected wrapped store error, got %v", err)
	}
}

// =========== Entry Tests ===========

func TestService_EntryAndAnnotations(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	cl := createICD10(t, svc)

	if _, err := svc.AddEntry(ctx, cl.ID(), Entry{Code: "A01"}); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	if _, err := svc.Annotate(ctx, cl.ID(), AnnotationTerm, ActionAdd, "A01", "Typhoid"); err != nil {
		t.Fatalf("add term: %v", err)
	}
	_, err := svc.Annotate(ctx, cl.ID(), AnnotationTerm, ActionAdd, "A01", "again")
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
	if _, err := svc.Annotate(ctx, cl.ID(), AnnotationComment, ActionAdd, "A01", "c"); err != nil {
		t.Fatalf("add comment: %v", err)
	}
	got, err := svc.Annotate(ctx, cl.ID(), AnnotationTerm, ActionRemove, "A01", "")
	if err != nil {
		t.Fatalf("remove term: %v", err)
	}
	if e, _ := got.Entry("A01"); e.Term != "" || e.Comment != "c" {
		t.Errorf("unexpected entry %+v", e)
	}

	if _, err := svc.Annotate(ctx, cl.ID(), AnnotationTerm, "rename", "A01", "x"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}

	got, err = svc.RemoveEntry(ctx, cl.ID(), "A01")
	if err != nil {
		t.Fatalf("RemoveEntry: %v", err)
	}
	if got.Len() != 0 {
		t.Errorf("expected empty codelist, got %d", got.Len())
	}
}

func TestService_UnknownCodeList(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.AddEntry(context.Background(), uuid.New(), Entry{Code: "A01"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// =========== Validate & Transform Tests ===========

func TestService_Validate(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	cl := createICD10(t, svc, Entry{Code: "A01"})

	got, err := svc.Validate(ctx, cl.ID(), "")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !got.IsValidated() || !repo.store[cl.ID()].IsValidated() {
		t.Error("expected validated to be stored")
	}

	svc.AddEntry(ctx, cl.ID(), Entry{Code: "BAD"})
	if repo.store[cl.ID()].IsValidated() {
		t.Error("entry mutation should reset validated")
	}
	_, err = svc.Validate(ctx, cl.ID(), "")
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}

	if _, err := svc.Validate(ctx, cl.ID(), `^[A-Z]+[0-9]*$`); err != nil {
		t.Errorf("expected custom pattern to pass: %v", err)
	}
}

func TestService_Validate_FailureClearsStoredFlag(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	cl := createICD10(t, svc, Entry{Code: "A01"})

	if _, err := svc.Validate(ctx, cl.ID(), ""); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !repo.store[cl.ID()].IsValidated() {
		t.Fatal("expected validated after a passing run")
	}

	if _, err := svc.Validate(ctx, cl.ID(), "^Z"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	stored, err := svc.GetCodeList(ctx, cl.ID())
	if err != nil {
		t.Fatal(err)
	}
	if stored.IsValidated() {
		t.Error("a failed validation must clear the stored flag")
	}

	svc.Validate(ctx, cl.ID(), "")
	if _, err := svc.Validate(ctx, cl.ID(), "("); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for a bad pattern, got %v", err)
	}
	if repo.store[cl.ID()].IsValidated() {
		t.Error("a rejected pattern must clear the stored flag")
	}
}

func TestService_Truncate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	cl := createICD10(t, svc,
		Entry{Code: "A01.1", Term: "Paratyphoid"},
		Entry{Code: "A01", Term: "Typhoid"},
		Entry{Code: "A02"},
	)

	if _, err := svc.Truncate(ctx, cl.ID(), "last"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported for unknown mode, got %v", err)
	}
	got, err := svc.Truncate(ctx, cl.ID(), "first")
	if err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	if strings.Join(got.Codes(), ",") != "A01,A02" {
		t.Errorf("unexpected codes %v", got.Codes())
	}
}

func TestService_Truncate_SNOMEDRejectedBeforeMode(t *testing.T) {
	svc, _ := newTestService()
	cl, err := svc.CreateCodeList(context.Background(), &CreateRequest{Name: "x", CodelistType: "SNOMED"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = svc.Truncate(context.Background(), cl.ID(), "bogus")
	if err == nil || err.Error() != "SNOMED cannot be truncated to 3 digits." {
		t.Errorf("unexpected error %v", err)
	}
}

func TestService_AddXCodes(t *testing.T) {
	svc, _ := newTestService()
	cl := createICD10(t, svc, Entry{Code: "A01", Term: "Typhoid fever"})
	got, err := svc.AddXCodes(context.Background(), cl.ID())
	if err != nil {
		t.Fatalf("AddXCodes: %v", err)
	}
	if e, ok := got.Entry("A01X"); !ok || e.Term != "Typhoid fever" {
		t.Errorf("expected A01X with inherited term, got %+v", e)
	}
}

// =========== Metadata Tests ===========

func TestService_ModifySet(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	cl := createICD10(t, svc)

	for _, kind := range []SetKind{SetTags, SetUsage, SetKeywords, SetContributors, SetAuthors} {
		if _, err := svc.ModifySet(ctx, cl.ID(), kind, ActionAdd, "v"); err != nil {
			t.Errorf("%s add: %v", kind, err)
		}
	}
	got, _ := svc.GetCodeList(ctx, cl.ID())
	if len(got.Tags()) != 1 || len(got.Usage()) != 1 || len(got.Keywords()) != 1 ||
		len(got.Contributors()) != 1 || len(got.Authors()) != 1 {
		t.Errorf("expected one value in every set: %+v", got.Metadata())
	}

	if _, err := svc.ModifySet(ctx, cl.ID(), SetTags, ActionRemove, "absent"); err != nil {
		t.Errorf("removing an absent tag should succeed: %v", err)
	}
	if _, err := svc.ModifySet(ctx, cl.ID(), "colours", ActionAdd, "v"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
	if _, err := svc.ModifySet(ctx, cl.ID(), SetTags, ActionUpdate, "v"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported for update on a set, got %v", err)
	}
}

func TestService_ModifyField(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	cl := createICD10(t, svc)

	if _, err := svc.ModifyField(ctx, cl.ID(), "purpose", ActionUpdate, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.ModifyField(ctx, cl.ID(), "purpose", ActionAdd, "audit"); err != nil {
		t.Fatalf("add purpose: %v", err)
	}
	if _, err := svc.ModifyField(ctx, cl.ID(), "notes", ActionAdd, "a"); err != nil {
		t.Fatalf("add notes: %v", err)
	}
	got, err := svc.ModifyField(ctx, cl.ID(), "notes", ActionUpdate, "b")
	if err != nil {
		t.Fatalf("update notes: %v", err)
	}
	if got.Purpose() != "audit" || got.ValidationNotes() != "a\nb" {
		t.Errorf("unexpected metadata %q %q", got.Purpose(), got.ValidationNotes())
	}
	if _, err := svc.ModifyField(ctx, cl.ID(), "colour", ActionAdd, "x"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestService_ReviewAndNotes(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	cl := createICD10(t, svc)

	if _, err := svc.AddValidationInfo(ctx, cl.ID(), "dr a", "approved", "ok"); err != nil {
		t.Fatalf("AddValidationInfo: %v", err)
	}
	if _, err := svc.AddValidationInfo(ctx, cl.ID(), "dr b", "", ""); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
	got, err := svc.AddNote(ctx, cl.ID(), "imported from spreadsheet")
	if err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	logs := got.Logs()
	if logs[len(logs)-1].Message != "imported from spreadsheet" {
		t.Errorf("expected note as last log entry, got %+v", logs[len(logs)-1])
	}
}

func TestService_Delete(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	cl := createICD10(t, svc)

	if err := svc.DeleteCodeList(ctx, cl.ID()); err != nil {
		t.Fatalf("DeleteCodeList: %v", err)
	}
	if _, err := svc.GetCodeList(ctx, cl.ID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// =========== Metrics Tests ===========

func TestService_Metrics(t *testing.T) {
	svc, _ := newTestService()
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	svc.SetMetrics(m)
	ctx := context.Background()

	cl := createICD10(t, svc, Entry{Code: "A01"})
	svc.Validate(ctx, cl.ID(), "")
	svc.AddEntry(ctx, cl.ID(), Entry{Code: "nope"})
	svc.Validate(ctx, cl.ID(), "")
	svc.RemoveEntry(ctx, uuid.New(), "A01")

	if got := testutil.ToFloat64(m.ops.WithLabelValues("create", "ok")); got != 1 {
		t.Errorf("create ok: expected 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.ops.WithLabelValues("validate", "ok")); got != 1 {
		t.Errorf("validate ok: expected 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.ops.WithLabelValues("validate", "validation")); got != 1 {
		t.Errorf("validate validation: expected 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.ops.WithLabelValues("remove_entry", "not_found")); got != 1 {
		t.Errorf("remove_entry not_found: expected 1, got %v", got)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.observe("create", nil, nil)
}
