package codelist

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/codelist/codelist/internal/platform/auth"
	"github.com/codelist/codelist/internal/platform/fhir"
	"github.com/codelist/codelist/internal/platform/middleware"
)

type stubImporter struct{}

// Decode reads one "code,term" pair per line.
func (stubImporter) Decode(_ string, r io.Reader, name, codelistType, source string) (*CodeList, error) {
	cl, err := New(name, codelistType, source)
	if err != nil {
		return nil, err
	}
	b, _ := io.ReadAll(r)
	for _, line := range strings.Split(strings.TrimSpace(string(b)), "\n") {
		parts := strings.SplitN(line, ",", 2)
		term := ""
		if len(parts) == 2 {
			term = parts[1]
		}
		if err := cl.AddEntry(parts[0], term, ""); err != nil {
			return nil, err
		}
	}
	return cl, nil
}

func newTestServer() *echo.Echo {
	svc, _ := newTestService()
	h := NewHandler(svc, stubImporter{})
	e := echo.New()
	e.Validator = middleware.NewValidator()
	api := e.Group("/api/v1", auth.DevAuthMiddleware())
	fhirGroup := e.Group("/fhir", auth.DevAuthMiddleware())
	h.RegisterRoutes(api, fhirGroup)
	return e
}

func do(e *echo.Echo, method, path string, body interface{}) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func createViaAPI(t *testing.T, e *echo.Echo, body map[string]interface{}) string {
	t.Helper()
	rec := do(e, http.MethodPost, "/api/v1/codelists", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	return decode(t, rec)["id"].(string)
}

func entryCodes(t *testing.T, body map[string]interface{}) []string {
	t.Helper()
	var codes []string
	for _, e := range body["entries"].([]interface{}) {
		codes = append(codes, e.(map[string]interface{})["code"].(string))
	}
	return codes
}

// =========== Create Handler Tests ===========

func TestHandler_CreateCodeList(t *testing.T) {
	e := newTestServer()
	rec := do(e, http.MethodPost, "/api/v1/codelists", map[string]interface{}{
		"name":          "Typhoid",
		"codelist_type": "ICD10",
		"tags":          []string{"infection"},
		"entries":       []map[string]string{{"code": "A01", "term": "Typhoid fever"}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.HasPrefix(rec.Header().Get("Location"), "/api/v1/codelists/") {
		t.Errorf("unexpected Location %q", rec.Header().Get("Location"))
	}
	body := decode(t, rec)
	if body["name"] != "Typhoid" || body["codelist_type"] != "ICD10" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestHandler_CreateCodeList_InvalidType(t *testing.T) {
	e := newTestServer()
	rec := do(e, http.MethodPost, "/api/v1/codelists", map[string]interface{}{
		"name": "x", "codelist_type": "INVALID",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid codelist type: INVALID") {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_CreateCodeList_MissingFields(t *testing.T) {
	e := newTestServer()
	rec := do(e, http.MethodPost, "/api/v1/codelists", map[string]interface{}{
		"entries": []map[string]string{{"term": "no code"}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	msg := rec.Body.String()
	for _, want := range []string{"CreateRequest.Name", "CreateRequest.CodelistType", "CreateRequest.Entries[0].Code"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %s", want, msg)
		}
	}
}

func TestHandler_ImportCodeList(t *testing.T) {
	e := newTestServer()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, _ := w.CreateFormFile("file", "typhoid.csv")
	fw.Write([]byte("A01,Typhoid fever\nA02,Other salmonella\n"))
	w.WriteField("codelist_type", "ICD10")
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/codelists/import", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["name"] != "typhoid" {
		t.Errorf("expected name from file, got %v", body["name"])
	}
	source := body["metadata"].(map[string]interface{})["provenance"].(map[string]interface{})["source"]
	if source != "FILE" {
		t.Errorf("expected FILE source, got %v", source)
	}
	if got := entryCodes(t, body); len(got) != 2 {
		t.Errorf("expected 2 entries, got %v", got)
	}
}

func TestHandler_ImportCodeList_MissingType(t *testing.T) {
	e := newTestServer()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, _ := w.CreateFormFile("file", "x.csv")
	fw.Write([]byte("A01\n"))
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/codelists/import", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

// =========== Read Handler Tests ===========

func TestHandler_GetAndList(t *testing.T) {
	e := newTestServer()
	id := createViaAPI(t, e, map[string]interface{}{"name": "Asthma", "codelist_type": "SNOMED"})
	createViaAPI(t, e, map[string]interface{}{"name": "Typhoid", "codelist_type": "ICD10"})

	rec := do(e, http.MethodGet, "/api/v1/codelists/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}

	rec = do(e, http.MethodGet, "/api/v1/codelists", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	if total := decode(t, rec)["total"]; total != float64(2) {
		t.Errorf("expected total 2, got %v", total)
	}

	if rec := do(e, http.MethodGet, "/api/v1/codelists/not-a-uuid", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad id, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/api/v1/codelists/00000000-0000-0000-0000-000000000000", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_Logs(t *testing.T) {
	e := newTestServer()
	id := createViaAPI(t, e, map[string]interface{}{"name": "x", "codelist_type": "ICD10"})
	do(e, http.MethodPost, "/api/v1/codelists/"+id+"/entries", map[string]string{"code": "A01"})

	rec := do(e, http.MethodGet, "/api/v1/codelists/"+id+"/logs", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var logs []LogEntry
	json.Unmarshal(rec.Body.Bytes(), &logs)
	if len(logs) != 1 || logs[0].Code != "A01" {
		t.Errorf("unexpected logs %+v", logs)
	}
}

// =========== Entry Handler Tests ===========

func TestHandler_EntryAnnotations(t *testing.T) {
	e := newTestServer()
	id := createViaAPI(t, e, map[string]interface{}{"name": "x", "codelist_type": "ICD10"})
	base := "/api/v1/codelists/" + id

	if rec := do(e, http.MethodPost, base+"/entries", map[string]string{"code": "A01"}); rec.Code != http.StatusCreated {
		t.Fatalf("add entry: expected 201, got %d", rec.Code)
	}
	if rec := do(e, http.MethodPost, base+"/entries", map[string]string{}); rec.Code != http.StatusBadRequest {
		t.Errorf("add entry without code: expected 400, got %d", rec.Code)
	}
	if rec := do(e, http.MethodPut, base+"/entries/A01/term", map[string]string{"value": "x"}); rec.Code != http.StatusNotFound {
		t.Errorf("update missing term: expected 404, got %d", rec.Code)
	}
	if rec := do(e, http.MethodPost, base+"/entries/A01/term", map[string]string{"value": "Typhoid"}); rec.Code != http.StatusOK {
		t.Errorf("add term: expected 200, got %d", rec.Code)
	}
	rec := do(e, http.MethodPost, base+"/entries/A01/term", map[string]string{"value": "Again"})
	if rec.Code != http.StatusConflict {
		t.Errorf("add term twice: expected 409, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Please use update term instead.") {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
	if rec := do(e, http.MethodPost, base+"/entries/A01/comment", map[string]string{"value": "c"}); rec.Code != http.StatusOK {
		t.Errorf("add comment: expected 200, got %d", rec.Code)
	}
	if rec := do(e, http.MethodDelete, base+"/entries/A01/term", nil); rec.Code != http.StatusOK {
		t.Errorf("remove term: expected 200, got %d", rec.Code)
	}
	if rec := do(e, http.MethodDelete, base+"/entries/A01", nil); rec.Code != http.StatusOK {
		t.Errorf("remove entry: expected 200, got %d", rec.Code)
	}
	if rec := do(e, http.MethodDelete, base+"/entries/A01", nil); rec.Code != http.StatusNotFound {
		t.Errorf("remove entry again: expected 404, got %d", rec.Code)
	}
}

// =========== Validate & Transform Handler Tests ===========

func TestHandler_Validate(t *testing.T) {
	e := newTestServer()
	id := createViaAPI(t, e, map[string]interface{}{
		"name": "x", "codelist_type": "ICD10",
		"entries": []map[string]string{{"code": "A01"}},
	})
	base := "/api/v1/codelists/" + id

	rec := do(e, http.MethodPost, base+"/$validate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if decode(t, rec)["validated"] != true {
		t.Error("expected validated true")
	}

	do(e, http.MethodPost, base+"/entries", map[string]string{"code": "A0"})
	rec = do(e, http.MethodPost, base+"/$validate", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["validated"] != false || !strings.Contains(body["error"].(string), "invalid length") {
		t.Errorf("unexpected body %v", body)
	}

	rec = do(e, http.MethodPost, base+"/$validate", map[string]string{"pattern": `^A0[0-9]?$`})
	if rec.Code != http.StatusOK {
		t.Errorf("custom pattern: expected 200, got %d", rec.Code)
	}
}

func TestHandler_Truncate(t *testing.T) {
	e := newTestServer()
	id := createViaAPI(t, e, map[string]interface{}{
		"name": "x", "codelist_type": "ICD10",
		"entries": []map[string]string{
			{"code": "A01.1", "term": "Paratyphoid"},
			{"code": "A01", "term": "Typhoid"},
			{"code": "A02"},
			{"code": "A03"},
		},
	})
	base := "/api/v1/codelists/" + id

	if rec := do(e, http.MethodPost, base+"/$truncate", map[string]string{"term_management": "last"}); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown mode: expected 400, got %d", rec.Code)
	}
	rec := do(e, http.MethodPost, base+"/$truncate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := strings.Join(entryCodes(t, decode(t, rec)), ","); got != "A01,A02,A03" {
		t.Errorf("unexpected codes %s", got)
	}
}

func TestHandler_TransformsRejectSNOMED(t *testing.T) {
	e := newTestServer()
	id := createViaAPI(t, e, map[string]interface{}{
		"name": "x", "codelist_type": "SNOMED",
		"entries": []map[string]string{{"code": "1234567"}},
	})
	base := "/api/v1/codelists/" + id

	rec := do(e, http.MethodPost, base+"/$truncate", nil)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "SNOMED cannot be truncated to 3 digits.") {
		t.Errorf("truncate: unexpected %d %s", rec.Code, rec.Body.String())
	}
	rec = do(e, http.MethodPost, base+"/$add-x-codes", nil)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "cannot be transformed by having X added") {
		t.Errorf("add-x: unexpected %d %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_AddXCodes(t *testing.T) {
	e := newTestServer()
	id := createViaAPI(t, e, map[string]interface{}{
		"name": "x", "codelist_type": "ICD10",
		"entries": []map[string]string{{"code": "A01", "term": "Typhoid fever"}},
	})
	rec := do(e, http.MethodPost, "/api/v1/codelists/"+id+"/$add-x-codes", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := strings.Join(entryCodes(t, decode(t, rec)), ","); got != "A01,A01X" {
		t.Errorf("unexpected codes %s", got)
	}
}

// =========== Metadata Handler Tests ===========

func TestHandler_Metadata(t *testing.T) {
	e := newTestServer()
	id := createViaAPI(t, e, map[string]interface{}{"name": "x", "codelist_type": "ICD10"})
	base := "/api/v1/codelists/" + id

	if rec := do(e, http.MethodPost, base+"/tags/asthma", nil); rec.Code != http.StatusOK {
		t.Errorf("add tag: expected 200, got %d", rec.Code)
	}
	if rec := do(e, http.MethodDelete, base+"/usage/missing", nil); rec.Code != http.StatusOK {
		t.Errorf("remove absent usage: expected 200, got %d", rec.Code)
	}
	if rec := do(e, http.MethodPost, base+"/metadata/license", map[string]string{"value": "OGL"}); rec.Code != http.StatusOK {
		t.Errorf("add license: expected 200, got %d", rec.Code)
	}
	if rec := do(e, http.MethodPost, base+"/metadata/license", map[string]string{"value": "MIT"}); rec.Code != http.StatusConflict {
		t.Errorf("add license twice: expected 409, got %d", rec.Code)
	}
	if rec := do(e, http.MethodDelete, base+"/metadata/purpose", nil); rec.Code != http.StatusNotFound {
		t.Errorf("remove absent purpose: expected 404, got %d", rec.Code)
	}
	if rec := do(e, http.MethodPut, base+"/metadata/colour", map[string]string{"value": "red"}); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown field: expected 400, got %d", rec.Code)
	}
	if rec := do(e, http.MethodPost, base+"/review", map[string]string{"reviewer": "dr a", "status": "approved"}); rec.Code != http.StatusOK {
		t.Errorf("review: expected 200, got %d", rec.Code)
	}
	if rec := do(e, http.MethodPost, base+"/review", map[string]string{"status": "approved"}); rec.Code != http.StatusBadRequest {
		t.Errorf("review without reviewer: expected 400, got %d", rec.Code)
	}
	rec := do(e, http.MethodPost, base+"/notes", map[string]string{"note": "checked"})
	if rec.Code != http.StatusOK {
		t.Fatalf("note: expected 200, got %d", rec.Code)
	}
	md := decode(t, rec)["metadata"].(map[string]interface{})
	if md["categorisation_and_usage"].(map[string]interface{})["license"] != "OGL" {
		t.Errorf("unexpected metadata %v", md)
	}
}

func TestHandler_Delete(t *testing.T) {
	e := newTestServer()
	id := createViaAPI(t, e, map[string]interface{}{"name": "x", "codelist_type": "ICD10"})
	if rec := do(e, http.MethodDelete, "/api/v1/codelists/"+id, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec := do(e, http.MethodDelete, "/api/v1/codelists/"+id, nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

// =========== Role Tests ===========

func tokenWithRoles(t *testing.T, roles ...string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "someone"},
		Roles:            roles,
	})
	s, err := tok.SignedString([]byte("test"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestHandler_ViewerCannotWrite(t *testing.T) {
	e := newTestServer()
	token := tokenWithRoles(t, auth.RoleViewer)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/codelists", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("viewer read: expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/codelists", strings.NewReader(`{"name":"x","codelist_type":"ICD10"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("viewer write: expected 403, got %d", rec.Code)
	}
}

// =========== FHIR Handler Tests ===========

func TestHandler_FHIRValueSet(t *testing.T) {
	e := newTestServer()
	id := createViaAPI(t, e, map[string]interface{}{
		"name": "Typhoid", "codelist_type": "ICD10", "version": "2",
		"entries": []map[string]string{{"code": "A01", "term": "Typhoid fever", "comment": "c"}},
	})

	rec := do(e, http.MethodGet, "/fhir/ValueSet/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	vs := decode(t, rec)
	if vs["resourceType"] != "ValueSet" || vs["status"] != "draft" || vs["version"] != "2" {
		t.Errorf("unexpected ValueSet %v", vs)
	}
	include := vs["compose"].(map[string]interface{})["include"].([]interface{})[0].(map[string]interface{})
	if include["system"] != SystemICD10 {
		t.Errorf("unexpected system %v", include["system"])
	}
	concept := include["concept"].([]interface{})[0].(map[string]interface{})
	if concept["code"] != "A01" || concept["display"] != "Typhoid fever" {
		t.Errorf("unexpected concept %v", concept)
	}
	if rec.Header().Get("Last-Modified") == "" {
		t.Error("expected Last-Modified header")
	}
	ext := vs["extension"].([]interface{})[0].(map[string]interface{})
	if ext["url"] != fhir.ExtensionCodeListSource || ext["valueCode"] != "MANUAL" {
		t.Errorf("unexpected source extension %v", ext)
	}

	rec = do(e, http.MethodGet, "/fhir/ValueSet/00000000-0000-0000-0000-000000000000", nil)
	if rec.Code != http.StatusNotFound || decode(t, rec)["resourceType"] != "OperationOutcome" {
		t.Errorf("expected 404 OperationOutcome, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_FHIRSearch(t *testing.T) {
	e := newTestServer()
	for _, name := range []string{"a", "b", "c"} {
		createViaAPI(t, e, map[string]interface{}{"name": name, "codelist_type": "ICD10"})
	}
	rec := do(e, http.MethodGet, "/fhir/ValueSet?_count=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	bundle := decode(t, rec)
	if bundle["total"] != float64(3) {
		t.Errorf("expected total 3, got %v", bundle["total"])
	}
	if entries := bundle["entry"].([]interface{}); len(entries) != 2 {
		t.Errorf("expected 2 entries, got %d", len(entries))
	}
	var hasNext bool
	for _, l := range bundle["link"].([]interface{}) {
		if l.(map[string]interface{})["relation"] == "next" {
			hasNext = true
		}
	}
	if !hasNext {
		t.Error("expected next link")
	}
}

func TestHandler_FHIRValidate(t *testing.T) {
	e := newTestServer()
	id := createViaAPI(t, e, map[string]interface{}{
		"name": "x", "codelist_type": "ICD10",
		"entries": []map[string]string{{"code": "A01"}, {"code": "A1"}},
	})
	rec := do(e, http.MethodPost, "/fhir/ValueSet/"+id+"/$validate", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	issue := decode(t, rec)["issue"].([]interface{})[0].(map[string]interface{})
	if issue["code"] != "code-invalid" || !strings.Contains(issue["diagnostics"].(string), "A1") {
		t.Errorf("unexpected issue %v", issue)
	}
}

func TestHandler_FHIRValidateCode(t *testing.T) {
	e := newTestServer()
	id := createViaAPI(t, e, map[string]interface{}{
		"name": "x", "codelist_type": "ICD10",
		"entries": []map[string]string{{"code": "A01", "term": "Typhoid fever"}},
	})
	base := "/fhir/ValueSet/" + id + "/$validate-code"

	result := func(rec *httptest.ResponseRecorder) (bool, map[string]interface{}) {
		params := map[string]interface{}{}
		var ok bool
		for _, p := range decode(t, rec)["parameter"].([]interface{}) {
			pm := p.(map[string]interface{})
			params[pm["name"].(string)] = pm
			if pm["name"] == "result" {
				ok = pm["valueBoolean"].(bool)
			}
		}
		return ok, params
	}

	ok, params := result(do(e, http.MethodGet, base+"?code=A01", nil))
	if !ok {
		t.Error("A01: expected result true")
	}
	if d := params["display"].(map[string]interface{})["valueString"]; d != "Typhoid fever" {
		t.Errorf("A01: unexpected display %v", d)
	}
	if ok, _ := result(do(e, http.MethodGet, base+"?code=A02", nil)); ok {
		t.Error("A02: expected result false for non-member")
	}
	if ok, _ := result(do(e, http.MethodGet, base+"?code=A01&system=http://snomed.info/sct", nil)); ok {
		t.Error("expected result false for mismatched system")
	}
	if rec := do(e, http.MethodGet, base, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("missing code: expected 400, got %d", rec.Code)
	}
}
