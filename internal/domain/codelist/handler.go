package codelist

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/codelist/codelist/internal/platform/auth"
	"github.com/codelist/codelist/internal/platform/fhir"
	"github.com/codelist/codelist/pkg/pagination"
)

// Importer decodes an uploaded file into a codelist. The format is chosen
// from the file name.
type Importer interface {
	Decode(filename string, r io.Reader, name, codelistType, source string) (*CodeList, error)
}

type Handler struct {
	svc      *Service
	importer Importer
}

func NewHandler(svc *Service, importer Importer) *Handler {
	return &Handler{svc: svc, importer: importer}
}

func (h *Handler) RegisterRoutes(api *echo.Group, fhirGroup *echo.Group) {
	read := api.Group("", auth.RequireRole("admin", "editor", "viewer"))
	read.GET("/codelists", h.ListCodeLists)
	read.GET("/codelists/:id", h.GetCodeList)
	read.GET("/codelists/:id/logs", h.GetLogs)

	write := api.Group("", auth.RequireRole("admin", "editor"))
	write.POST("/codelists", h.CreateCodeList)
	write.POST("/codelists/import", h.ImportCodeList)
	write.DELETE("/codelists/:id", h.DeleteCodeList)

	write.POST("/codelists/:id/entries", h.AddEntry)
	write.DELETE("/codelists/:id/entries/:code", h.RemoveEntry)
	for _, field := range []Annotation{AnnotationTerm, AnnotationComment} {
		path := "/codelists/:id/entries/:code/" + string(field)
		write.POST(path, h.annotate(field, ActionAdd))
		write.PUT(path, h.annotate(field, ActionUpdate))
		write.DELETE(path, h.annotate(field, ActionRemove))
	}

	write.POST("/codelists/:id/$validate", h.Validate)
	write.POST("/codelists/:id/$truncate", h.Truncate)
	write.POST("/codelists/:id/$add-x-codes", h.AddXCodes)

	for _, kind := range []SetKind{SetTags, SetUsage, SetKeywords, SetContributors, SetAuthors} {
		path := "/codelists/:id/" + string(kind) + "/:value"
		write.POST(path, h.modifySet(kind, ActionAdd))
		write.DELETE(path, h.modifySet(kind, ActionRemove))
	}
	write.POST("/codelists/:id/metadata/:field", h.modifyField(ActionAdd))
	write.PUT("/codelists/:id/metadata/:field", h.modifyField(ActionUpdate))
	write.DELETE("/codelists/:id/metadata/:field", h.modifyField(ActionRemove))
	write.POST("/codelists/:id/review", h.AddValidationInfo)
	write.POST("/codelists/:id/notes", h.AddNote)

	fhirRead := fhirGroup.Group("", auth.RequireRole("admin", "editor", "viewer"))
	fhirRead.GET("/ValueSet", h.SearchValueSetsFHIR)
	fhirRead.GET("/ValueSet/:id", h.GetValueSetFHIR)
	fhirRead.GET("/ValueSet/:id/$validate-code", h.ValidateCodeFHIR)

	fhirWrite := fhirGroup.Group("", auth.RequireRole("admin", "editor"))
	fhirWrite.POST("/ValueSet/:id/$validate", h.ValidateFHIR)
}

// -- Request bodies --

type entryRequest struct {
	Code    string `json:"code" validate:"required"`
	Term    string `json:"term"`
	Comment string `json:"comment"`
}

type valueRequest struct {
	Value string `json:"value" validate:"required"`
}

type validateRequest struct {
	Pattern string `json:"pattern"`
}

type truncateRequest struct {
	TermManagement string `json:"term_management"`
}

type reviewRequest struct {
	Reviewer string `json:"reviewer" validate:"required"`
	Status   string `json:"status"`
	Notes    string `json:"notes"`
}

type noteRequest struct {
	Note string `json:"note" validate:"required"`
}

// -- REST Endpoints --

func (h *Handler) CreateCodeList(c echo.Context) error {
	var req CreateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	cl, err := h.svc.CreateCodeList(c.Request().Context(), &req)
	if err != nil {
		return httpError(err)
	}
	c.Response().Header().Set("Location", "/api/v1/codelists/"+cl.ID().String())
	return c.JSON(http.StatusCreated, cl)
}

func (h *Handler) ImportCodeList(c echo.Context) error {
	if h.importer == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "file import is not configured")
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing file upload")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer f.Close()

	name := c.FormValue("name")
	if name == "" {
		name = strings.TrimSuffix(fh.Filename, extOf(fh.Filename))
	}
	codelistType := c.FormValue("codelist_type")
	if codelistType == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "codelist_type is required")
	}
	source := c.FormValue("source")
	if source == "" {
		source = string(SourceFile)
	}

	cl, err := h.importer.Decode(fh.Filename, f, name, codelistType, source)
	if err != nil {
		return httpError(err)
	}
	cl, err = h.svc.Import(c.Request().Context(), cl)
	if err != nil {
		return httpError(err)
	}
	c.Response().Header().Set("Location", "/api/v1/codelists/"+cl.ID().String())
	return c.JSON(http.StatusCreated, cl)
}

func (h *Handler) GetCodeList(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	cl, err := h.svc.GetCodeList(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) GetLogs(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	cl, err := h.svc.GetCodeList(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cl.Logs())
}

func (h *Handler) ListCodeLists(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListCodeLists(c.Request().Context(), searchParams(c), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DeleteCodeList(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteCodeList(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AddEntry(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req entryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	cl, err := h.svc.AddEntry(c.Request().Context(), id, Entry{Code: req.Code, Term: req.Term, Comment: req.Comment})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, cl)
}

func (h *Handler) RemoveEntry(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	cl, err := h.svc.RemoveEntry(c.Request().Context(), id, c.Param("code"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) annotate(field Annotation, action Action) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		var req valueRequest
		if action != ActionRemove {
			if err := bindAndValidate(c, &req); err != nil {
				return err
			}
		}
		cl, err := h.svc.Annotate(c.Request().Context(), id, field, action, c.Param("code"), req.Value)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, cl)
	}
}

func (h *Handler) Validate(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req validateRequest
	if err := bindOptional(c, &req); err != nil {
		return err
	}
	cl, err := h.svc.Validate(c.Request().Context(), id, req.Pattern)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
				"validated": false,
				"error":     err.Error(),
			})
		}
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"validated": cl.IsValidated(),
		"codelist":  cl,
	})
}

func (h *Handler) Truncate(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req truncateRequest
	if err := bindOptional(c, &req); err != nil {
		return err
	}
	if req.TermManagement == "" {
		req.TermManagement = string(TermFirst)
	}
	cl, err := h.svc.Truncate(c.Request().Context(), id, req.TermManagement)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) AddXCodes(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	cl, err := h.svc.AddXCodes(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) modifySet(kind SetKind, action Action) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		cl, err := h.svc.ModifySet(c.Request().Context(), id, kind, action, c.Param("value"))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, cl)
	}
}

func (h *Handler) modifyField(action Action) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		var req valueRequest
		if action != ActionRemove {
			if err := bindAndValidate(c, &req); err != nil {
				return err
			}
		}
		cl, err := h.svc.ModifyField(c.Request().Context(), id, c.Param("field"), action, req.Value)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, cl)
	}
}

func (h *Handler) AddValidationInfo(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req reviewRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	cl, err := h.svc.AddValidationInfo(c.Request().Context(), id, req.Reviewer, req.Status, req.Notes)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) AddNote(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req noteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	cl, err := h.svc.AddNote(c.Request().Context(), id, req.Note)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cl)
}

// -- FHIR Endpoints --

func (h *Handler) SearchValueSetsFHIR(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListCodeLists(c.Request().Context(), searchParams(c), pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.InternalErrorOutcome(err.Error()))
	}
	resources := make([]map[string]interface{}, len(items))
	for i, item := range items {
		resources[i] = item.ToFHIR()
	}
	var links []fhir.BundleLink
	for _, l := range pg.Links("/fhir/ValueSet", c.QueryParams(), total) {
		links = append(links, fhir.BundleLink{Relation: l.Relation, URL: l.URL})
	}
	return c.JSON(http.StatusOK, fhir.NewSearchBundle(resources, total, "/fhir/ValueSet", links...))
}

func (h *Handler) GetValueSetFHIR(c echo.Context) error {
	cl, status, outcome := h.lookupFHIR(c)
	if outcome != nil {
		return c.JSON(status, outcome)
	}
	c.Response().Header().Set("Last-Modified", cl.Dates().LastModifiedDate.Format(http.TimeFormat))
	return c.JSON(http.StatusOK, cl.ToFHIR())
}

// ValidateFHIR runs code validation and reports the result as an
// OperationOutcome.
func (h *Handler) ValidateFHIR(c echo.Context) error {
	cl, status, outcome := h.lookupFHIR(c)
	if outcome != nil {
		return c.JSON(status, outcome)
	}
	if _, err := h.svc.Validate(c.Request().Context(), cl.ID(), c.QueryParam("pattern")); err != nil {
		status, outcome := fhirError(err)
		return c.JSON(status, outcome)
	}
	return c.JSON(http.StatusOK, fhir.SuccessOutcome("All codes in ValueSet/"+cl.ID().String()+" are valid"))
}

// ValidateCodeFHIR answers whether ?code= is a member of the value set and
// well formed for its coding system, as a FHIR Parameters resource.
func (h *Handler) ValidateCodeFHIR(c echo.Context) error {
	cl, status, outcome := h.lookupFHIR(c)
	if outcome != nil {
		return c.JSON(status, outcome)
	}
	code := strings.TrimSpace(c.QueryParam("code"))
	if code == "" {
		return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome("code parameter is required"))
	}
	if system := c.QueryParam("system"); system != "" && system != cl.Type().URI() {
		return c.JSON(http.StatusOK, validateCodeParameters(false, "System "+system+" does not match "+cl.Type().URI(), ""))
	}
	if err := ValidateCode(cl.Type(), code); err != nil {
		return c.JSON(http.StatusOK, validateCodeParameters(false, err.Error(), ""))
	}
	entry, ok := cl.Entry(code)
	if !ok {
		return c.JSON(http.StatusOK, validateCodeParameters(false, entryNotFound(code).Error(), ""))
	}
	return c.JSON(http.StatusOK, validateCodeParameters(true, "", entry.Term))
}

func validateCodeParameters(result bool, message, display string) map[string]interface{} {
	params := []map[string]interface{}{{"name": "result", "valueBoolean": result}}
	if message != "" {
		params = append(params, map[string]interface{}{"name": "message", "valueString": message})
	}
	if display != "" {
		params = append(params, map[string]interface{}{"name": "display", "valueString": display})
	}
	return map[string]interface{}{"resourceType": "Parameters", "parameter": params}
}

// lookupFHIR loads the codelist named by :id, or returns the outcome to
// send instead.
func (h *Handler) lookupFHIR(c echo.Context) (*CodeList, int, *fhir.OperationOutcome) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, http.StatusNotFound, fhir.NotFoundOutcome("ValueSet", c.Param("id"))
	}
	cl, err := h.svc.GetCodeList(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return nil, http.StatusNotFound, fhir.NotFoundOutcome("ValueSet", c.Param("id"))
	}
	if err != nil {
		status, outcome := fhirError(err)
		return nil, status, outcome
	}
	return cl, 0, nil
}

// fhirError maps error kinds onto a status and OperationOutcome.
func fhirError(err error) (int, *fhir.OperationOutcome) {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeNotFound, err.Error())
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, fhir.ConflictOutcome(err.Error())
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity, fhir.CodeInvalidOutcome(err.Error())
	case errors.Is(err, ErrUnsupported):
		return http.StatusBadRequest, fhir.NotSupportedOutcome(err.Error())
	case errors.Is(err, ErrConstruction):
		return http.StatusBadRequest, fhir.InvalidOutcome(err.Error())
	}
	return http.StatusInternalServerError, fhir.InternalErrorOutcome(err.Error())
}

// -- helpers --

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func searchParams(c echo.Context) map[string]string {
	params := map[string]string{}
	for _, k := range []string{"name", "type", "tag"} {
		if v := c.QueryParam(k); v != "" {
			params[k] = v
		}
	}
	return params
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		if he, ok := err.(*echo.HTTPError); ok {
			return he
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// bindOptional binds a body that may be absent.
func bindOptional(c echo.Context, req interface{}) error {
	if c.Request().ContentLength == 0 {
		return nil
	}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// httpError maps error kinds onto HTTP status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrConstruction), errors.Is(err, ErrUnsupported):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func extOf(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i:]
	}
	return ""
}
