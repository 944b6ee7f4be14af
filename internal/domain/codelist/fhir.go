package codelist

import (
	"github.com/codelist/codelist/internal/platform/fhir"
)

// ToFHIR renders the codelist as a FHIR R4 ValueSet with a single
// compose.include block for its coding system.
func (cl *CodeList) ToFHIR() map[string]interface{} {
	concepts := make([]map[string]interface{}, 0, cl.Len())
	for _, e := range cl.Entries() {
		c := map[string]interface{}{"code": e.Code}
		if e.Term != "" {
			c["display"] = e.Term
		}
		if e.Comment != "" {
			c["extension"] = []fhir.Extension{{URL: fhir.ExtensionEntryComment, ValueString: e.Comment}}
		}
		concepts = append(concepts, c)
	}

	status := "draft"
	if cl.validated {
		status = "active"
	}
	result := map[string]interface{}{
		"resourceType": "ValueSet",
		"id":           cl.id.String(),
		"name":         cl.name,
		"status":       status,
		"meta":         fhir.Meta{LastUpdated: cl.metadata.Provenance.LastModifiedDate},
		"date":         cl.metadata.Provenance.CreatedDate.Format("2006-01-02"),
		"extension": []fhir.Extension{{
			URL:       fhir.ExtensionCodeListSource,
			ValueCode: string(cl.metadata.Provenance.Source),
		}},
		"compose": map[string]interface{}{
			"include": []map[string]interface{}{
				{"system": cl.system.URI(), "concept": concepts},
			},
		},
	}
	if d := cl.metadata.Provenance.Description; d != "" {
		result["description"] = d
	}
	if v := cl.metadata.PurposeAndContext.Version; v != "" {
		result["version"] = v
	}
	if p := cl.metadata.PurposeAndContext.Purpose; p != "" {
		result["purpose"] = p
	}
	if l := cl.metadata.CategorisationAndUsage.License; l != "" {
		result["copyright"] = l
	}
	if authors := cl.metadata.CategorisationAndUsage.Authors; len(authors) > 0 {
		result["publisher"] = authors[0]
	}
	if kw := cl.Keywords(); len(kw) > 0 {
		topics := make([]fhir.CodeableConcept, 0, len(kw))
		for _, k := range kw {
			topics = append(topics, fhir.CodeableConcept{Text: k})
		}
		result["topic"] = topics
	}
	return result
}
