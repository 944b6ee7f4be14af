package codelist

func (cl *CodeList) Version() string    { return cl.metadata.PurposeAndContext.Version }
func (cl *CodeList) Purpose() string    { return cl.metadata.PurposeAndContext.Purpose }
func (cl *CodeList) Audience() string   { return cl.metadata.PurposeAndContext.Audience }
func (cl *CodeList) UseContext() string { return cl.metadata.PurposeAndContext.UseContext }

func (cl *CodeList) AddVersion(v string) error {
	return cl.addField(&cl.metadata.PurposeAndContext.Version, v, "version")
}

func (cl *CodeList) UpdateVersion(v string) error {
	return cl.updateField(&cl.metadata.PurposeAndContext.Version, v, "version")
}

func (cl *CodeList) RemoveVersion() error {
	return cl.removeField(&cl.metadata.PurposeAndContext.Version, "version")
}

func (cl *CodeList) AddPurpose(v string) error {
	return cl.addField(&cl.metadata.PurposeAndContext.Purpose, v, "purpose")
}

func (cl *CodeList) UpdatePurpose(v string) error {
	return cl.updateField(&cl.metadata.PurposeAndContext.Purpose, v, "purpose")
}

func (cl *CodeList) RemovePurpose() error {
	return cl.removeField(&cl.metadata.PurposeAndContext.Purpose, "purpose")
}

func (cl *CodeList) AddAudience(v string) error {
	return cl.addField(&cl.metadata.PurposeAndContext.Audience, v, "target audience")
}

func (cl *CodeList) UpdateAudience(v string) error {
	return cl.updateField(&cl.metadata.PurposeAndContext.Audience, v, "target audience")
}

func (cl *CodeList) RemoveAudience() error {
	return cl.removeField(&cl.metadata.PurposeAndContext.Audience, "target audience")
}

func (cl *CodeList) AddUseContext(v string) error {
	return cl.addField(&cl.metadata.PurposeAndContext.UseContext, v, "use context")
}

func (cl *CodeList) UpdateUseContext(v string) error {
	return cl.updateField(&cl.metadata.PurposeAndContext.UseContext, v, "use context")
}

func (cl *CodeList) RemoveUseContext() error {
	return cl.removeField(&cl.metadata.PurposeAndContext.UseContext, "use context")
}

func (cl *CodeList) addField(dst *string, v, field string) error {
	if err := addScalar(dst, v, field); err != nil {
		return err
	}
	cl.metadataChanged(LogAdd, field)
	return nil
}

func (cl *CodeList) updateField(dst *string, v, field string) error {
	if err := updateScalar(dst, v, field); err != nil {
		return err
	}
	cl.metadataChanged(LogEdit, field)
	return nil
}

func (cl *CodeList) removeField(dst *string, field string) error {
	if err := removeScalar(dst, field); err != nil {
		return err
	}
	cl.metadataChanged(LogRemove, field)
	return nil
}
