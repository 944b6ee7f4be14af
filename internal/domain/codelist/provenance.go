package codelist

// Source returns where the codelist came from.
func (cl *CodeList) Source() Source { return cl.metadata.Provenance.Source }

// Description returns the free-text provenance description.
func (cl *CodeList) Description() string { return cl.metadata.Provenance.Description }

func (cl *CodeList) AddDescription(description string) error {
	return cl.addField(&cl.metadata.Provenance.Description, description, "description")
}

func (cl *CodeList) UpdateDescription(description string) error {
	return cl.updateField(&cl.metadata.Provenance.Description, description, "description")
}

func (cl *CodeList) RemoveDescription() error {
	return cl.removeField(&cl.metadata.Provenance.Description, "description")
}

// Contributors returns contributor names in the order they were added.
func (cl *CodeList) Contributors() []string {
	return append([]string(nil), cl.metadata.Provenance.Contributors...)
}

// AddContributor adds a contributor; adding an existing name is a no-op.
func (cl *CodeList) AddContributor(name string) {
	if name == "" || containsString(cl.metadata.Provenance.Contributors, name) {
		return
	}
	cl.metadata.Provenance.Contributors = append(cl.metadata.Provenance.Contributors, name)
	cl.metadataChanged(LogAdd, "contributor")
}

// RemoveContributor removes a contributor if present.
func (cl *CodeList) RemoveContributor(name string) {
	if !containsString(cl.metadata.Provenance.Contributors, name) {
		return
	}
	cl.metadata.Provenance.Contributors = removeString(cl.metadata.Provenance.Contributors, name)
	cl.metadataChanged(LogRemove, "contributor")
}

// Dates returns the creation and last modification timestamps.
func (cl *CodeList) Dates() Dates {
	return Dates{
		DateCreated:      cl.metadata.Provenance.CreatedDate,
		LastModifiedDate: cl.metadata.Provenance.LastModifiedDate,
	}
}
