package codelist

// Set-valued fields: adds are idempotent and removing an absent value is a
// silent no-op.

func (cl *CodeList) Tags() []string { return cl.metadata.CategorisationAndUsage.Tags.Values() }

func (cl *CodeList) AddTag(tag string) {
	cl.addToSet(cl.metadata.CategorisationAndUsage.Tags, tag, "tag")
}

func (cl *CodeList) RemoveTag(tag string) {
	cl.removeFromSet(cl.metadata.CategorisationAndUsage.Tags, tag, "tag")
}

func (cl *CodeList) Usage() []string { return cl.metadata.CategorisationAndUsage.Usage.Values() }

func (cl *CodeList) AddUsage(usage string) {
	cl.addToSet(cl.metadata.CategorisationAndUsage.Usage, usage, "usage")
}

func (cl *CodeList) RemoveUsage(usage string) {
	cl.removeFromSet(cl.metadata.CategorisationAndUsage.Usage, usage, "usage")
}

func (cl *CodeList) Keywords() []string { return cl.metadata.CategorisationAndUsage.Keywords.Values() }

func (cl *CodeList) AddKeyword(keyword string) {
	cl.addToSet(cl.metadata.CategorisationAndUsage.Keywords, keyword, "keyword")
}

func (cl *CodeList) RemoveKeyword(keyword string) {
	cl.removeFromSet(cl.metadata.CategorisationAndUsage.Keywords, keyword, "keyword")
}

func (cl *CodeList) addToSet(set StringSet, v, target string) {
	if v == "" || set.Has(v) {
		return
	}
	set.Add(v)
	cl.metadataChanged(LogAdd, target)
}

func (cl *CodeList) removeFromSet(set StringSet, v, target string) {
	if !set.Has(v) {
		return
	}
	set.Remove(v)
	cl.metadataChanged(LogRemove, target)
}

// Authors returns the authors in the order given.
func (cl *CodeList) Authors() []string {
	return append([]string(nil), cl.metadata.CategorisationAndUsage.Authors...)
}

// AddAuthor appends an author unless already listed.
func (cl *CodeList) AddAuthor(author string) {
	if author == "" || containsString(cl.metadata.CategorisationAndUsage.Authors, author) {
		return
	}
	cl.metadata.CategorisationAndUsage.Authors = append(cl.metadata.CategorisationAndUsage.Authors, author)
	cl.metadataChanged(LogAdd, "author")
}

func (cl *CodeList) RemoveAuthor(author string) {
	if !containsString(cl.metadata.CategorisationAndUsage.Authors, author) {
		return
	}
	cl.metadata.CategorisationAndUsage.Authors = removeString(cl.metadata.CategorisationAndUsage.Authors, author)
	cl.metadataChanged(LogRemove, "author")
}

// License returns the license text, or "" when none is set.
func (cl *CodeList) License() string { return cl.metadata.CategorisationAndUsage.License }

func (cl *CodeList) AddLicense(license string) error {
	return cl.addField(&cl.metadata.CategorisationAndUsage.License, license, "license")
}

func (cl *CodeList) UpdateLicense(license string) error {
	return cl.updateField(&cl.metadata.CategorisationAndUsage.License, license, "license")
}

func (cl *CodeList) RemoveLicense() error {
	return cl.removeField(&cl.metadata.CategorisationAndUsage.License, "license")
}
