package codelist

func (cl *CodeList) Reviewer() string        { return cl.metadata.ValidationAndReview.Reviewer }
func (cl *CodeList) ReviewStatus() string    { return cl.metadata.ValidationAndReview.Status }
func (cl *CodeList) ValidationNotes() string { return cl.metadata.ValidationAndReview.Notes }

// IsReviewed reports whether a review record has been established.
func (cl *CodeList) IsReviewed() bool { return cl.metadata.ValidationAndReview.Reviewed }

// AddValidationInfo establishes the review record in one step: reviewer and
// review date are set, status is set or replaced, and notes are added or
// appended to existing notes. If a reviewer is already recorded nothing is
// changed.
func (cl *CodeList) AddValidationInfo(reviewer, status, notes string) error {
	if err := requireValue(reviewer, "reviewer"); err != nil {
		return err
	}
	vr := &cl.metadata.ValidationAndReview
	if vr.Reviewer != "" {
		return newError(ErrConflict, "Unable to add reviewer. Please use update reviewer instead.")
	}
	now := cl.now().UTC()
	vr.Reviewer = reviewer
	vr.ReviewDate = &now
	if status != "" {
		vr.Status = status
	}
	if notes != "" {
		vr.Notes = appendNotes(vr.Notes, notes)
	}
	vr.Reviewed = true
	cl.metadataChanged(LogAdd, "validation info")
	return nil
}

func (cl *CodeList) AddReviewer(v string) error {
	return cl.addField(&cl.metadata.ValidationAndReview.Reviewer, v, "reviewer")
}

func (cl *CodeList) UpdateReviewer(v string) error {
	return cl.updateField(&cl.metadata.ValidationAndReview.Reviewer, v, "reviewer")
}

func (cl *CodeList) RemoveReviewer() error {
	return cl.removeField(&cl.metadata.ValidationAndReview.Reviewer, "reviewer")
}

func (cl *CodeList) AddReviewStatus(v string) error {
	return cl.addField(&cl.metadata.ValidationAndReview.Status, v, "status")
}

func (cl *CodeList) UpdateReviewStatus(v string) error {
	return cl.updateField(&cl.metadata.ValidationAndReview.Status, v, "status")
}

func (cl *CodeList) RemoveReviewStatus() error {
	return cl.removeField(&cl.metadata.ValidationAndReview.Status, "status")
}

func (cl *CodeList) AddValidationNotes(v string) error {
	return cl.addField(&cl.metadata.ValidationAndReview.Notes, v, "validation notes")
}

// UpdateValidationNotes appends to the existing notes on a new line rather
// than replacing them.
func (cl *CodeList) UpdateValidationNotes(v string) error {
	if err := requireValue(v, "validation notes"); err != nil {
		return err
	}
	vr := &cl.metadata.ValidationAndReview
	if vr.Notes == "" {
		return newError(ErrNotFound, "Unable to update validation notes. Please use add validation notes instead.")
	}
	vr.Notes = appendNotes(vr.Notes, v)
	cl.metadataChanged(LogEdit, "validation notes")
	return nil
}

func (cl *CodeList) RemoveValidationNotes() error {
	return cl.removeField(&cl.metadata.ValidationAndReview.Notes, "validation notes")
}

// SetReviewed flips the reviewed flag.
func (cl *CodeList) SetReviewed(reviewed bool) {
	cl.metadata.ValidationAndReview.Reviewed = reviewed
	cl.metadataChanged(LogEdit, "reviewed")
}

func appendNotes(existing, notes string) string {
	if existing == "" {
		return notes
	}
	return existing + "\n" + notes
}
