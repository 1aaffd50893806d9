package docs

import "time"

// recordToDocument converts a document record to the API type.
func recordToDocument(rec *DocumentRecord) Document {
	d := Document{
		ID:              rec.ID,
		Title:           rec.Title,
		Description:     rec.Description,
		Category:        Category(rec.Category),
		FileName:        rec.FileName,
		MimeType:        rec.MimeType,
		SizeBytes:       rec.SizeBytes,
		StoragePath:     rec.StoragePath,
		Status:          Status(rec.Status),
		Version:         rec.Version,
		LastAction:      rec.LastAction,
		RejectionReason: rec.RejectionReason,
		CheckoutStatus:  CheckoutStatus(rec.CheckoutStatus),
		CheckoutBy:      rec.CheckoutBy,
		CheckoutByName:  rec.CheckoutByName,
		CreatedBy:       rec.CreatedBy,
		Approvers:       []string(rec.Approvers),
		CreatedAt:       rec.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       rec.UpdatedAt.Format(time.RFC3339),
	}
	if rec.PendingSince != nil {
		d.PendingSince = rec.PendingSince.Format(time.RFC3339)
	}
	if rec.ExpiryDate != nil {
		d.ExpiryDate = rec.ExpiryDate.Format(time.RFC3339)
	}
	if rec.LastReviewDate != nil {
		d.LastReviewDate = rec.LastReviewDate.Format(time.RFC3339)
	}
	if rec.NextReviewDate != nil {
		d.NextReviewDate = rec.NextReviewDate.Format(time.RFC3339)
	}
	if rec.CheckoutAt != nil {
		d.CheckoutAt = rec.CheckoutAt.Format(time.RFC3339)
	}
	return d
}

// recordToVersion converts a version record to the API type.
func recordToVersion(rec DocumentVersionRecord) DocumentVersion {
	return DocumentVersion{
		ID:         rec.ID,
		DocumentID: rec.DocumentID,
		Version:    rec.Version,
		Comment:    rec.Comment,
		CreatedBy:  rec.CreatedBy,
		FileName:   rec.FileName,
		SizeBytes:  rec.SizeBytes,
		CreatedAt:  rec.CreatedAt.Format(time.RFC3339),
	}
}

// recordToActivity converts an activity record to the API type.
func recordToActivity(rec ActivityRecord) Activity {
	return Activity{
		ID:         rec.ID,
		DocumentID: rec.DocumentID,
		Action:     rec.Action,
		Actor:      rec.Actor,
		Outcome:    rec.Outcome,
		Detail:     rec.Detail,
		OldValue:   map[string]any(rec.OldValue),
		NewValue:   map[string]any(rec.NewValue),
		CreatedAt:  rec.CreatedAt.Format(time.RFC3339),
	}
}
