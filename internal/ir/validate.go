package ir

import (
	"strings"
	"unicode/utf8"
)

// Validate is the single entry point that turns an untrusted Submission into
// a Record. It either returns a fully validated Record (with Seq unset) or a
// typed *Error; no partially validated record is ever returned.
//
// identity is the verified token claim. It replaces whatever UpdatedBy the
// submission carried.
//
// Checks run in field order so that the first failing field is reported:
// report_id, title, content, classification, updated_at, identity.
func Validate(sub Submission, identity string) (Record, error) {
	reportID := strings.TrimSpace(sub.ReportID)
	if err := checkRequired("report_id", reportID, MaxReportIDLen); err != nil {
		return Record{}, err
	}
	if err := checkRequired("title", sub.Title, MaxTitleLen); err != nil {
		return Record{}, err
	}
	if err := checkRequired("content", sub.Content, MaxContentLen); err != nil {
		return Record{}, err
	}

	classification := strings.TrimSpace(sub.Classification)
	if classification == "" {
		classification = DefaultClassification
	}
	if err := checkLength("classification", classification, MaxClassificationLen); err != nil {
		return Record{}, err
	}

	updatedAt, err := ParseTimestamp(sub.UpdatedAt)
	if err != nil {
		return Record{}, err
	}

	if strings.TrimSpace(identity) == "" {
		return Record{}, NewAuthError("verified identity is empty", nil)
	}
	if err := checkLength("updated_by", identity, MaxUpdatedByLen); err != nil {
		return Record{}, err
	}

	rec := Record{
		ReportID:       reportID,
		Title:          sub.Title,
		Content:        sub.Content,
		Classification: classification,
		UpdatedAt:      updatedAt,
		UpdatedBy:      identity,
	}

	digest, err := RecordDigest(rec)
	if err != nil {
		return Record{}, NewMalformedPayloadError(err)
	}
	rec.Digest = digest

	return rec, nil
}

func checkRequired(field, value string, max int) error {
	if strings.TrimSpace(value) == "" {
		return NewMissingFieldError(field)
	}
	return checkLength(field, value, max)
}

func checkLength(field, value string, max int) error {
	if len(value) > max {
		return NewFieldTooLongError(field, len(value), max)
	}
	if !utf8.ValidString(value) {
		return &Error{Code: ErrCodeMalformedPayload, Message: "field is not valid UTF-8", Field: field}
	}
	return nil
}
