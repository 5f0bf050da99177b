package domain

import "fmt"

const (
	ProposalLodgementPrefix = "P"
	ApprovalLodgementPrefix = "A"

	lodgementDigits = 6
)

// LodgementHolder is implemented by records that carry a lodgement number.
type LodgementHolder interface {
	LodgementPrefix() string
	Lodgement() string
	SetLodgementNumber(v string) error
}

// AuditSubject is implemented by records that own an audit trail.
type AuditSubject interface {
	AuditRef() (RecordKind, int64)
}

func FormatLodgementNumber(prefix string, id int64) string {
	return fmt.Sprintf("%s%0*d", prefix, lodgementDigits, id)
}

// AllocateLodgementNumber assigns the lodgement number derived from id when
// the holder has none yet. An existing number is returned unchanged.
func AllocateLodgementNumber(h LodgementHolder, id int64) (string, error) {
	if current := h.Lodgement(); current != "" {
		return current, nil
	}
	if id <= 0 {
		return "", fmt.Errorf("%w: record has no persisted id", ErrPreconditionNotMet)
	}
	number := FormatLodgementNumber(h.LodgementPrefix(), id)
	if err := h.SetLodgementNumber(number); err != nil {
		return "", err
	}
	return number, nil
}

func setOnce(field string, current *string, v string) error {
	if *current == "" || *current == v {
		*current = v
		return nil
	}
	return &ImmutableFieldError{Field: field, Current: *current, Attempted: v}
}
