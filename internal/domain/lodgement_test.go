package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatLodgementNumber(t *testing.T) {
	t.Parallel()

	require.Equal(t, "P000123", FormatLodgementNumber(ProposalLodgementPrefix, 123))
	require.Equal(t, "A000045", FormatLodgementNumber(ApprovalLodgementPrefix, 45))
	require.Equal(t, "P1234567", FormatLodgementNumber(ProposalLodgementPrefix, 1234567))
}

func TestAllocateLodgementNumberIsIdempotent(t *testing.T) {
	t.Parallel()

	p := NewProposal(ApplicationNewProposal, json.RawMessage(`{}`))
	p.ID = 123

	first, err := AllocateLodgementNumber(&p, p.ID)
	require.NoError(t, err)
	second, err := AllocateLodgementNumber(&p, p.ID)
	require.NoError(t, err)
	require.Equal(t, "P000123", first)
	require.Equal(t, first, second)

	// A later id never re-derives the number.
	third, err := AllocateLodgementNumber(&p, 999)
	require.NoError(t, err)
	require.Equal(t, first, third)
}

func TestAllocateLodgementNumberNeedsPersistedID(t *testing.T) {
	t.Parallel()

	var a Approval
	_, err := AllocateLodgementNumber(&a, 0)
	require.ErrorIs(t, err, ErrPreconditionNotMet)
	require.Empty(t, a.LodgementNumber)
}

func TestSetLodgementNumberIsImmutable(t *testing.T) {
	t.Parallel()

	holders := []LodgementHolder{&Proposal{}, &Approval{}}
	for _, h := range holders {
		require.NoError(t, h.SetLodgementNumber("X000001"))
		require.NoError(t, h.SetLodgementNumber("X000001"))

		err := h.SetLodgementNumber("X000002")
		require.ErrorIs(t, err, ErrImmutableFieldViolation)

		var ife *ImmutableFieldError
		require.ErrorAs(t, err, &ife)
		require.Equal(t, "lodgement_number", ife.Field)
		require.Equal(t, "X000001", h.Lodgement())
	}
}

func TestAuditRefs(t *testing.T) {
	t.Parallel()

	subjects := map[RecordKind]AuditSubject{
		RecordProposal: &Proposal{ID: 3},
		RecordApproval: &Approval{ID: 3},
	}
	for want, s := range subjects {
		kind, id := s.AuditRef()
		require.Equal(t, want, kind)
		require.Equal(t, int64(3), id)
	}
}
