package storage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"licensing-ledger/internal/domain"
)

var testNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func int64Ptr(v int64) *int64 { return &v }

func seedProposal(t *testing.T, s *MemoryStore, mutate func(p *domain.Proposal)) domain.Proposal {
	t.Helper()
	p := domain.NewProposal(domain.ApplicationNewProposal, json.RawMessage(`{}`))
	if mutate != nil {
		mutate(&p)
	}
	require.NoError(t, s.InTx(context.Background(), func(r Repository) error {
		return r.CreateProposal(context.Background(), &p)
	}))
	return p
}

func TestMemoryStoreAllocatesLodgementNumbers(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	first := seedProposal(t, s, nil)
	second := seedProposal(t, s, nil)
	require.Equal(t, "P000001", first.LodgementNumber)
	require.Equal(t, "P000002", second.LodgementNumber)

	require.NoError(t, s.InTx(context.Background(), func(r Repository) error {
		got, err := r.GetProposal(context.Background(), second.ID)
		require.NoError(t, err)
		require.Equal(t, second, got)
		return nil
	}))
}

func TestMemoryStoreRollsBackOnError(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	p := seedProposal(t, s, nil)
	boom := errors.New("boom")

	err := s.InTx(context.Background(), func(r Repository) error {
		p.Title = "changed"
		require.NoError(t, r.UpdateProposal(context.Background(), p))
		require.NoError(t, r.AppendAction(context.Background(), &domain.UserAction{Record: domain.RecordProposal, RecordID: p.ID, When: testNow, What: "x"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, s.InTx(context.Background(), func(r Repository) error {
		got, err := r.GetProposal(context.Background(), p.ID)
		require.NoError(t, err)
		require.Empty(t, got.Title)
		actions, err := r.ListActions(context.Background(), domain.RecordProposal, p.ID)
		require.NoError(t, err)
		require.Empty(t, actions)
		return nil
	}))
}

func TestMemoryStoreRejectsLodgementRewrite(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	p := seedProposal(t, s, nil)
	p.LodgementNumber = "P999999"
	err := s.InTx(context.Background(), func(r Repository) error {
		return r.UpdateProposal(context.Background(), p)
	})
	require.ErrorIs(t, err, domain.ErrImmutableFieldViolation)
}

func TestMemoryStoreDuplicateApprovalLodgement(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()
	issued := testNow

	var first domain.Approval
	require.NoError(t, s.InTx(ctx, func(r Repository) error {
		first = domain.Approval{Status: domain.ApprovalCurrent, IssueDate: issued}
		return r.CreateApproval(ctx, &first)
	}))
	require.Equal(t, "A000001", first.LodgementNumber)

	err := s.InTx(ctx, func(r Repository) error {
		dup := domain.Approval{LodgementNumber: first.LodgementNumber, Status: domain.ApprovalCurrent, IssueDate: issued}
		return r.CreateApproval(ctx, &dup)
	})
	require.ErrorIs(t, err, domain.ErrDuplicateLodgement)

	require.NoError(t, s.InTx(ctx, func(r Repository) error {
		reissue := domain.Approval{LodgementNumber: first.LodgementNumber, Status: domain.ApprovalCurrent, IssueDate: issued.Add(24 * time.Hour)}
		return r.CreateApproval(ctx, &reissue)
	}))
}

func TestMemoryStoreProtectsPreviousApplication(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()
	prev := seedProposal(t, s, nil)
	next := seedProposal(t, s, func(p *domain.Proposal) { p.PreviousApplicationID = int64Ptr(prev.ID) })

	err := s.InTx(ctx, func(r Repository) error { return r.DeleteProposal(ctx, prev.ID) })
	require.ErrorIs(t, err, domain.ErrProtectedReference)

	require.NoError(t, s.InTx(ctx, func(r Repository) error { return r.DeleteProposal(ctx, next.ID) }))
	require.NoError(t, s.InTx(ctx, func(r Repository) error { return r.DeleteProposal(ctx, prev.ID) }))

	err = s.InTx(ctx, func(r Repository) error { return r.DeleteProposal(ctx, prev.ID) })
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryStoreRemoveUserClearsAssignments(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()
	officer := domain.UserIdentity{Email: "officer@example.com"}
	applicant := domain.UserIdentity{Email: "applicant@example.com"}
	require.NoError(t, s.InTx(ctx, func(r Repository) error {
		if err := r.CreateUser(ctx, &officer); err != nil {
			return err
		}
		return r.CreateUser(ctx, &applicant)
	}))

	p := seedProposal(t, s, func(p *domain.Proposal) {
		p.SubmitterID = int64Ptr(applicant.ID)
		p.AssignedOfficerID = int64Ptr(officer.ID)
		p.AssignedApproverID = int64Ptr(officer.ID)
	})

	err := s.InTx(ctx, func(r Repository) error { return r.RemoveUser(ctx, applicant.ID) })
	require.ErrorIs(t, err, domain.ErrProtectedReference)

	require.NoError(t, s.InTx(ctx, func(r Repository) error { return r.RemoveUser(ctx, officer.ID) }))
	require.NoError(t, s.InTx(ctx, func(r Repository) error {
		got, err := r.GetProposal(ctx, p.ID)
		require.NoError(t, err)
		require.Nil(t, got.AssignedOfficerID)
		require.Nil(t, got.AssignedApproverID)
		require.Equal(t, applicant.ID, *got.SubmitterID)

		_, err = r.GetUser(ctx, officer.ID)
		require.ErrorIs(t, err, domain.ErrNotFound)
		return nil
	}))
}

func TestMemoryStoreActionsAreChronological(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.InTx(ctx, func(r Repository) error {
		for i, what := range []string{"second", "first", "third"} {
			when := testNow.Add(time.Duration([]int{2, 1, 3}[i]) * time.Minute)
			if err := r.AppendAction(ctx, &domain.UserAction{Record: domain.RecordApproval, RecordID: 4, When: when, What: what}); err != nil {
				return err
			}
		}
		return r.AppendAction(ctx, &domain.UserAction{Record: domain.RecordProposal, RecordID: 4, When: testNow, What: "other record"})
	}))

	require.NoError(t, s.InTx(ctx, func(r Repository) error {
		actions, err := r.ListActions(ctx, domain.RecordApproval, 4)
		require.NoError(t, err)
		require.Len(t, actions, 3)
		require.Equal(t, []string{"first", "second", "third"}, []string{actions[0].What, actions[1].What, actions[2].What})
		return nil
	}))
}

func TestMemoryStoreOrphanedCollections(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()
	claimed := domain.NewTemporaryDocumentCollection(testNow.Add(-48 * time.Hour))
	orphan := domain.NewTemporaryDocumentCollection(testNow.Add(-48 * time.Hour))
	fresh := domain.NewTemporaryDocumentCollection(testNow)

	require.NoError(t, s.InTx(ctx, func(r Repository) error {
		for _, c := range []domain.TemporaryDocumentCollection{claimed, orphan, fresh} {
			if err := r.CreateTemporaryCollection(ctx, c); err != nil {
				return err
			}
		}
		doc := domain.TemporaryDocument{CollectionID: orphan.ID, Document: domain.Document{Path: domain.TemporaryObjectKey(orphan.ID, "a.pdf")}}
		return r.AddTemporaryDocument(ctx, &doc)
	}))
	seedProposal(t, s, func(p *domain.Proposal) { p.TemporaryCollectionID = claimed.ID.String() })

	require.NoError(t, s.InTx(ctx, func(r Repository) error {
		got, err := r.OrphanedTemporaryCollections(ctx, testNow.Add(-24*time.Hour))
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, orphan.ID, got[0].ID)
		require.Equal(t, []string{"tmp/" + orphan.ID.String() + "/a.pdf"}, got[0].Paths())
		return nil
	}))
}

func TestMemoryStoreApprovalsDueForExpiry(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()
	today := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.InTx(ctx, func(r Repository) error {
		for _, a := range []domain.Approval{
			{Status: domain.ApprovalCurrent, IssueDate: testNow, ExpiryDate: today.AddDate(0, 0, -1)},
			{Status: domain.ApprovalCurrent, IssueDate: testNow, ExpiryDate: today},
			{Status: domain.ApprovalSuspended, IssueDate: testNow, ExpiryDate: today.AddDate(0, 0, -1), SuspensionDetails: &domain.SuspensionDetails{}},
		} {
			a := a
			if err := r.CreateApproval(ctx, &a); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, s.InTx(ctx, func(r Repository) error {
		due, err := r.ApprovalsDueForExpiry(ctx, today.Add(10*time.Hour))
		require.NoError(t, err)
		require.Len(t, due, 1)
		require.Equal(t, int64(1), due[0].ID)
		return nil
	}))
}

func TestMemoryStoreUpcomingMaintenance(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.InTx(ctx, func(r Repository) error {
		for _, m := range []domain.SystemMaintenance{
			{Name: "later", Start: testNow.Add(48 * time.Hour), End: testNow.Add(49 * time.Hour)},
			{Name: "past", Start: testNow.Add(-2 * time.Hour), End: testNow.Add(-time.Hour)},
			{Name: "now", Start: testNow.Add(-time.Minute), End: testNow.Add(time.Hour)},
		} {
			m := m
			if err := r.CreateMaintenance(ctx, &m); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, s.InTx(ctx, func(r Repository) error {
		windows, err := r.UpcomingMaintenance(ctx, testNow)
		require.NoError(t, err)
		require.Len(t, windows, 2)
		require.Equal(t, "now", windows[0].Name)
		require.Equal(t, "later", windows[1].Name)
		return nil
	}))
}

func TestBasename(t *testing.T) {
	t.Parallel()

	require.Equal(t, "a.pdf", Basename("tmp/123/a.pdf"))
	require.Equal(t, "", Basename(""))
	require.Equal(t, "application/pdf", contentType("tmp/123/scan", []byte("%PDF-1.4\n%%EOF\n")))
	require.Equal(t, "application/pdf", contentType("tmp/123/a.pdf", []byte{0x00, 0x01, 0x02}))
	require.Equal(t, "application/octet-stream", contentType("tmp/123/blob", []byte{0x00, 0x01, 0x02}))
}

func TestOpen(t *testing.T) {
	b, err := Open("memory", "")
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, b)
	require.NoError(t, b.Ping(context.Background()))
	require.NoError(t, b.Close())

	_, err = Open("sqlite", "")
	require.ErrorContains(t, err, "unknown store driver")
}
