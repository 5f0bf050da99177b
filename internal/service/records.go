package service

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"licensing-ledger/internal/domain"
	"licensing-ledger/internal/storage"
)

func (s *Service) GetUser(ctx context.Context, id int64) (domain.UserIdentity, error) {
	var u domain.UserIdentity
	err := s.store.InTx(ctx, func(r storage.Repository) error {
		var err error
		u, err = r.GetUser(ctx, id)
		return err
	})
	return u, err
}

func (s *Service) CreateUser(ctx context.Context, u domain.UserIdentity) (domain.UserIdentity, error) {
	err := s.store.InTx(ctx, func(r storage.Repository) error {
		return r.CreateUser(ctx, &u)
	})
	return u, err
}

// RemoveUser deletes a user account. Proposals assigned to the user keep
// their status and lose the assignment.
func (s *Service) RemoveUser(ctx context.Context, id int64) error {
	err := s.store.InTx(ctx, func(r storage.Repository) error {
		return r.RemoveUser(ctx, id)
	})
	if err != nil {
		s.logger.WithField("user", id).WithError(err).Warn("remove user rejected")
		return err
	}
	s.logger.WithField("user", id).Info("user removed")
	return nil
}

// RegisterTemporaryDocument records an upload in its collection, creating
// the collection on first use.
func (s *Service) RegisterTemporaryDocument(ctx context.Context, collectionID uuid.UUID, objectKey string) (domain.TemporaryDocument, error) {
	now := s.now()
	doc := domain.TemporaryDocument{
		CollectionID: collectionID,
		Document: domain.Document{
			Name:         storage.Basename(objectKey),
			Path:         objectKey,
			UploadedDate: now,
		},
	}
	err := s.store.InTx(ctx, func(r storage.Repository) error {
		if err := r.CreateTemporaryCollection(ctx, domain.TemporaryDocumentCollection{ID: collectionID, Created: now}); err != nil {
			return errors.Wrap(err, "create temporary collection")
		}
		return r.AddTemporaryDocument(ctx, &doc)
	})
	if err != nil {
		return domain.TemporaryDocument{}, err
	}
	s.logger.WithFields(logrus.Fields{
		"collection": collectionID.String(),
		"object_key": objectKey,
	}).Info("temporary document registered")
	return doc, nil
}

func (s *Service) GetTemporaryCollection(ctx context.Context, id uuid.UUID) (domain.TemporaryDocumentCollection, error) {
	var c domain.TemporaryDocumentCollection
	err := s.store.InTx(ctx, func(r storage.Repository) error {
		var err error
		c, err = r.GetTemporaryCollection(ctx, id)
		return err
	})
	return c, err
}

// PurgeTemporaryCollection deletes a collection and its stored files.
func (s *Service) PurgeTemporaryCollection(ctx context.Context, id uuid.UUID) error {
	var paths []string
	err := s.store.InTx(ctx, func(r storage.Repository) error {
		c, err := r.GetTemporaryCollection(ctx, id)
		if err != nil {
			return err
		}
		paths = c.Paths()
		return r.DeleteTemporaryCollection(ctx, id)
	})
	if err != nil {
		return err
	}
	s.removeDocuments(ctx, paths)
	return nil
}

// PurgeOrphanedCollections removes collections created before cutoff that
// no proposal claimed.
func (s *Service) PurgeOrphanedCollections(ctx context.Context, cutoff time.Time) (int, error) {
	var paths []string
	purged := 0
	err := s.store.InTx(ctx, func(r storage.Repository) error {
		paths, purged = paths[:0], 0
		orphans, err := r.OrphanedTemporaryCollections(ctx, cutoff)
		if err != nil {
			return errors.Wrap(err, "list orphaned collections")
		}
		for _, c := range orphans {
			if err := r.DeleteTemporaryCollection(ctx, c.ID); err != nil {
				return errors.Wrapf(err, "delete collection %s", c.ID)
			}
			paths = append(paths, c.Paths()...)
			purged++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.removeDocuments(ctx, paths)
	if purged > 0 {
		s.logger.WithField("collections", purged).Info("orphaned temporary collections purged")
	}
	return purged, nil
}

// removeDocuments runs after the owning rows are gone. A failure leaves
// unreferenced files behind and is only logged.
func (s *Service) removeDocuments(ctx context.Context, paths []string) {
	if s.docs == nil || len(paths) == 0 {
		return
	}
	if err := s.docs.RemoveDocuments(ctx, paths); err != nil {
		s.logger.WithError(err).WithField("objects", len(paths)).Error("remove stored documents")
	}
}

func (s *Service) ScheduleMaintenance(ctx context.Context, m domain.SystemMaintenance) (domain.SystemMaintenance, error) {
	if err := domain.ValidateStruct(m).Err(); err != nil {
		return domain.SystemMaintenance{}, err
	}
	err := s.store.InTx(ctx, func(r storage.Repository) error {
		return r.CreateMaintenance(ctx, &m)
	})
	return m, err
}

func (s *Service) UpcomingMaintenance(ctx context.Context) ([]domain.SystemMaintenance, error) {
	var out []domain.SystemMaintenance
	now := s.now()
	err := s.store.InTx(ctx, func(r storage.Repository) error {
		var err error
		out, err = r.UpcomingMaintenance(ctx, now)
		return err
	})
	return out, err
}

// LogCommunication records a communication against a proposal or approval.
// The acting user is recorded as staff unless the entry names someone.
func (s *Service) LogCommunication(ctx context.Context, actor int64, e domain.CommunicationLogEntry) (domain.CommunicationLogEntry, error) {
	if e.Type == "" {
		e.Type = domain.DefaultCommunicationType
	}
	if err := e.Validate().Err(); err != nil {
		return domain.CommunicationLogEntry{}, err
	}
	if e.StaffID == nil {
		e.StaffID = &actor
	}
	e.ID = 0
	e.Created = s.now()
	err := s.store.InTx(ctx, func(r storage.Repository) error {
		if err := recordExists(ctx, r, e.Record, e.RecordID); err != nil {
			return err
		}
		return r.AppendCommunication(ctx, &e)
	})
	if err != nil {
		return domain.CommunicationLogEntry{}, err
	}
	s.logger.WithFields(logrus.Fields{
		"record":    e.Record,
		"record_id": e.RecordID,
		"log_type":  e.Type,
		"actor":     actor,
	}).Info("communication logged")
	return e, nil
}

func (s *Service) Communications(ctx context.Context, record domain.RecordKind, id int64) ([]domain.CommunicationLogEntry, error) {
	var out []domain.CommunicationLogEntry
	err := s.store.InTx(ctx, func(r storage.Repository) error {
		if err := recordExists(ctx, r, record, id); err != nil {
			return err
		}
		var err error
		out, err = r.ListCommunications(ctx, record, id)
		return err
	})
	return out, err
}

func (s *Service) CreateApplicationType(ctx context.Context, t domain.ApplicationType) (domain.ApplicationType, error) {
	if err := t.Validate().Err(); err != nil {
		return domain.ApplicationType{}, err
	}
	t.ApplicationFee = t.ApplicationFee.Round(2)
	err := s.store.InTx(ctx, func(r storage.Repository) error {
		return r.CreateApplicationType(ctx, &t)
	})
	return t, err
}

// ApplicationTypes lists application types in display order. Hidden types
// are left out unless includeHidden is set.
func (s *Service) ApplicationTypes(ctx context.Context, includeHidden bool) ([]domain.ApplicationType, error) {
	var all []domain.ApplicationType
	err := s.store.InTx(ctx, func(r storage.Repository) error {
		var err error
		all, err = r.ListApplicationTypes(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.ApplicationType, 0, len(all))
	for _, t := range all {
		if t.Visible || includeHidden {
			out = append(out, t)
		}
	}
	domain.SortApplicationTypes(out)
	return out, nil
}
