package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"licensing-ledger/internal/domain"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an already opened handle.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) InTx(ctx context.Context, fn func(Repository) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&pgRepo{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

type pgRepo struct {
	q querier
}

// mapError translates driver errors into domain errors.
func mapError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(domain.ErrNotFound, op)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			switch pqErr.Constraint {
			case "approvals_lodgement_issue_key":
				return errors.Wrapf(domain.ErrDuplicateLodgement, "%s: %s", op, pqErr.Detail)
			case "application_types_name_key":
				return errors.Wrapf(domain.ErrValidation, "%s: %s", op, pqErr.Detail)
			}
		case pqForeignKeyViolation:
			return errors.Wrapf(domain.ErrProtectedReference, "%s: %s", op, pqErr.Constraint)
		}
	}
	return errors.Wrap(err, op)
}

func jsonArg(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func jsonValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func int64Ref(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func timeRef(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	v := n.Time
	return &v
}

func rawRef(b []byte) json.RawMessage {
	if b == nil {
		return nil
	}
	return append(json.RawMessage(nil), b...)
}

const proposalColumns = `id, lodgement_number, lodgement_sequence, lodgement_date, title, application_type, applicant_type,
	customer_status, processing_status, id_check_status, compliance_check_status, character_check_status, review_status,
	submitter_id, proxy_applicant_id, assigned_officer_id, assigned_approver_id, approval_id, previous_application_id,
	data, assessor_data, comment_data, schema, proposed_issuance_approval,
	proposed_decline_status, COALESCE(temporary_collection_id::text, ''), migrated`

func scanProposal(row scanner) (domain.Proposal, error) {
	var (
		p                                                   domain.Proposal
		lodgementDate                                       sql.NullTime
		submitter, proxy, officer, approver, approval, prev sql.NullInt64
		data, assessor, comment, schema, issuance           []byte
	)
	if err := row.Scan(
		&p.ID, &p.LodgementNumber, &p.LodgementSequence, &lodgementDate, &p.Title, &p.ApplicationKind, &p.ApplicantType,
		&p.CustomerStatus, &p.ProcessingStatus, &p.IDCheckStatus, &p.ComplianceCheckStatus, &p.CharacterCheckStatus, &p.ReviewStatus,
		&submitter, &proxy, &officer, &approver, &approval, &prev,
		&data, &assessor, &comment, &schema, &issuance,
		&p.ProposedDeclineStatus, &p.TemporaryCollectionID, &p.Migrated,
	); err != nil {
		return domain.Proposal{}, err
	}
	p.LodgementDate = timeRef(lodgementDate)
	p.SubmitterID = int64Ref(submitter)
	p.ProxyApplicantID = int64Ref(proxy)
	p.AssignedOfficerID = int64Ref(officer)
	p.AssignedApproverID = int64Ref(approver)
	p.ApprovalID = int64Ref(approval)
	p.PreviousApplicationID = int64Ref(prev)
	p.Data = rawRef(data)
	p.AssessorData = rawRef(assessor)
	p.CommentData = rawRef(comment)
	p.Schema = rawRef(schema)
	p.ProposedIssuanceApproval = rawRef(issuance)
	return p, nil
}

func (r *pgRepo) CreateProposal(ctx context.Context, p *domain.Proposal) error {
	row := r.q.QueryRowContext(ctx, `
		INSERT INTO proposals (
			lodgement_sequence, lodgement_date, title, application_type, applicant_type,
			customer_status, processing_status, id_check_status, compliance_check_status, character_check_status, review_status,
			submitter_id, proxy_applicant_id, assigned_officer_id, assigned_approver_id, approval_id, previous_application_id,
			data, assessor_data, comment_data, schema, proposed_issuance_approval,
			proposed_decline_status, temporary_collection_id, migrated
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18::jsonb, $19::jsonb, $20::jsonb, $21::jsonb, $22::jsonb, $23, $24::uuid, $25)
		RETURNING id
	`,
		p.LodgementSequence, p.LodgementDate, p.Title, p.ApplicationKind, p.ApplicantType,
		p.CustomerStatus, p.ProcessingStatus, p.IDCheckStatus, p.ComplianceCheckStatus, p.CharacterCheckStatus, p.ReviewStatus,
		p.SubmitterID, p.ProxyApplicantID, p.AssignedOfficerID, p.AssignedApproverID, p.ApprovalID, p.PreviousApplicationID,
		jsonArg(p.Data), jsonArg(p.AssessorData), jsonArg(p.CommentData), jsonArg(p.Schema), jsonArg(p.ProposedIssuanceApproval),
		p.ProposedDeclineStatus, nullString(p.TemporaryCollectionID), p.Migrated,
	)
	if err := row.Scan(&p.ID); err != nil {
		return mapError(err, "insert proposal")
	}
	number, err := domain.AllocateLodgementNumber(p, p.ID)
	if err != nil {
		return err
	}
	_, err = r.q.ExecContext(ctx, `UPDATE proposals SET lodgement_number = $2 WHERE id = $1`, p.ID, number)
	return mapError(err, "set proposal lodgement number")
}

func (r *pgRepo) GetProposal(ctx context.Context, id int64) (domain.Proposal, error) {
	return r.selectProposal(ctx, id, "")
}

func (r *pgRepo) LockProposal(ctx context.Context, id int64) (domain.Proposal, error) {
	return r.selectProposal(ctx, id, " FOR UPDATE")
}

func (r *pgRepo) selectProposal(ctx context.Context, id int64, lock string) (domain.Proposal, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id = $1`+lock, id)
	p, err := scanProposal(row)
	if err != nil {
		return domain.Proposal{}, mapError(err, "get proposal")
	}
	return p, nil
}

// UpdateProposal refuses to rewrite an allocated lodgement number.
func (r *pgRepo) UpdateProposal(ctx context.Context, p domain.Proposal) error {
	var current string
	err := r.q.QueryRowContext(ctx, `SELECT COALESCE(lodgement_number, '') FROM proposals WHERE id = $1 FOR UPDATE`, p.ID).Scan(&current)
	if err != nil {
		return mapError(err, "lock proposal")
	}
	if current != "" && current != p.LodgementNumber {
		return &domain.ImmutableFieldError{Field: "lodgement_number", Current: current, Attempted: p.LodgementNumber}
	}

	res, err := r.q.ExecContext(ctx, `
		UPDATE proposals SET
			lodgement_sequence = $2, lodgement_date = $3, title = $4, applicant_type = $5,
			customer_status = $6, processing_status = $7, id_check_status = $8, compliance_check_status = $9,
			character_check_status = $10, review_status = $11,
			submitter_id = $12, proxy_applicant_id = $13, assigned_officer_id = $14, assigned_approver_id = $15,
			approval_id = $16,
			data = $17::jsonb, assessor_data = $18::jsonb, comment_data = $19::jsonb,
			proposed_issuance_approval = $20::jsonb, proposed_decline_status = $21,
			temporary_collection_id = $22::uuid,
			updated_at = NOW()
		WHERE id = $1
	`,
		p.ID, p.LodgementSequence, p.LodgementDate, p.Title, p.ApplicantType,
		p.CustomerStatus, p.ProcessingStatus, p.IDCheckStatus, p.ComplianceCheckStatus,
		p.CharacterCheckStatus, p.ReviewStatus,
		p.SubmitterID, p.ProxyApplicantID, p.AssignedOfficerID, p.AssignedApproverID,
		p.ApprovalID,
		jsonArg(p.Data), jsonArg(p.AssessorData), jsonArg(p.CommentData),
		jsonArg(p.ProposedIssuanceApproval), p.ProposedDeclineStatus,
		nullString(p.TemporaryCollectionID),
	)
	if err != nil {
		return mapError(err, "update proposal")
	}
	return expectOneRow(res, "proposal", p.ID)
}

func expectOneRow(res sql.Result, what string, id any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return notFound(what, id)
	}
	return nil
}

func (r *pgRepo) DeleteProposal(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM proposals WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "delete proposal")
	}
	return expectOneRow(res, "proposal", id)
}

const approvalColumns = `id, COALESCE(lodgement_number, ''), status, replaced_by_id, current_proposal_id, proxy_applicant_id,
	issue_date, original_issue_date, start_date, expiry_date,
	surrender_details, suspension_details, cancellation_details, cancellation_date,
	set_to_cancel, set_to_suspend, set_to_surrender,
	renewal_sent, reissued, apiary_approval, no_annual_rental_fee_until, extracted_fields, migrated`

func scanApproval(row scanner) (domain.Approval, error) {
	var (
		a                                    domain.Approval
		replacedBy, currentProposal, proxy   sql.NullInt64
		originalIssue, cancelled, noRentalTo sql.NullTime
		surrender, suspension, extracted     []byte
	)
	if err := row.Scan(
		&a.ID, &a.LodgementNumber, &a.Status, &replacedBy, &currentProposal, &proxy,
		&a.IssueDate, &originalIssue, &a.StartDate, &a.ExpiryDate,
		&surrender, &suspension, &a.CancellationDetails, &cancelled,
		&a.SetToCancel, &a.SetToSuspend, &a.SetToSurrender,
		&a.RenewalSent, &a.Reissued, &a.ApiaryApproval, &noRentalTo, &extracted, &a.Migrated,
	); err != nil {
		return domain.Approval{}, err
	}
	a.ReplacedByID = int64Ref(replacedBy)
	a.CurrentProposalID = int64Ref(currentProposal)
	a.ProxyApplicantID = int64Ref(proxy)
	a.OriginalIssueDate = timeRef(originalIssue)
	a.CancellationDate = timeRef(cancelled)
	a.NoAnnualRentalFeeUntil = timeRef(noRentalTo)
	a.ExtractedFields = rawRef(extracted)
	if surrender != nil {
		a.SurrenderDetails = &domain.SurrenderDetails{}
		if err := json.Unmarshal(surrender, a.SurrenderDetails); err != nil {
			return domain.Approval{}, errors.Wrap(err, "decode surrender details")
		}
	}
	if suspension != nil {
		a.SuspensionDetails = &domain.SuspensionDetails{}
		if err := json.Unmarshal(suspension, a.SuspensionDetails); err != nil {
			return domain.Approval{}, errors.Wrap(err, "decode suspension details")
		}
	}
	return a, nil
}

func approvalDetailArgs(a *domain.Approval) (surrender, suspension any, err error) {
	if a.SurrenderDetails != nil {
		if surrender, err = jsonValue(a.SurrenderDetails); err != nil {
			return nil, nil, errors.Wrap(err, "encode surrender details")
		}
	}
	if a.SuspensionDetails != nil {
		if suspension, err = jsonValue(a.SuspensionDetails); err != nil {
			return nil, nil, errors.Wrap(err, "encode suspension details")
		}
	}
	return surrender, suspension, nil
}

func (r *pgRepo) CreateApproval(ctx context.Context, a *domain.Approval) error {
	surrender, suspension, err := approvalDetailArgs(a)
	if err != nil {
		return err
	}
	row := r.q.QueryRowContext(ctx, `
		INSERT INTO approvals (
			lodgement_number, status, replaced_by_id, current_proposal_id, proxy_applicant_id,
			issue_date, original_issue_date, start_date, expiry_date,
			surrender_details, suspension_details, cancellation_details, cancellation_date,
			set_to_cancel, set_to_suspend, set_to_surrender,
			renewal_sent, reissued, apiary_approval, no_annual_rental_fee_until, extracted_fields, migrated
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11::jsonb, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21::jsonb, $22)
		RETURNING id
	`,
		nullString(a.LodgementNumber), a.Status, a.ReplacedByID, a.CurrentProposalID, a.ProxyApplicantID,
		a.IssueDate, a.OriginalIssueDate, a.StartDate, a.ExpiryDate,
		surrender, suspension, a.CancellationDetails, a.CancellationDate,
		a.SetToCancel, a.SetToSuspend, a.SetToSurrender,
		a.RenewalSent, a.Reissued, a.ApiaryApproval, a.NoAnnualRentalFeeUntil, jsonArg(a.ExtractedFields), a.Migrated,
	)
	if err := row.Scan(&a.ID); err != nil {
		return mapError(err, "insert approval")
	}
	number, err := domain.AllocateLodgementNumber(a, a.ID)
	if err != nil {
		return err
	}
	if _, err := r.q.ExecContext(ctx, `UPDATE approvals SET lodgement_number = $2 WHERE id = $1`, a.ID, number); err != nil {
		return mapError(err, "set approval lodgement number")
	}
	return r.saveApiarySites(ctx, a)
}

func (r *pgRepo) saveApiarySites(ctx context.Context, a *domain.Approval) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM approval_apiary_sites WHERE approval_id = $1`, a.ID); err != nil {
		return mapError(err, "clear apiary sites")
	}
	for i := range a.ApiarySites {
		site := &a.ApiarySites[i]
		site.ApprovalID = a.ID
		_, err := r.q.ExecContext(ctx, `
			INSERT INTO approval_apiary_sites (approval_id, apiary_site_id, site_status, site_category, licensed_site, latitude, longitude)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, site.ApprovalID, site.ApiarySiteID, site.SiteStatus, site.SiteCategory, site.Licensed, site.Latitude, site.Longitude)
		if err != nil {
			return mapError(err, "insert apiary site")
		}
	}
	return nil
}

func (r *pgRepo) loadApiarySites(ctx context.Context, a *domain.Approval) error {
	rows, err := r.q.QueryContext(ctx, `
		SELECT approval_id, apiary_site_id, site_status, site_category, licensed_site, latitude, longitude
		FROM approval_apiary_sites
		WHERE approval_id = $1
		ORDER BY apiary_site_id
	`, a.ID)
	if err != nil {
		return mapError(err, "list apiary sites")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			site     domain.ApiarySiteOnApproval
			lat, lng sql.NullFloat64
		)
		if err := rows.Scan(&site.ApprovalID, &site.ApiarySiteID, &site.SiteStatus, &site.SiteCategory, &site.Licensed, &lat, &lng); err != nil {
			return errors.Wrap(err, "scan apiary site")
		}
		if lat.Valid {
			site.Latitude = &lat.Float64
		}
		if lng.Valid {
			site.Longitude = &lng.Float64
		}
		a.ApiarySites = append(a.ApiarySites, site)
	}
	return rows.Err()
}

func (r *pgRepo) GetApproval(ctx context.Context, id int64) (domain.Approval, error) {
	return r.selectApproval(ctx, id, "")
}

func (r *pgRepo) LockApproval(ctx context.Context, id int64) (domain.Approval, error) {
	return r.selectApproval(ctx, id, " FOR UPDATE")
}

func (r *pgRepo) selectApproval(ctx context.Context, id int64, lock string) (domain.Approval, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+approvalColumns+` FROM approvals WHERE id = $1`+lock, id)
	a, err := scanApproval(row)
	if err != nil {
		return domain.Approval{}, mapError(err, "get approval")
	}
	if err := r.loadApiarySites(ctx, &a); err != nil {
		return domain.Approval{}, err
	}
	return a, nil
}

// UpdateApproval refuses to rewrite the lodgement number or an
// original_issue_date that is already set.
func (r *pgRepo) UpdateApproval(ctx context.Context, a domain.Approval) error {
	var (
		number   string
		original sql.NullTime
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT COALESCE(lodgement_number, ''), original_issue_date FROM approvals WHERE id = $1 FOR UPDATE
	`, a.ID).Scan(&number, &original)
	if err != nil {
		return mapError(err, "lock approval")
	}
	if number != "" && number != a.LodgementNumber {
		return &domain.ImmutableFieldError{Field: "lodgement_number", Current: number, Attempted: a.LodgementNumber}
	}
	if original.Valid && (a.OriginalIssueDate == nil || !domain.DateOf(original.Time).Equal(domain.DateOf(*a.OriginalIssueDate))) {
		attempted := ""
		if a.OriginalIssueDate != nil {
			attempted = a.OriginalIssueDate.Format(time.DateOnly)
		}
		return &domain.ImmutableFieldError{Field: "original_issue_date", Current: original.Time.Format(time.DateOnly), Attempted: attempted}
	}

	surrender, suspension, err := approvalDetailArgs(&a)
	if err != nil {
		return err
	}
	res, err := r.q.ExecContext(ctx, `
		UPDATE approvals SET
			status = $2, replaced_by_id = $3, current_proposal_id = $4, proxy_applicant_id = $5,
			issue_date = $6, original_issue_date = $7, start_date = $8, expiry_date = $9,
			surrender_details = $10::jsonb, suspension_details = $11::jsonb,
			cancellation_details = $12, cancellation_date = $13,
			set_to_cancel = $14, set_to_suspend = $15, set_to_surrender = $16,
			renewal_sent = $17, reissued = $18, no_annual_rental_fee_until = $19,
			updated_at = NOW()
		WHERE id = $1
	`,
		a.ID, a.Status, a.ReplacedByID, a.CurrentProposalID, a.ProxyApplicantID,
		a.IssueDate, a.OriginalIssueDate, a.StartDate, a.ExpiryDate,
		surrender, suspension,
		a.CancellationDetails, a.CancellationDate,
		a.SetToCancel, a.SetToSuspend, a.SetToSurrender,
		a.RenewalSent, a.Reissued, a.NoAnnualRentalFeeUntil,
	)
	if err != nil {
		return mapError(err, "update approval")
	}
	return expectOneRow(res, "approval", a.ID)
}

func (r *pgRepo) ApprovalsDueForExpiry(ctx context.Context, today time.Time) ([]domain.Approval, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+approvalColumns+`
		FROM approvals
		WHERE status = $1 AND expiry_date < $2
		ORDER BY id
		FOR UPDATE
	`, domain.ApprovalCurrent, domain.DateOf(today))
	if err != nil {
		return nil, mapError(err, "list approvals due for expiry")
	}
	defer rows.Close()

	due := make([]domain.Approval, 0)
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan approval")
		}
		due = append(due, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return due, nil
}

func (r *pgRepo) CreateUser(ctx context.Context, u *domain.UserIdentity) error {
	row := r.q.QueryRowContext(ctx, `
		INSERT INTO users (email, first_name, last_name, title, organisation)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, u.Email, u.FirstName, u.LastName, u.Title, u.Organisation)
	return mapError(row.Scan(&u.ID), "insert user")
}

func (r *pgRepo) GetUser(ctx context.Context, id int64) (domain.UserIdentity, error) {
	var u domain.UserIdentity
	row := r.q.QueryRowContext(ctx, `
		SELECT id, email, first_name, last_name, title, organisation
		FROM users
		WHERE id = $1
	`, id)
	if err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Title, &u.Organisation); err != nil {
		return domain.UserIdentity{}, mapError(err, "get user")
	}
	return u, nil
}

// RemoveUser relies on ON DELETE SET NULL for staff assignments. Applicant
// references have no delete action, so the driver reports a foreign key
// violation for them.
func (r *pgRepo) RemoveUser(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "delete user")
	}
	return expectOneRow(res, "user", id)
}

func (r *pgRepo) AppendAction(ctx context.Context, a *domain.UserAction) error {
	row := r.q.QueryRowContext(ctx, `
		INSERT INTO user_actions (record, record_id, who, occurred_at, what)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, a.Record, a.RecordID, a.Who, a.When, a.What)
	return mapError(row.Scan(&a.ID), "insert user action")
}

func (r *pgRepo) ListActions(ctx context.Context, record domain.RecordKind, id int64) ([]domain.UserAction, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, record, record_id, who, occurred_at, what
		FROM user_actions
		WHERE record = $1 AND record_id = $2
		ORDER BY occurred_at ASC, id ASC
	`, record, id)
	if err != nil {
		return nil, mapError(err, "list user actions")
	}
	defer rows.Close()

	actions := make([]domain.UserAction, 0)
	for rows.Next() {
		var a domain.UserAction
		if err := rows.Scan(&a.ID, &a.Record, &a.RecordID, &a.Who, &a.When, &a.What); err != nil {
			return nil, errors.Wrap(err, "scan user action")
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return actions, nil
}

func (r *pgRepo) AppendCommunication(ctx context.Context, e *domain.CommunicationLogEntry) error {
	row := r.q.QueryRowContext(ctx, `
		INSERT INTO communication_logs (
			record, record_id, to_address, from_address, cc, log_type, reference, subject, text,
			customer_id, staff_id, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`, e.Record, e.RecordID, e.To, e.From, e.CC, e.Type, e.Reference, e.Subject, e.Text,
		e.CustomerID, e.StaffID, e.Created)
	return mapError(row.Scan(&e.ID), "insert communication log entry")
}

func (r *pgRepo) ListCommunications(ctx context.Context, record domain.RecordKind, id int64) ([]domain.CommunicationLogEntry, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, record, record_id, to_address, from_address, cc, log_type, reference, subject, text,
			customer_id, staff_id, created_at
		FROM communication_logs
		WHERE record = $1 AND record_id = $2
		ORDER BY created_at ASC, id ASC
	`, record, id)
	if err != nil {
		return nil, mapError(err, "list communication log")
	}
	defer rows.Close()

	entries := make([]domain.CommunicationLogEntry, 0)
	for rows.Next() {
		var (
			e               domain.CommunicationLogEntry
			customer, staff sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.Record, &e.RecordID, &e.To, &e.From, &e.CC, &e.Type, &e.Reference, &e.Subject, &e.Text,
			&customer, &staff, &e.Created); err != nil {
			return nil, errors.Wrap(err, "scan communication log entry")
		}
		e.CustomerID = int64Ref(customer)
		e.StaffID = int64Ref(staff)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *pgRepo) CreateApplicationType(ctx context.Context, t *domain.ApplicationType) error {
	row := r.q.QueryRowContext(ctx, `
		INSERT INTO application_types (
			name, display_order, visible, application_fee, oracle_code_application, is_gst_exempt, domain_used
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, t.Name, t.Order, t.Visible, t.ApplicationFee, t.OracleCodeApplication, t.IsGSTExempt, t.DomainUsed)
	return mapError(row.Scan(&t.ID), "insert application type")
}

func (r *pgRepo) ListApplicationTypes(ctx context.Context) ([]domain.ApplicationType, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, name, display_order, visible, application_fee, oracle_code_application, is_gst_exempt, domain_used
		FROM application_types
		ORDER BY display_order ASC, name ASC
	`)
	if err != nil {
		return nil, mapError(err, "list application types")
	}
	defer rows.Close()

	types := make([]domain.ApplicationType, 0)
	for rows.Next() {
		var t domain.ApplicationType
		if err := rows.Scan(&t.ID, &t.Name, &t.Order, &t.Visible, &t.ApplicationFee, &t.OracleCodeApplication, &t.IsGSTExempt, &t.DomainUsed); err != nil {
			return nil, errors.Wrap(err, "scan application type")
		}
		types = append(types, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return types, nil
}

func (r *pgRepo) CreateTemporaryCollection(ctx context.Context, c domain.TemporaryDocumentCollection) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO temporary_document_collections (id, created_at)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`, c.ID, c.Created)
	return mapError(err, "insert temporary collection")
}

func (r *pgRepo) AddTemporaryDocument(ctx context.Context, d *domain.TemporaryDocument) error {
	row := r.q.QueryRowContext(ctx, `
		INSERT INTO temporary_documents (collection_id, name, description, path, uploaded_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, d.CollectionID, d.Name, d.Description, d.Path, d.UploadedDate)
	if err := row.Scan(&d.ID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
			return notFound("temporary document collection", d.CollectionID)
		}
		return mapError(err, "insert temporary document")
	}
	return nil
}

func (r *pgRepo) GetTemporaryCollection(ctx context.Context, id uuid.UUID) (domain.TemporaryDocumentCollection, error) {
	c := domain.TemporaryDocumentCollection{ID: id}
	row := r.q.QueryRowContext(ctx, `SELECT created_at FROM temporary_document_collections WHERE id = $1`, id)
	if err := row.Scan(&c.Created); err != nil {
		return domain.TemporaryDocumentCollection{}, mapError(err, "get temporary collection")
	}
	docs, err := r.temporaryDocuments(ctx, []uuid.UUID{id})
	if err != nil {
		return domain.TemporaryDocumentCollection{}, err
	}
	c.Documents = docs[id]
	return c, nil
}

func (r *pgRepo) temporaryDocuments(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]domain.TemporaryDocument, error) {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, id.String())
	}
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, collection_id, name, description, path, uploaded_date
		FROM temporary_documents
		WHERE collection_id = ANY($1::uuid[])
		ORDER BY id
	`, pq.Array(keys))
	if err != nil {
		return nil, mapError(err, "list temporary documents")
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]domain.TemporaryDocument, len(ids))
	for rows.Next() {
		var d domain.TemporaryDocument
		if err := rows.Scan(&d.ID, &d.CollectionID, &d.Name, &d.Description, &d.Path, &d.UploadedDate); err != nil {
			return nil, errors.Wrap(err, "scan temporary document")
		}
		out[d.CollectionID] = append(out[d.CollectionID], d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *pgRepo) DeleteTemporaryCollection(ctx context.Context, id uuid.UUID) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM temporary_document_collections WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "delete temporary collection")
	}
	return expectOneRow(res, "temporary document collection", id)
}

func (r *pgRepo) OrphanedTemporaryCollections(ctx context.Context, cutoff time.Time) ([]domain.TemporaryDocumentCollection, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT c.id, c.created_at
		FROM temporary_document_collections c
		WHERE c.created_at < $1
		  AND NOT EXISTS (SELECT 1 FROM proposals p WHERE p.temporary_collection_id = c.id)
		ORDER BY c.created_at ASC
	`, cutoff)
	if err != nil {
		return nil, mapError(err, "list orphaned temporary collections")
	}
	collections := make([]domain.TemporaryDocumentCollection, 0)
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var c domain.TemporaryDocumentCollection
		if err := rows.Scan(&c.ID, &c.Created); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "scan temporary collection")
		}
		collections = append(collections, c)
		ids = append(ids, c.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return collections, nil
	}

	docs, err := r.temporaryDocuments(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range collections {
		collections[i].Documents = docs[collections[i].ID]
	}
	return collections, nil
}

func (r *pgRepo) CreateMaintenance(ctx context.Context, m *domain.SystemMaintenance) error {
	row := r.q.QueryRowContext(ctx, `
		INSERT INTO system_maintenance (name, description, start_date, end_date)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, m.Name, m.Description, m.Start, m.End)
	return mapError(row.Scan(&m.ID), "insert system maintenance")
}

func (r *pgRepo) UpcomingMaintenance(ctx context.Context, now time.Time) ([]domain.SystemMaintenance, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, name, description, start_date, end_date
		FROM system_maintenance
		WHERE end_date > $1
		ORDER BY start_date ASC
	`, now)
	if err != nil {
		return nil, mapError(err, "list system maintenance")
	}
	defer rows.Close()

	windows := make([]domain.SystemMaintenance, 0)
	for rows.Next() {
		var m domain.SystemMaintenance
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.Start, &m.End); err != nil {
			return nil, errors.Wrap(err, "scan system maintenance")
		}
		windows = append(windows, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return windows, nil
}
