package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Region struct {
	ID           int64  `json:"id"`
	Name         string `json:"name" validate:"required,max=200"`
	ForestRegion bool   `json:"forest_region"`
}

func (r Region) String() string { return r.Name }

type District struct {
	ID          int64      `json:"id"`
	RegionID    int64      `json:"region" validate:"required"`
	Name        string     `json:"name" validate:"required,max=200"`
	Code        string     `json:"code" validate:"max=3"`
	ArchiveDate *time.Time `json:"archive_date,omitempty"`
}

func (d District) String() string { return d.Name }

// Archived reports whether the district was archived on or before today.
func (d District) Archived(today time.Time) bool {
	return d.ArchiveDate != nil && !DateOf(*d.ArchiveDate).After(DateOf(today))
}

func SortDistricts(ds []District) {
	sort.SliceStable(ds, func(i, j int) bool { return ds[i].Name < ds[j].Name })
}

type ApplicationType struct {
	ID                    int64           `json:"id"`
	Name                  string          `json:"name" validate:"required,max=64"`
	Order                 int             `json:"order" validate:"gte=0"`
	Visible               bool            `json:"visible"`
	ApplicationFee        decimal.Decimal `json:"application_fee"`
	OracleCodeApplication string          `json:"oracle_code_application" validate:"max=50"`
	IsGSTExempt           bool            `json:"is_gst_exempt"`
	DomainUsed            string          `json:"domain_used,omitempty" validate:"max=40"`
}

func (a ApplicationType) String() string { return a.Name }

func (a ApplicationType) Validate() ValidationResult {
	res := ValidateStruct(a)
	if a.ApplicationFee.IsNegative() {
		res.FailedRules = append(res.FailedRules, "application_type.application_fee_gte")
	}
	return res
}

// TotalFee adds GST to the application fee unless the type is exempt. The
// result is rounded to cents.
func (a ApplicationType) TotalFee(gstRate decimal.Decimal) decimal.Decimal {
	if a.IsGSTExempt {
		return a.ApplicationFee.Round(2)
	}
	return a.ApplicationFee.Add(a.ApplicationFee.Mul(gstRate)).Round(2)
}

// SortApplicationTypes orders by display order, then name.
func SortApplicationTypes(ts []ApplicationType) {
	sort.SliceStable(ts, func(i, j int) bool {
		if ts[i].Order != ts[j].Order {
			return ts[i].Order < ts[j].Order
		}
		return ts[i].Name < ts[j].Name
	})
}

type CommunicationLogEntry struct {
	ID         int64             `json:"id"`
	Record     RecordKind        `json:"record"`
	RecordID   int64             `json:"record_id"`
	To         string            `json:"to,omitempty"`
	From       string            `json:"fromm,omitempty"`
	CC         string            `json:"cc,omitempty"`
	Type       CommunicationType `json:"log_type"`
	Reference  string            `json:"reference,omitempty" validate:"max=100"`
	Subject    string            `json:"subject,omitempty" validate:"max=200"`
	Text       string            `json:"text,omitempty" validate:"required_without=Subject"`
	CustomerID *int64            `json:"customer,omitempty"`
	StaffID    *int64            `json:"staff,omitempty"`
	Created    time.Time         `json:"created"`
}

// NewCommunicationLogEntry defaults the type to email.
func NewCommunicationLogEntry(record RecordKind, id int64, subject, text string, created time.Time) CommunicationLogEntry {
	return CommunicationLogEntry{
		Record:   record,
		RecordID: id,
		Type:     DefaultCommunicationType,
		Subject:  subject,
		Text:     text,
		Created:  created,
	}
}

func (e CommunicationLogEntry) Validate() ValidationResult {
	res := ValidateStruct(e)
	if !e.Type.IsValid() {
		res.FailedRules = append(res.FailedRules, "communication_log_entry.log_type_oneof")
	}
	return res
}

const maintenanceTimeLayout = "2006-01-02 15:04"

type SystemMaintenance struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name" validate:"required,max=100"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start_date" validate:"required"`
	End         time.Time `json:"end_date" validate:"required,gtfield=Start"`
}

func (m SystemMaintenance) DurationMinutes() int {
	return int(m.End.Sub(m.Start).Minutes())
}

func (m SystemMaintenance) ActiveAt(t time.Time) bool {
	return !t.Before(m.Start) && t.Before(m.End)
}

// Upcoming reports windows that have not finished by t.
func (m SystemMaintenance) Upcoming(t time.Time) bool {
	return t.Before(m.End)
}

func (m SystemMaintenance) String() string {
	return fmt.Sprintf("System Maintenance: %s (%s) - starting %s, ending %s",
		m.Name, m.Description, m.Start.Format(maintenanceTimeLayout), m.End.Format(maintenanceTimeLayout))
}

// UserIdentity is the read-only projection of a user account.
type UserIdentity struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Title        string `json:"title,omitempty"`
	Organisation string `json:"organisation,omitempty"`
}

func (u UserIdentity) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UserAction is one audit entry in a record's history.
type UserAction struct {
	ID       int64      `json:"id"`
	Record   RecordKind `json:"record"`
	RecordID int64      `json:"record_id"`
	Who      int64      `json:"who"`
	When     time.Time  `json:"when"`
	What     string     `json:"what"`
}

func (a UserAction) String() string {
	return fmt.Sprintf("%s (%d at %s)", a.What, a.Who, a.When.Format(time.RFC3339))
}
