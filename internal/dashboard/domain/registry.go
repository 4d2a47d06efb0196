package domain

import "time"

// The registry records are deliberately flat: they carry no behaviour beyond
// field storage. Both the CRUD API and the spreadsheet importer read and
// write them through the same store.

// Partner is a consortium member on the master register.
type Partner struct {
	ID           string     `json:"id"`
	PartnerID    string     `json:"partnerId,omitempty"` // natural key, e.g. "P-07"
	Name         string     `json:"name"`
	Type         string     `json:"type"` // e.g. "Academic", "Industry", "SME"
	Country      string     `json:"country,omitempty"`
	ContactName  string     `json:"contactName,omitempty"`
	ContactEmail string     `json:"contactEmail"`
	Phone        string     `json:"phone,omitempty"`
	Status       string     `json:"status,omitempty"`
	JoinedAt     *time.Time `json:"joinedAt,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// ExternalPartner is an organisation outside the consortium that the project
// collaborates with.
type ExternalPartner struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Organisation string    `json:"organisation,omitempty"`
	Country      string    `json:"country,omitempty"`
	ContactEmail string    `json:"contactEmail,omitempty"`
	Involvement  string    `json:"involvement,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Personnel is a named person working under a partner.
type Personnel struct {
	ID          string     `json:"id"`
	PartnerID   string     `json:"partnerId,omitempty"`
	PartnerName string     `json:"partnerName,omitempty"`
	Name        string     `json:"name"`
	Email       string     `json:"email"` // natural key
	RoleTitle   string     `json:"roleTitle,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Deliverable is a numbered project deliverable owned by a partner.
// PartnerID + Number form the composite natural key.
type Deliverable struct {
	ID          string     `json:"id"`
	PartnerID   string     `json:"partnerId"`
	PartnerName string     `json:"partnerName,omitempty"`
	Number      string     `json:"number"` // e.g. "D4.2"
	Title       string     `json:"title,omitempty"`
	WorkPackage string     `json:"workPackage,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
	Status      string     `json:"status,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// FinancialSummary is a per-partner, per-period funding snapshot.
type FinancialSummary struct {
	ID          string    `json:"id"`
	PartnerID   string    `json:"partnerId"`
	PartnerName string    `json:"partnerName,omitempty"`
	Period      string    `json:"period,omitempty"` // e.g. "2025-Q2"
	Budget      *float64  `json:"budget,omitempty"`
	Claimed     *float64  `json:"claimed,omitempty"`
	Paid        *float64  `json:"paid,omitempty"`
	Currency    string    `json:"currency,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ComplianceRecord tracks a partner's reporting obligation.
type ComplianceRecord struct {
	ID          string     `json:"id"`
	PartnerID   string     `json:"partnerId"`
	PartnerName string     `json:"partnerName,omitempty"`
	Requirement string     `json:"requirement"`
	Status      string     `json:"status,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
