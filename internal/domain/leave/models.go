package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

type LeaveType string

const (
	TypeAnnual         LeaveType = "annual"
	TypeSick           LeaveType = "sick"
	TypeUnpaid         LeaveType = "unpaid"
	TypeSpecialService LeaveType = "special_service"
	TypeTraining       LeaveType = "training"
	TypeStudy          LeaveType = "study"
	TypeMaternity      LeaveType = "maternity"
	TypePaternity      LeaveType = "paternity"
	TypeCompassionate  LeaveType = "compassionate"
)

// LeaveTypes lists every leave type in display order.
var LeaveTypes = []LeaveType{
	TypeAnnual,
	TypeSick,
	TypeUnpaid,
	TypeSpecialService,
	TypeTraining,
	TypeStudy,
	TypeMaternity,
	TypePaternity,
	TypeCompassionate,
}

func ParseLeaveType(raw string) (LeaveType, error) {
	t := LeaveType(raw)
	if !t.Valid() {
		return "", ErrInvalidLeaveType
	}
	return t, nil
}

func (t LeaveType) Valid() bool {
	for _, known := range LeaveTypes {
		if t == known {
			return true
		}
	}
	return false
}

// TracksCarryForward reports whether balances of this type keep a carry-forward portion with an expiry.
func (t LeaveType) TracksCarryForward() bool {
	switch t {
	case TypeAnnual, TypeSick, TypeSpecialService, TypeTraining, TypeStudy:
		return true
	default:
		return false
	}
}

type AccrualFrequency string

const (
	FrequencyMonthly   AccrualFrequency = "monthly"
	FrequencyQuarterly AccrualFrequency = "quarterly"
	FrequencyAnnual    AccrualFrequency = "annual"
)

// Months returns the length of one accrual period, or 0 for an unknown frequency.
func (f AccrualFrequency) Months() int {
	switch f {
	case FrequencyMonthly:
		return 1
	case FrequencyQuarterly:
		return 3
	case FrequencyAnnual:
		return 12
	default:
		return 0
	}
}

type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusRejected  RequestStatus = "rejected"
	StatusCancelled RequestStatus = "cancelled"
)

func (s RequestStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCancelled
}

type LevelStatus string

const (
	LevelPending  LevelStatus = "pending"
	LevelApproved LevelStatus = "approved"
	LevelRejected LevelStatus = "rejected"
)

type Outcome string

const (
	OutcomeApproved Outcome = "approved"
	OutcomeRejected Outcome = "rejected"
)

func (o Outcome) Valid() bool {
	return o == OutcomeApproved || o == OutcomeRejected
}

type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleHR       Role = "hr"
	RoleAdmin    Role = "system_admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleManager, RoleHR, RoleAdmin:
		return true
	}
	return false
}

// CanApprove reports whether the role may resolve a request without a level list.
func (r Role) CanApprove() bool {
	return r == RoleManager || r == RoleHR
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID  string
	StaffID string
	Name    string
	Role    Role
}

func (a Actor) label() string {
	if a.Name != "" {
		return a.Name
	}
	if a.UserID != "" {
		return a.UserID
	}
	return "system"
}

// SystemActor is used by scheduled runs.
var SystemActor = Actor{UserID: "system", Name: "system", Role: RoleAdmin}

type Policy struct {
	ID                 string           `json:"id"`
	LeaveType          LeaveType        `json:"leaveType"`
	MaxDays            decimal.Decimal  `json:"maxDays"`
	AccrualRate        decimal.Decimal  `json:"accrualRate"`
	AccrualFrequency   AccrualFrequency `json:"accrualFrequency"`
	CarryoverAllowed   bool             `json:"carryoverAllowed"`
	MaxCarryover       decimal.Decimal  `json:"maxCarryover"`
	ExpiresAfterMonths *int             `json:"expiresAfterMonths,omitempty"`
	RequiresApproval   bool             `json:"requiresApproval"`
	ApprovalLevels     int              `json:"approvalLevels"`
	Active             bool             `json:"active"`
	CreatedAt          time.Time        `json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
}

type Balance struct {
	StaffID string `json:"staffId"`

	Annual         decimal.Decimal `json:"annual"`
	Sick           decimal.Decimal `json:"sick"`
	Unpaid         decimal.Decimal `json:"unpaid"`
	SpecialService decimal.Decimal `json:"specialService"`
	Training       decimal.Decimal `json:"training"`
	Study          decimal.Decimal `json:"study"`
	Maternity      decimal.Decimal `json:"maternity"`
	Paternity      decimal.Decimal `json:"paternity"`
	Compassionate  decimal.Decimal `json:"compassionate"`

	AnnualCarryForward         decimal.Decimal `json:"annualCarryForward"`
	SickCarryForward           decimal.Decimal `json:"sickCarryForward"`
	SpecialServiceCarryForward decimal.Decimal `json:"specialServiceCarryForward"`
	TrainingCarryForward       decimal.Decimal `json:"trainingCarryForward"`
	StudyCarryForward          decimal.Decimal `json:"studyCarryForward"`

	AnnualExpiresAt         *time.Time `json:"annualExpiresAt,omitempty"`
	SickExpiresAt           *time.Time `json:"sickExpiresAt,omitempty"`
	SpecialServiceExpiresAt *time.Time `json:"specialServiceExpiresAt,omitempty"`
	TrainingExpiresAt       *time.Time `json:"trainingExpiresAt,omitempty"`
	StudyExpiresAt          *time.Time `json:"studyExpiresAt,omitempty"`

	LastAccrualDate *time.Time `json:"lastAccrualDate,omitempty"`
	AccrualPeriod   string     `json:"accrualPeriod,omitempty"`
	Version         int64      `json:"version"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

type ApprovalLevel struct {
	Level        int         `json:"level"`
	ApproverRole Role        `json:"approverRole"`
	Status       LevelStatus `json:"status"`
	ApproverName string      `json:"approverName,omitempty"`
	ApprovalDate *time.Time  `json:"approvalDate,omitempty"`
}

type Request struct {
	ID             string          `json:"id"`
	StaffID        string          `json:"staffId"`
	StaffName      string          `json:"staffName"`
	LeaveType      LeaveType       `json:"leaveType"`
	StartDate      time.Time       `json:"startDate"`
	EndDate        time.Time       `json:"endDate"`
	Days           int             `json:"days"`
	Reason         string          `json:"reason"`
	Status         RequestStatus   `json:"status"`
	ApprovalLevels []ApprovalLevel `json:"approvalLevels,omitempty"`
	ApprovedBy     string          `json:"approvedBy,omitempty"`
	ApprovalDate   *time.Time      `json:"approvalDate,omitempty"`
	PolicyFallback bool            `json:"policyFallback"`
	Version        int64           `json:"version"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Clone returns a copy that shares no approval level storage with r.
func (r Request) Clone() Request {
	out := r
	if r.ApprovalLevels != nil {
		out.ApprovalLevels = make([]ApprovalLevel, len(r.ApprovalLevels))
		copy(out.ApprovalLevels, r.ApprovalLevels)
	}
	return out
}

type AccrualRecord struct {
	ID               string           `json:"id"`
	StaffID          string           `json:"staffId"`
	LeaveType        LeaveType        `json:"leaveType"`
	AccrualDate      time.Time        `json:"accrualDate"`
	AccrualPeriod    string           `json:"accrualPeriod"`
	DaysAccrued      decimal.Decimal  `json:"daysAccrued"`
	DaysBefore       decimal.Decimal  `json:"daysBefore"`
	DaysAfter        decimal.Decimal  `json:"daysAfter"`
	ProRataFactor    *decimal.Decimal `json:"proRataFactor,omitempty"`
	CarryForwardDays decimal.Decimal  `json:"carryForwardDays"`
	ExpiredDays      decimal.Decimal  `json:"expiredDays"`
	ProcessedBy      string           `json:"processedBy"`
	CreatedAt        time.Time        `json:"createdAt"`
}

// Reconciles reports whether DaysAfter equals DaysBefore + DaysAccrued - ExpiredDays.
func (r AccrualRecord) Reconciles() bool {
	return r.DaysBefore.Add(r.DaysAccrued).Sub(r.ExpiredDays).Equal(r.DaysAfter)
}

type MovementKind string

const (
	MovementDebit   MovementKind = "debit"
	MovementCredit  MovementKind = "credit"
	MovementAccrual MovementKind = "accrual"
	MovementExpiry  MovementKind = "expiry"
)

// BalanceMovement is one entry in the usage ledger. Every balance change writes one.
type BalanceMovement struct {
	ID             string          `json:"id"`
	StaffID        string          `json:"staffId"`
	LeaveType      LeaveType       `json:"leaveType"`
	Kind           MovementKind    `json:"kind"`
	Days           decimal.Decimal `json:"days"`
	DaysBefore     decimal.Decimal `json:"daysBefore"`
	DaysAfter      decimal.Decimal `json:"daysAfter"`
	LeaveRequestID string          `json:"leaveRequestId,omitempty"`
	Reason         string          `json:"reason,omitempty"`
	Actor          string          `json:"actor"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type RequestFilter struct {
	StaffID   string
	Status    RequestStatus
	LeaveType LeaveType
	Limit     int
	Offset    int
}

type RequestListResult struct {
	Items []Request `json:"items"`
	Total int       `json:"total"`
}
