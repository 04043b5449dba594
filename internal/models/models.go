package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// User types known to the marketplace
const (
	UserTypeCompany    = "BEDRIJF" // Hiring company
	UserTypeBureau     = "BUREAU"  // Staffing bureau
	UserTypeFreelancer = "ZZP"     // Independent freelancer
)

// ValidUserType reports whether t is one of the marketplace user types
func ValidUserType(t string) bool {
	switch t {
	case UserTypeCompany, UserTypeBureau, UserTypeFreelancer:
		return true
	}
	return false
}

// User represents a marketplace account
type User struct {
	BaseModel
	Email             string    `json:"email" gorm:"unique;not null"`
	PasswordHash      string    `json:"-" gorm:"not null"`
	Name              string    `json:"name"`
	UserType          string    `json:"user_type" gorm:"type:varchar(16);not null"`
	IsAdmin           bool      `json:"is_admin" gorm:"not null;default:false"`
	IsVerified        bool      `json:"is_verified" gorm:"not null;default:false"`
	OrganizationName  string    `json:"organization_name"`
	NotificationEmail string    `json:"notification_email"`
	UpdatedAt         time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Memberships []Membership `json:"memberships,omitempty" gorm:"foreignKey:UserID"`
}

// Subscription tiers for organizations
const (
	TierFree         = "free"
	TierProfessional = "professional"
	TierEnterprise   = "enterprise"
)

// Tenant is an organization (company, bureau, or freelancer workspace) users act within
type Tenant struct {
	BaseModel
	Name             string `json:"name" gorm:"not null"`
	Type             string `json:"type" gorm:"type:varchar(16);not null"`
	SubscriptionTier string `json:"subscription_tier" gorm:"type:varchar(32);not null;default:free"`
	IsVerified       bool   `json:"is_verified" gorm:"not null;default:false"`
}

// Membership roles
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// Membership links a user to a tenant they may switch into
type Membership struct {
	BaseModel
	UserID   string `json:"user_id" gorm:"not null;uniqueIndex:idx_membership_user_tenant"`
	TenantID string `json:"tenant_id" gorm:"not null;uniqueIndex:idx_membership_user_tenant"`
	Role     string `json:"role" gorm:"not null;default:member"`

	Tenant Tenant `json:"tenant,omitzero" gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE"`
}

// RevokedToken records a logged-out JWT until it would have expired anyway
type RevokedToken struct {
	BaseModel
	JTI       string    `json:"jti" gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index;not null"`
}

// Action token kinds
const (
	ActionVerifyEmail   = "verify_email"
	ActionResetPassword = "reset_password"
)

// ActionToken is a single-use emailed token. Only its SHA-256 hash is stored.
type ActionToken struct {
	BaseModel
	Kind      string     `json:"kind" gorm:"type:varchar(32);not null;index"`
	TokenHash string     `json:"-" gorm:"uniqueIndex;not null"`
	UserID    string     `json:"user_id" gorm:"not null;index"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"index;not null"`
	UsedAt    *time.Time `json:"used_at"`
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	models := []interface{}{
		&User{}, &Tenant{}, &Membership{}, &RevokedToken{}, &ActionToken{},
	}

	return db.AutoMigrate(models...)
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}

// FindByIDWithPreload finds a record by ID with preloading
func FindByIDWithPreload[T any](db *gorm.DB, id string, model *T, preloads ...string) error {
	query := db
	for _, preload := range preloads {
		query = query.Preload(preload)
	}
	return query.Where("id = ?", id).First(model).Error
}
