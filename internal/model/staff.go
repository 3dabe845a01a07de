package model

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleManager = "MANAGER"
	RoleCashier = "CASHIER"
)

// Staff is a back-office or till user. Storefront customers never log in here.
type Staff struct {
	BaseModel
	Email        string      `gorm:"type:varchar(255);uniqueIndex;not null" json:"email" validate:"required,email"`
	Password     string      `gorm:"type:varchar(255);not null" json:"-"`
	FullName     string      `gorm:"type:varchar(255)" json:"full_name" validate:"required"`
	RoleCode     string      `gorm:"type:varchar(30);not null" json:"role_code"`
	IsActive     bool        `gorm:"default:true" json:"is_active"`
	Privileges   []Privilege `gorm:"many2many:staff_privileges;" json:"privileges,omitempty"`
	TokenVersion string      `gorm:"type:varchar(255);default:''" json:"-"`
	LastSeenAt   *time.Time  `json:"last_seen_at,omitempty"`
}

// SetPassword hashes and sets the password
func (s *Staff) SetPassword(password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.Password = string(hashed)
	return nil
}

// CheckPassword verifies if the provided password matches the stored hash
func (s *Staff) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(s.Password), []byte(password)) == nil
}

// PrivilegeCodes returns a slice of all privilege codes for this staff member
func (s *Staff) PrivilegeCodes() []string {
	codes := make([]string, len(s.Privileges))
	for i, p := range s.Privileges {
		codes[i] = p.Code
	}
	return codes
}

// AsActor converts the staff member into the identity stamped on ledger rows.
func (s *Staff) AsActor() Actor {
	return Actor{ID: s.ID.String(), Name: s.FullName, Email: s.Email}
}

// StaffResponse is used for API responses (without sensitive data)
type StaffResponse struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name"`
	RoleCode   string    `json:"role_code"`
	IsActive   bool      `json:"is_active"`
	Privileges []string  `json:"privileges"`
}

func (s *Staff) ToResponse() StaffResponse {
	return StaffResponse{
		ID:         s.ID,
		Email:      s.Email,
		FullName:   s.FullName,
		RoleCode:   s.RoleCode,
		IsActive:   s.IsActive,
		Privileges: s.PrivilegeCodes(),
	}
}
