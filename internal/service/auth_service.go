package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-retail-core/internal/model"
	"go-retail-core/internal/repository"
	"go-retail-core/internal/ws"
	"go-retail-core/pkg/database"
	"go-retail-core/pkg/jwt"
	"go-retail-core/pkg/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrStaffNotFound      = errors.New("staff not found")
	ErrStaffInactive      = errors.New("staff account is inactive")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrSessionReplaced    = errors.New("session expired (logged in on another device)")
	ErrSessionTimeout     = errors.New("session expired due to inactivity")
	ErrEmailTaken         = errors.New("email is already registered")
)

type AuthService interface {
	Login(email, password string) (*LoginResponse, error)
	ChangePassword(staffID uuid.UUID, oldPassword, newPassword string) error
	// Authenticate resolves a bearer token to the staff member behind it.
	Authenticate(tokenString string) (*model.Staff, error)
	Heartbeat(staffID uuid.UUID) error
	// EnsureManager creates the first manager account on an empty database.
	EnsureManager(email, password, name string) error
	CreateStaff(req CreateStaffRequest, actor model.Actor) (*model.StaffResponse, error)
}

// CreateStaffRequest adds a till or back-office account. Managers get every
// privilege, cashiers the till subset.
type CreateStaffRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"full_name" validate:"required"`
	RoleCode string `json:"role_code" validate:"required,oneof=MANAGER CASHIER"`
}

type LoginResponse struct {
	Token      string              `json:"token"`
	Staff      model.StaffResponse `json:"staff"`
	Privileges []string            `json:"privileges"`
}

type authService struct {
	staffRepo     repository.StaffRepository
	privilegeRepo repository.PrivilegeRepository
	tokens        *jwt.Manager
	wsHub         *ws.Hub
	idleTimeout   time.Duration
}

// NewAuthService builds the staff auth service. idleTimeout of zero turns the
// inactivity check off.
func NewAuthService(staffRepo repository.StaffRepository, privRepo repository.PrivilegeRepository, tokens *jwt.Manager, hub *ws.Hub, idleTimeout time.Duration) AuthService {
	return &authService{
		staffRepo:     staffRepo,
		privilegeRepo: privRepo,
		tokens:        tokens,
		wsHub:         hub,
		idleTimeout:   idleTimeout,
	}
}

func (s *authService) Login(email, password string) (*LoginResponse, error) {
	// 1. Find staff by email
	staff, err := s.staffRepo.FindByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	// 2. Check if the account is active
	if !staff.IsActive {
		return nil, ErrStaffInactive
	}

	// 3. Verify password
	if !staff.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	// 4. Single session: a new token version invalidates older tokens
	version := uuid.New().String()
	if err := s.staffRepo.UpdateTokenVersion(staff.ID, version); err != nil {
		return nil, err
	}
	if err := s.staffRepo.UpdateLastSeen(staff.ID); err != nil {
		return nil, err
	}

	// 5. Issue the token
	codes := staff.PrivilegeCodes()
	token, err := s.tokens.GenerateToken(staff.ID, staff.Email, staff.FullName, staff.RoleCode, codes, version)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		Token:      token,
		Staff:      staff.ToResponse(),
		Privileges: codes,
	}, nil
}

func (s *authService) ChangePassword(staffID uuid.UUID, oldPassword, newPassword string) error {
	staff, err := s.staffRepo.FindByID(staffID)
	if err != nil {
		return ErrStaffNotFound
	}
	if !staff.CheckPassword(oldPassword) {
		return ErrWrongPassword
	}
	if err := staff.SetPassword(newPassword); err != nil {
		return err
	}
	if err := s.staffRepo.UpdatePassword(staff.ID, staff.Password); err != nil {
		return err
	}
	// Force a fresh login everywhere.
	return s.staffRepo.UpdateTokenVersion(staff.ID, uuid.New().String())
}

func (s *authService) Authenticate(tokenString string) (*model.Staff, error) {
	claims, err := s.tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	staff, err := s.staffRepo.FindByID(claims.StaffID)
	if err != nil {
		return nil, ErrStaffNotFound
	}
	if !staff.IsActive {
		return nil, ErrStaffInactive
	}
	if staff.TokenVersion != claims.TokenVersion {
		return nil, ErrSessionReplaced
	}
	if s.idleTimeout > 0 && (staff.LastSeenAt == nil || time.Since(*staff.LastSeenAt) > s.idleTimeout) {
		return nil, ErrSessionTimeout
	}
	return staff, nil
}

func (s *authService) Heartbeat(staffID uuid.UUID) error {
	if err := s.staffRepo.UpdateLastSeen(staffID); err != nil {
		return err
	}

	if s.wsHub != nil {
		payload, _ := json.Marshal(map[string]interface{}{
			"staff_id":     staffID.String(),
			"status":       "online",
			"last_seen_at": time.Now(),
		})
		s.wsHub.Publish("staff.presence", payload)
	}
	return nil
}

func (s *authService) EnsureManager(email, password, name string) error {
	n, err := s.staffRepo.Count()
	if err != nil || n > 0 {
		return err
	}
	if email == "" || password == "" {
		zap.S().Warn("no staff accounts and no bootstrap manager configured")
		return nil
	}

	privileges, err := s.privilegeRepo.FindAll()
	if err != nil {
		return err
	}
	manager := &model.Staff{
		Email:    strings.ToLower(strings.TrimSpace(email)),
		FullName: name,
		RoleCode: model.RoleManager,
		IsActive: true,
	}
	if err := manager.SetPassword(password); err != nil {
		return err
	}
	if err := s.staffRepo.Create(manager, privileges); err != nil {
		return err
	}
	zap.S().Infow("bootstrap manager created", "email", email)
	return nil
}

func (s *authService) CreateStaff(req CreateStaffRequest, actor model.Actor) (*model.StaffResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validator.FirstError(&req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	var privileges []model.Privilege
	var err error
	if req.RoleCode == model.RoleManager {
		privileges, err = s.privilegeRepo.FindAll()
	} else {
		privileges, err = s.privilegeRepo.FindByCodes(model.CashierPrivileges)
	}
	if err != nil {
		return nil, err
	}

	staff := &model.Staff{
		Email:    req.Email,
		FullName: strings.TrimSpace(req.FullName),
		RoleCode: req.RoleCode,
		IsActive: true,
	}
	staff.CreatedBy = actor.ID
	staff.UpdatedBy = actor.ID
	if err := staff.SetPassword(req.Password); err != nil {
		return nil, err
	}
	if err := s.staffRepo.Create(staff, privileges); err != nil {
		if database.IsDuplicateKey(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	resp := staff.ToResponse()
	return &resp, nil
}
