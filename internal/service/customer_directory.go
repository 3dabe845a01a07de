package service

import (
	"errors"
	"strings"

	"go-retail-core/internal/model"
	"go-retail-core/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CustomerDirectory resolves buyers from contact info and moves loyalty
// balances. All methods run on the caller's transaction.
type CustomerDirectory interface {
	// Resolve returns the matched or newly created customer. ambiguous is set
	// when the contact info points at more than one existing identity; the
	// deterministic pick is still returned and the sale is flagged for review.
	Resolve(tx *gorm.DB, contact model.ContactInfo) (customer *model.Customer, ambiguous bool, err error)
	AwardPoints(tx *gorm.DB, customerID uuid.UUID, amount int64) error
	// ReversePoints never takes the balance below zero. The part it could not
	// take back is returned as shortfall.
	ReversePoints(tx *gorm.DB, customerID uuid.UUID, amount int64) (reversed, shortfall int64, err error)
}

type customerDirectory struct {
	customerRepo repository.CustomerRepository
}

func NewCustomerDirectory(cRepo repository.CustomerRepository) CustomerDirectory {
	return &customerDirectory{customerRepo: cRepo}
}

func normalizeContact(c model.ContactInfo) model.ContactInfo {
	return model.ContactInfo{
		Name:    strings.TrimSpace(c.Name),
		Email:   strings.ToLower(strings.TrimSpace(c.Email)),
		Phone:   strings.Join(strings.Fields(c.Phone), ""),
		Address: strings.TrimSpace(c.Address),
	}
}

func (d *customerDirectory) Resolve(tx *gorm.DB, contact model.ContactInfo) (*model.Customer, bool, error) {
	contact = normalizeContact(contact)
	if contact.IsEmpty() {
		return nil, false, nil
	}

	var phoneMatches []model.Customer
	if contact.Phone != "" {
		var err error
		phoneMatches, err = d.customerRepo.FindByPhoneTx(tx, contact.Phone)
		if err != nil {
			return nil, false, err
		}
	}

	var (
		match     *model.Customer
		ambiguous bool
	)
	if contact.Email != "" {
		// Email is the only key when present; a phone owned by someone else
		// is reported, never merged.
		found, err := d.customerRepo.FindByEmailTx(tx, contact.Email)
		if err != nil {
			return nil, false, err
		}
		match = found
		for _, c := range phoneMatches {
			if match == nil || c.ID != match.ID {
				ambiguous = true
				break
			}
		}
	} else if len(phoneMatches) > 0 {
		match = &phoneMatches[0]
		ambiguous = len(phoneMatches) > 1
	}

	if match == nil {
		created, err := d.create(tx, contact, len(phoneMatches) > 0)
		if err != nil {
			return nil, false, err
		}
		return created, ambiguous, nil
	}

	if err := d.refreshProfile(tx, match, contact, ambiguous); err != nil {
		return nil, false, err
	}
	return match, ambiguous, nil
}

// create inserts a new customer. A concurrent sale may win the insert on the
// email key, in which case that row is used instead.
func (d *customerDirectory) create(tx *gorm.DB, contact model.ContactInfo, phoneTaken bool) (*model.Customer, error) {
	c := &model.Customer{
		Name:          contact.Name,
		Address:       contact.Address,
		CustomerGroup: model.CustomerGroupRegular,
	}
	if contact.Email != "" {
		c.Email = &contact.Email
	}
	if contact.Phone != "" && !phoneTaken {
		c.Phone = &contact.Phone
	}

	inserted, err := d.customerRepo.CreateIfAbsentTx(tx, c)
	if err != nil {
		return nil, err
	}
	if inserted {
		return c, nil
	}
	existing, err := d.customerRepo.FindByEmailTx(tx, contact.Email)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, errors.New("customer insert conflicted but no row was found")
	}
	return existing, nil
}

// refreshProfile copies non-empty incoming profile fields onto the match.
// Loyalty points and group are never touched here. On an ambiguous match the
// phone is left alone so it does not move between identities.
func (d *customerDirectory) refreshProfile(tx *gorm.DB, c *model.Customer, contact model.ContactInfo, ambiguous bool) error {
	fields := map[string]interface{}{}
	if contact.Name != "" && contact.Name != c.Name {
		fields["name"] = contact.Name
		c.Name = contact.Name
	}
	if contact.Address != "" && contact.Address != c.Address {
		fields["address"] = contact.Address
		c.Address = contact.Address
	}
	if !ambiguous && contact.Phone != "" && (c.Phone == nil || *c.Phone != contact.Phone) {
		fields["phone"] = contact.Phone
		c.Phone = &contact.Phone
	}
	return d.customerRepo.UpdateProfileTx(tx, c.ID, fields)
}

func (d *customerDirectory) AwardPoints(tx *gorm.DB, customerID uuid.UUID, amount int64) error {
	if amount <= 0 {
		return nil
	}
	return d.customerRepo.AddPointsTx(tx, customerID, amount)
}

func (d *customerDirectory) ReversePoints(tx *gorm.DB, customerID uuid.UUID, amount int64) (int64, int64, error) {
	if amount <= 0 {
		return 0, 0, nil
	}

	for attempt := 0; attempt < 3; attempt++ {
		c, err := d.customerRepo.FindByIDTx(tx, customerID)
		if err != nil {
			return 0, 0, err
		}
		take := amount
		if c.LoyaltyPoints < take {
			take = c.LoyaltyPoints
		}
		if take == 0 {
			return 0, amount, nil
		}
		ok, err := d.customerRepo.SubtractPointsTx(tx, customerID, take)
		if err != nil {
			return 0, 0, err
		}
		if ok {
			return take, amount - take, nil
		}
		// Balance moved between the read and the write; read it again.
	}
	return 0, 0, errors.New("loyalty balance kept changing during reversal")
}
