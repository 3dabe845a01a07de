package service

import (
	"testing"

	"go-retail-core/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// resolve runs Resolve in its own committed transaction.
func (h *harness) resolve(t *testing.T, contact model.ContactInfo) (*model.Customer, bool) {
	t.Helper()
	var (
		c         *model.Customer
		ambiguous bool
	)
	require.NoError(t, h.db.Transaction(func(tx *gorm.DB) error {
		var err error
		c, ambiguous, err = h.directory.Resolve(tx, contact)
		return err
	}))
	return c, ambiguous
}

func TestResolve_CreatesThenMatchesByEmail(t *testing.T) {
	h := newHarness(t)

	first, ambiguous := h.resolve(t, alice)
	require.NotNil(t, first)
	assert.False(t, ambiguous)
	assert.Equal(t, model.CustomerGroupRegular, first.CustomerGroup)
	assert.Zero(t, first.LoyaltyPoints)

	again, ambiguous := h.resolve(t, model.ContactInfo{Name: "Alice Smith", Email: "  ALICE@example.com "})
	require.NotNil(t, again)
	assert.False(t, ambiguous)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "Alice Smith", again.Name)
	assert.Equal(t, int64(1), h.count(t, &model.Customer{}))
}

func TestResolve_EmptyFieldsDoNotOverwrite(t *testing.T) {
	h := newHarness(t)
	first, _ := h.resolve(t, model.ContactInfo{Name: "Bob", Phone: "555 0200", Address: "2 High St"})

	again, _ := h.resolve(t, model.ContactInfo{Phone: "5550200"})
	require.NotNil(t, again)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "Bob", again.Name)
	assert.Equal(t, "2 High St", again.Address)
}

func TestResolve_FlagsPhoneOwnedBySomeoneElse(t *testing.T) {
	h := newHarness(t)
	bob, _ := h.resolve(t, model.ContactInfo{Name: "Bob", Phone: "555-0300"})

	// New email, Bob's phone: a new identity, flagged, phone not copied.
	carol, ambiguous := h.resolve(t, model.ContactInfo{Name: "Carol", Email: "carol@example.com", Phone: "555-0300"})
	require.NotNil(t, carol)
	assert.True(t, ambiguous)
	assert.NotEqual(t, bob.ID, carol.ID)
	assert.Nil(t, carol.Phone)

	// Phone alone still finds Bob, the only holder.
	again, ambiguous := h.resolve(t, model.ContactInfo{Phone: "555-0300"})
	assert.False(t, ambiguous)
	assert.Equal(t, bob.ID, again.ID)
}

func TestResolve_SharedPhonePicksEarliest(t *testing.T) {
	h := newHarness(t)
	first, _ := h.resolve(t, model.ContactInfo{Name: "Dan", Email: "dan@example.com", Phone: "555-0400"})
	// Seed a second holder directly; the directory itself never duplicates a phone.
	phone := "555-0400"
	require.NoError(t, h.db.Create(&model.Customer{Name: "Dana", Phone: &phone, CustomerGroup: model.CustomerGroupRegular}).Error)

	got, ambiguous := h.resolve(t, model.ContactInfo{Phone: phone})
	assert.True(t, ambiguous)
	assert.Equal(t, first.ID, got.ID)
}

func TestResolve_NoContactMeansNoCustomer(t *testing.T) {
	h := newHarness(t)
	c, ambiguous := h.resolve(t, model.ContactInfo{Name: "just a name"})
	assert.Nil(t, c)
	assert.False(t, ambiguous)
}

func TestPoints_AwardAndClampedReverse(t *testing.T) {
	h := newHarness(t)
	c, _ := h.resolve(t, alice)

	require.NoError(t, h.db.Transaction(func(tx *gorm.DB) error {
		return h.directory.AwardPoints(tx, c.ID, 12)
	}))
	assert.Equal(t, int64(12), h.points(t, c.ID))

	var reversed, shortfall int64
	require.NoError(t, h.db.Transaction(func(tx *gorm.DB) error {
		var err error
		reversed, shortfall, err = h.directory.ReversePoints(tx, c.ID, 20)
		return err
	}))
	assert.Equal(t, int64(12), reversed)
	assert.Equal(t, int64(8), shortfall)
	assert.Zero(t, h.points(t, c.ID))
}
