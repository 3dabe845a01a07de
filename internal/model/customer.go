package model

const (
	CustomerGroupRegular = "regular"
)

// Customer is resolved (or created) from the contact info attached to a sale.
// LoyaltyPoints is mutated only inside a commit or refund.
type Customer struct {
	BaseModel
	Name          string  `gorm:"type:varchar(255)" json:"name"`
	Email         *string `gorm:"type:varchar(255);uniqueIndex" json:"email,omitempty"`
	Phone         *string `gorm:"type:varchar(32);index" json:"phone,omitempty"`
	Address       string  `gorm:"type:text" json:"address,omitempty"`
	LoyaltyPoints int64   `gorm:"not null;default:0" json:"loyalty_points"`
	CustomerGroup string  `gorm:"type:varchar(30);not null;default:'regular'" json:"customer_group"`
}

// ContactInfo is what a checkout or POS basket knows about the buyer.
type ContactInfo struct {
	Name    string `json:"name"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// IsEmpty reports whether the sale carries no identifying contact info.
func (c ContactInfo) IsEmpty() bool {
	return c.Email == "" && c.Phone == ""
}
