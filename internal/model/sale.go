package model

import "time"

// UnknownProductID is the sentinel mapped-product value for source product
// codes with no CRM counterpart. It must never collide with a real CRM
// product id.
const UnknownProductID = 999999999

// Sale is a single sale record extracted from the policy database,
// immutable once built.
type Sale struct {
	ProposalID   string
	ProductID    int
	Premium      float64
	SaleDate     time.Time
	SellerPhone  string // raw value from the database
	PhoneKey     string // canonical digits-only join key
	CRMProductID int    // mapped CRM product, or UnknownProductID
	InsuredID    int
}

// Deal is a snapshot of a CRM deal taken at run start. Many sales may map
// to one deal through the seller's phone key.
type Deal struct {
	ID        int
	Name      string
	Email     string
	Phone     string
	OwnerName string
}
