package database

import (
	"fmt"
	"time"
)

// Set of roles a party can play in the journey of a product.
const (
	RoleFarmer      = "Farmer"
	RoleWholesaler  = "Wholesaler"
	RoleDistributor = "Distributor"
	RoleRetailer    = "Retailer"
	RoleCustomer    = "Customer"
)

// Roles lists the known roles in journey order.
var Roles = []string{RoleFarmer, RoleWholesaler, RoleDistributor, RoleRetailer, RoleCustomer}

// =============================================================================

// Transaction is a provenance event recorded for a tracked item.
type Transaction struct {
	ItemID    string  `json:"product_id"` // Identity of the item being tracked.
	Role      string  `json:"role"`       // Role of the actor at this step of the journey.
	ActorName string  `json:"actor_name"` // Who performed the step.
	Location  string  `json:"location"`   // Where the step happened.
	Status    string  `json:"status"`     // Free form status such as Shipped or Received.
	Notes     string  `json:"extra_info"` // Any extra information provided by the actor.
	TimeStamp float64 `json:"timestamp"`  // Capture time in seconds since the epoch.
}

// NewTransaction constructs a transaction from values the caller has already
// trimmed. The only rule applied here is that the item id can't be empty.
func NewTransaction(itemID string, role string, actorName string, location string, status string, notes string, timeStamp float64) (Transaction, error) {
	if itemID == "" {
		return Transaction{}, fmt.Errorf("%w: item id can't be empty", ErrInvalidInput)
	}

	tx := Transaction{
		ItemID:    itemID,
		Role:      role,
		ActorName: actorName,
		Location:  location,
		Status:    status,
		Notes:     notes,
		TimeStamp: timeStamp,
	}

	return tx, nil
}

// String implements the fmt.Stringer interface for logging.
func (tx Transaction) String() string {
	return fmt.Sprintf("%s:%s:%s", tx.ItemID, tx.Role, tx.Status)
}

// =============================================================================

// Now returns the current wall clock time as fractional seconds since the
// epoch, the unit used for every timestamp in the ledger.
func Now() float64 {
	return ToSeconds(time.Now())
}

// ToSeconds converts a time value into fractional seconds since the epoch.
func ToSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// copyTrans makes a copy of the transactions so the caller's slice is never
// shared with a block. A nil slice comes back empty so it marshals as [].
func copyTrans(trans []Transaction) []Transaction {
	cpy := make([]Transaction, len(trans))
	copy(cpy, trans)
	return cpy
}
