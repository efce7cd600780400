package ledgergrp

import (
	"strings"

	"github.com/ardanlabs/provenance/foundation/blockchain/database"
)

// newTx is what a client provides to record an event for an item. The
// time of the event is assigned when the event is accepted.
type newTx struct {
	ItemID    string `json:"product_id" validate:"required"`
	Role      string `json:"role" validate:"required,oneof=Farmer Wholesaler Distributor Retailer Customer"`
	ActorName string `json:"actor_name"`
	Location  string `json:"location"`
	Status    string `json:"status"`
	Notes     string `json:"extra_info"`
}

// trim removes the surrounding white space from every field.
func (ntx *newTx) trim() {
	ntx.ItemID = strings.TrimSpace(ntx.ItemID)
	ntx.Role = strings.TrimSpace(ntx.Role)
	ntx.ActorName = strings.TrimSpace(ntx.ActorName)
	ntx.Location = strings.TrimSpace(ntx.Location)
	ntx.Status = strings.TrimSpace(ntx.Status)
	ntx.Notes = strings.TrimSpace(ntx.Notes)
}

func (ntx newTx) toTransaction(timeStamp float64) (database.Transaction, error) {
	return database.NewTransaction(ntx.ItemID, ntx.Role, ntx.ActorName, ntx.Location, ntx.Status, ntx.Notes, timeStamp)
}

// submitted is the response for an accepted event.
type submitted struct {
	Status  string         `json:"status"`
	Warning string         `json:"warning,omitempty"`
	Block   database.Block `json:"block"`
}

type tip struct {
	Index   uint64 `json:"index"`
	Hash    string `json:"hash"`
	Pending int    `json:"pending"`
	Dirty   bool   `json:"dirty"`
}

type verification struct {
	Valid  bool   `json:"valid"`
	Blocks int    `json:"blocks"`
	Block  uint64 `json:"block,omitempty"`
	Error  string `json:"error,omitempty"`
}
