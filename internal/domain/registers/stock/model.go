// Package stock provides the per-branch stock register: snapshots, the
// availability validator and the commit-time stock check.
package stock

import (
	"time"

	"distro/internal/core/id"
	"distro/internal/domain/uom"
)

// Snapshot is the stock of one item in one branch together with the item's
// unit metadata.
//
// RunningBalance is the whole stock in base units
// (OnHandPrimary*factor + loose pieces). OnHandPrimary counts sealed packs only.
type Snapshot struct {
	ItemID         id.ID     `db:"item_id" json:"itemId"`
	BranchID       id.ID     `db:"branch_id" json:"branchId"`
	PrimaryUOM     string    `db:"primary_uom" json:"primaryUom"`
	BaseUOM        string    `db:"base_uom" json:"baseUom,omitempty"`
	FactorToBase   int64     `db:"factor_to_base" json:"factorToBase"`
	OnHandPrimary  int64     `db:"on_hand_primary" json:"onHandPrimary"`
	RunningBalance int64     `db:"running_balance" json:"runningBalance"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// NewSnapshot builds a snapshot from on-hand packs and loose pieces.
func NewSnapshot(item uom.Item, branchID id.ID, onHand uom.Pair) Snapshot {
	return Snapshot{
		ItemID:         item.ID,
		BranchID:       branchID,
		PrimaryUOM:     item.PrimaryUOM,
		BaseUOM:        item.BaseUOM,
		FactorToBase:   item.FactorToBase,
		OnHandPrimary:  max(0, onHand.Primary),
		RunningBalance: onHand.TotalBase(item.Factor()),
	}
}

// Item returns the unit metadata carried by the snapshot.
func (s Snapshot) Item() uom.Item {
	return uom.Item{
		ID:           s.ItemID,
		PrimaryUOM:   s.PrimaryUOM,
		BaseUOM:      s.BaseUOM,
		FactorToBase: s.FactorToBase,
	}
}

// Meta returns the validator input for this snapshot.
func (s Snapshot) Meta() Meta {
	item := s.Item()
	return Meta{
		OnHandPrimary:  s.OnHandPrimary,
		RunningBalance: s.RunningBalance,
		Factor:         item.Factor(),
		HasBaseUOM:     item.HasBaseUOM(),
	}
}

// Loose returns the pieces not sealed in a pack.
func (s Snapshot) Loose() int64 {
	return max(0, s.RunningBalance-s.OnHandPrimary*s.Item().Factor())
}

// Consume returns the snapshot after selling qty.
// Packs are opened only when the loose pieces do not cover qty.Base.
// The caller must have checked qty against the snapshot.
func (s Snapshot) Consume(qty uom.Pair) Snapshot {
	f := s.Item().Factor()
	s.RunningBalance = max(0, s.RunningBalance-qty.TotalBase(f))
	s.OnHandPrimary = max(0, min(s.OnHandPrimary-qty.Primary, s.RunningBalance/f))
	return s
}

// Restock returns the snapshot after qty comes back into the branch.
// Returned packs stay sealed; returned pieces are loose.
func (s Snapshot) Restock(qty uom.Pair) Snapshot {
	f := s.Item().Factor()
	s.RunningBalance += qty.TotalBase(f)
	s.OnHandPrimary += max(0, qty.Primary)
	return s
}

// Meta is the stock metadata the validator needs for one item.
type Meta struct {
	OnHandPrimary  int64
	RunningBalance int64
	Factor         int64
	HasBaseUOM     bool
}

// MovementKind is the direction of a stock movement.
type MovementKind string

const (
	MovementReceipt MovementKind = "receipt"
	MovementExpense MovementKind = "expense"
)

// Recorder identifies the document that caused a movement.
type Recorder struct {
	ID   id.ID
	Type string
}

// Movement is one line of the stock register journal.
type Movement struct {
	ID           id.ID        `db:"id" json:"id"`
	RecorderID   id.ID        `db:"recorder_id" json:"recorderId"`
	RecorderType string       `db:"recorder_type" json:"recorderType"`
	Kind         MovementKind `db:"kind" json:"kind"`
	ItemID       id.ID        `db:"item_id" json:"itemId"`
	BranchID     id.ID        `db:"branch_id" json:"branchId"`
	PrimaryQty   int64        `db:"primary_qty" json:"primaryQty"`
	BaseQty      int64        `db:"base_qty" json:"baseQty"`
	TotalBase    int64        `db:"total_base" json:"totalBase"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
}

// Requirement is a quantity of one item requested by a document.
type Requirement struct {
	ItemID id.ID
	Qty    uom.Pair
}

// Aggregate sums requirements per item, keeping first-seen order.
func Aggregate(reqs []Requirement) []Requirement {
	index := make(map[id.ID]int, len(reqs))
	out := make([]Requirement, 0, len(reqs))
	for _, r := range reqs {
		if i, ok := index[r.ItemID]; ok {
			out[i].Qty = out[i].Qty.Add(r.Qty)
			continue
		}
		index[r.ItemID] = len(out)
		out = append(out, r)
	}
	return out
}
