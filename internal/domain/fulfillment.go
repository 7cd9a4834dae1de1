package domain

import (
	"fmt"
	"time"
)

var itemTransitions = map[OrderStatus][]OrderStatus{
	StatusProcessing:      {StatusShipped, StatusCancelled},
	StatusShipped:         {StatusDelivered, StatusCancelled},
	StatusDelivered:       {StatusReturnRequested},
	StatusReturnRequested: {StatusReturnInitiated},
	StatusReturnInitiated: {StatusReturned},
}

var knownStatuses = map[OrderStatus]struct{}{
	StatusProcessing:      {},
	StatusShipped:         {},
	StatusDelivered:       {},
	StatusCancelled:       {},
	StatusReturnRequested: {},
	StatusReturnInitiated: {},
	StatusReturned:        {},
}

// ParseStatus validates a status string supplied by a caller.
func ParseStatus(s string) (OrderStatus, error) {
	st := OrderStatus(s)
	if _, ok := knownStatuses[st]; !ok {
		return "", fmt.Errorf("%w: unknown status %q", ErrValidation, s)
	}
	return st, nil
}

// CanTransition reports whether an item may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range itemTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the aggregate accepts no more item transitions.
func (o *Order) IsTerminal() bool {
	return o.Status == StatusCancelled || o.Status == StatusReturned
}

// ItemChange records one item moving between statuses; the store uses From
// as the compare-and-set guard.
type ItemChange struct {
	ItemID string
	From   OrderStatus
	To     OrderStatus
}

// TransitionItems moves sellerID's items to the target status. An empty
// productID selects every item the seller owns in this order. Nothing is
// mutated unless every selected item may legally make the move.
func (o *Order) TransitionItems(sellerID, productID string, to OrderStatus, now time.Time) ([]ItemChange, error) {
	if o.IsTerminal() {
		return nil, fmt.Errorf("%w: order is %s", ErrInvalidTransition, o.Status)
	}

	var targeted, owned []int
	for i, it := range o.Items {
		if productID != "" && it.ProductID != productID {
			continue
		}
		targeted = append(targeted, i)
		if it.SellerID == sellerID {
			owned = append(owned, i)
		}
	}
	if len(targeted) == 0 {
		return nil, fmt.Errorf("%w: product %s is not part of order %s", ErrNotFound, productID, o.ID)
	}
	if len(owned) == 0 {
		return nil, fmt.Errorf("%w: seller %s owns no targeted item", ErrUnauthorized, sellerID)
	}

	for _, i := range owned {
		from := o.Items[i].ItemStatus
		if !CanTransition(from, to) {
			return nil, fmt.Errorf("%w: item %s cannot move from %s to %s", ErrInvalidTransition, o.Items[i].ID, from, to)
		}
	}

	changes := make([]ItemChange, 0, len(owned))
	for _, i := range owned {
		changes = append(changes, ItemChange{ItemID: o.Items[i].ID, From: o.Items[i].ItemStatus, To: to})
		o.Items[i].ItemStatus = to
	}
	o.Rollup(to, now)
	return changes, nil
}

// Rollup recomputes the aggregate status after an item transition:
// every item Delivered wins, then a transition to Shipped, otherwise the
// aggregate keeps its value. A single shipped item is enough to report the
// whole order as Shipped even while other items are still Processing.
func (o *Order) Rollup(triggered OrderStatus, now time.Time) {
	if len(o.Items) > 0 && o.allItems(StatusDelivered) {
		if o.Status != StatusDelivered {
			o.Status = StatusDelivered
			o.IsDelivered = true
			o.DeliveredAt = &now
		}
		return
	}
	if triggered == StatusShipped && o.Status == StatusProcessing {
		o.Status = StatusShipped
	}
}

func (o *Order) allItems(st OrderStatus) bool {
	for _, it := range o.Items {
		if it.ItemStatus != st {
			return false
		}
	}
	return true
}

// Cancel is the explicit aggregate-level cancellation. It is only possible
// before anything shipped; items still Processing become Cancelled.
func (o *Order) Cancel() ([]ItemChange, error) {
	if o.Status != StatusProcessing {
		return nil, fmt.Errorf("%w: order is %s", ErrInvalidTransition, o.Status)
	}
	var changes []ItemChange
	for i, it := range o.Items {
		if it.ItemStatus == StatusCancelled {
			continue
		}
		if !CanTransition(it.ItemStatus, StatusCancelled) {
			return nil, fmt.Errorf("%w: item %s is %s", ErrInvalidTransition, it.ID, it.ItemStatus)
		}
		changes = append(changes, ItemChange{ItemID: it.ID, From: it.ItemStatus, To: StatusCancelled})
		o.Items[i].ItemStatus = StatusCancelled
	}
	o.Status = StatusCancelled
	return changes, nil
}

// MarkRefunded records a refund for a paid order whose goods never arrived or
// came back. Refunding a returned order closes the aggregate as Returned.
func (o *Order) MarkRefunded(now time.Time) error {
	if !o.IsPaid {
		return fmt.Errorf("%w: order %s was never paid", ErrInvalidTransition, o.ID)
	}
	if o.IsRefunded {
		return fmt.Errorf("%w: order %s is already refunded", ErrInvalidTransition, o.ID)
	}
	if o.Status != StatusCancelled {
		for _, it := range o.Items {
			if it.ItemStatus != StatusCancelled && it.ItemStatus != StatusReturned {
				return fmt.Errorf("%w: item %s is %s", ErrInvalidTransition, it.ID, it.ItemStatus)
			}
		}
		if o.allItems(StatusCancelled) {
			o.Status = StatusCancelled
		} else {
			o.Status = StatusReturned
		}
	}
	o.IsRefunded = true
	o.RefundedAt = &now
	return nil
}
