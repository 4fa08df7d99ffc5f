package world

import (
	"fmt"

	"freightgrid.dev/internal/protocol"
)

// Transfer primitives. All of them take a consolidator plus a positive
// (resource, amount) pair; a non-positive amount is a contract violation
// upstream and aborts loudly rather than corrupting the ledger.
//
// Member order is randomized on every mutating call so that no storage is
// systematically drained or favored when several are connected. The
// randomness is the world's seeded source, not a security concern.

const amountEpsilon = 1e-9

func mustPositiveAmount(op string, amount float64) {
	if amount <= 0 {
		panic(fmt.Sprintf("%s: non-positive amount %v", op, amount))
	}
}

// HasInStorage reports whether the consolidator's members hold at least
// amount of resource in total. Scans in member order and short-circuits.
func (w *World) HasInStorage(c *Consolidator, resource string, amount float64) bool {
	mustPositiveAmount("HasInStorage", amount)
	remaining := amount
	for _, id := range c.Members {
		s := w.storage(id)
		if s == nil || s.Resource != resource {
			continue
		}
		remaining -= s.Amount
		if remaining <= amountEpsilon {
			return true
		}
	}
	return false
}

// HasSpaceInStorage reports whether the members holding resource have at
// least amount of free capacity in total.
func (w *World) HasSpaceInStorage(c *Consolidator, resource string, amount float64) bool {
	mustPositiveAmount("HasSpaceInStorage", amount)
	remaining := amount
	for _, id := range c.Members {
		s := w.storage(id)
		if s == nil || s.Resource != resource {
			continue
		}
		remaining -= s.free()
		if remaining <= amountEpsilon {
			return true
		}
	}
	return false
}

// totalInStorage sums the available amount of resource across members.
func (w *World) totalInStorage(c *Consolidator, resource string) float64 {
	total := 0.0
	for _, id := range c.Members {
		s := w.storage(id)
		if s == nil || s.Resource != resource {
			continue
		}
		total += s.Amount
	}
	return total
}

// totalSpaceInStorage sums the free capacity for resource across members.
func (w *World) totalSpaceInStorage(c *Consolidator, resource string) float64 {
	total := 0.0
	for _, id := range c.Members {
		s := w.storage(id)
		if s == nil || s.Resource != resource {
			continue
		}
		total += s.free()
	}
	return total
}

// FetchFromStorage removes amount of resource from the consolidator's
// members, drawing from each in randomized order. All-or-nothing: when the
// members hold less than amount in total, nothing is mutated and the call
// returns false.
func (w *World) FetchFromStorage(c *Consolidator, resource string, amount float64) bool {
	mustPositiveAmount("FetchFromStorage", amount)
	if !w.HasInStorage(c, resource, amount) {
		return false
	}
	remaining := amount
	for _, idx := range w.rng.Perm(len(c.Members)) {
		s := w.storage(c.Members[idx])
		if s == nil || s.Resource != resource {
			continue
		}
		take := s.Amount
		if take > remaining {
			take = remaining
		}
		s.Amount -= take
		remaining -= take
		if remaining <= amountEpsilon {
			return true
		}
	}
	// HasInStorage held above and nothing else ran in between; ending up
	// short here means the arena was mutated mid-call.
	panic(fmt.Sprintf("FetchFromStorage: %v of %s unsatisfied after availability check", remaining, resource))
}

// DistributeToStorage pushes amount of resource into members with free
// capacity, filling each in randomized order. A remainder that fits
// nowhere is dropped and logged; callers that need strict accounting must
// pre-check HasSpaceInStorage.
func (w *World) DistributeToStorage(nowTick uint64, actor string, c *Consolidator, resource string, amount float64) {
	mustPositiveAmount("DistributeToStorage", amount)
	remaining := amount
	for _, idx := range w.rng.Perm(len(c.Members)) {
		s := w.storage(c.Members[idx])
		if s == nil || s.Resource != resource {
			continue
		}
		put := s.free()
		if put > remaining {
			put = remaining
		}
		s.Amount += put
		remaining -= put
		if remaining <= amountEpsilon {
			return
		}
	}
	if remaining > amountEpsilon {
		w.auditEvent(nowTick, actor, "DISTRIBUTE_OVERFLOW", protocol.ErrOverflowDropped, map[string]any{
			"resource": resource,
			"amount":   amount,
			"dropped":  remaining,
		})
	}
}
