// Package slot provides the per-worker single-task mailboxes of the pool.
//
// An Array holds one slot per worker. Each slot is either empty or holds
// exactly one task, and is shared by two parties only: the dispatching
// controller, which fills it, and the bound worker, which drains it.
//
// # Transitions
//
//	empty --TrySet--> occupied     (controller)
//	occupied --TryTake--> empty    (worker)
//
// Both transitions are single atomic operations, so a task can never be
// observed in two places: it is neither assigned twice nor consumed twice,
// whatever the interleaving of the two parties.
package slot
