package tracking

import (
	"fmt"
	"time"

	"github.com/campuscrave/campuscrave-client/internal/notifications"
	"github.com/campuscrave/campuscrave-client/pkg/api"
)

// QueueSnapshot is the live-order set as of one tick. Loaded distinguishes
// "no orders" from "never fetched": the first successful fetch must not
// flood the vendor with notifications for orders that predate the dashboard.
type QueueSnapshot struct {
	Loaded bool
	Orders []api.Order
}

// ReconcileQueue diffs two snapshots and returns the state to render, one
// notification per newly-appeared order, and whether to play the arrival
// chime (at most once per tick). Orders are matched by id, so a queue that
// shrinks and grows within one interval still notifies only for genuinely
// new ids, and an order never produces a second notification.
func ReconcileQueue(prev, next QueueSnapshot, now time.Time) (QueueSnapshot, []notifications.Entry, bool) {
	render := QueueSnapshot{
		Loaded: true,
		Orders: append([]api.Order{}, next.Orders...),
	}

	if !prev.Loaded {
		return render, nil, false
	}

	known := make(map[int64]struct{}, len(prev.Orders))
	for _, order := range prev.Orders {
		known[order.ID] = struct{}{}
	}

	var entries []notifications.Entry
	for _, order := range render.Orders {
		if _, ok := known[order.ID]; ok {
			continue
		}
		entries = append(entries, notifications.NewEntry(
			fmt.Sprintf("New order #%d received (%s items)", order.ID, describeCount(order)), now))
	}
	return render, entries, len(entries) > 0
}

func describeCount(order api.Order) string {
	count := 0
	for _, item := range order.Items {
		count += item.Quantity
	}
	if count == 0 {
		return "no"
	}
	return fmt.Sprintf("%d", count)
}
