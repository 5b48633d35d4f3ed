package model

// Table is a row of the `restaurant_tables` table.  AvailableTimes holds
// the recurring daily slots in declaration order.
type Table struct {
	ID             uint64      `json:"id"`
	RestaurantID   uint64      `json:"restaurant_id"`
	Size           int         `json:"size"`
	AvailableTimes []TimeOfDay `json:"available_times"`
}

// Offers reports whether t is one of the table's declared slots.
func (t Table) Offers(at TimeOfDay) bool {
	for _, s := range t.AvailableTimes {
		if s == at {
			return true
		}
	}
	return false
}

// FirstSlotBetween returns the first declared slot (in declaration order,
// not necessarily the earliest) falling in [from, to].
func (t Table) FirstSlotBetween(from, to TimeOfDay) (TimeOfDay, bool) {
	for _, s := range t.AvailableTimes {
		if s >= from && s <= to {
			return s, true
		}
	}
	return 0, false
}

// NewTable is the input for creating a table.  AvailableTimes lists
// "HH:MM" slots in the order they should be offered.
type NewTable struct {
	Size           int      `json:"size"`
	AvailableTimes []string `json:"available_times"`
}
