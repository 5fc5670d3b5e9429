package selection

// Item is an entry of a selectable collection
type Item interface {
	ItemID() string
	ItemDefault() bool
}

// Reconcile picks the id to select from a freshly fetched collection:
// preferred when present, else the item flagged default, else the first
// item, else none.
func Reconcile[T Item](items []T, preferred string) string {
	if preferred != "" {
		for _, item := range items {
			if item.ItemID() == preferred {
				return preferred
			}
		}
	}
	for _, item := range items {
		if item.ItemDefault() {
			return item.ItemID()
		}
	}
	if len(items) > 0 {
		return items[0].ItemID()
	}
	return ""
}

func contains[T Item](items []T, id string) bool {
	if id == "" {
		return false
	}
	for _, item := range items {
		if item.ItemID() == id {
			return true
		}
	}
	return false
}
