package store

import "strings"

// InitAction is the synthetic action type auto-dispatched exactly once per
// store instance right after directory registration. Its diff reports every
// recognized attribute with NoValue as the old value, so late-registering
// observers can reconstruct full state from the dispatch stream alone.
const InitAction = "STORE_INIT"

// SetAction returns the generated setter action type for an attribute:
// SetAction("my_attr") == "SET_MY_ATTR".
func SetAction(attr string) string {
	return "SET_" + strings.ToUpper(attr)
}

// SyncAction returns the generated sync action type for an attribute on a
// synced store type: SyncAction("my_attr") == "SYNC_MY_ATTR". Sync actions
// behave exactly like setters; only the type name differs, which lets a
// saga that pushes state to an external source of truth skip changes that
// originated from that source.
func SyncAction(attr string) string {
	return "SYNC_" + strings.ToUpper(attr)
}

// IsSync reports whether the action type is a generated sync setter.
func IsSync(actionType string) bool {
	return strings.HasPrefix(actionType, "SYNC_")
}
