package collector

import "github.com/google/uuid"

// NewScanID returns a fresh random (uuid v4) identifier tagging one
// order-book depth snapshot, so the Grid Range engine can group and
// compare two consecutive scans; RecentScanIDs orders scans by
// collected_at, not by this id.
func NewScanID() string { return uuid.NewString() }
