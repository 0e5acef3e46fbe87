// Package timezone anchors all time handling to a single configured location.
//
// Rental dates cross the API as date-only strings, so the location decides
// which midnight a booking starts and ends on. Everything that touches
// booking intervals or cancellation windows must go through Now and Parse
// rather than the time package directly, or the two sides of a comparison can
// end up in different zones.
//
//	now := timezone.Now()
//	start, err := timezone.Parse("2006-01-02", "2025-03-01")
//	formatted := timezone.Format(t, time.RFC3339)
//
// The location comes from the TIMEZONE environment variable and must be an
// IANA name ("UTC", "Asia/Jakarta", "America/New_York"). It is loaded once
// when the package is imported; failures fall back to UTC.
package timezone
