package types

import "fmt"

// FetchError reports a failed quote fetch on one venue.
type FetchError struct {
	Venue VenueID
	Pair  Pair
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s on %s: %v", e.Pair, e.Venue, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ConfigurationError is raised before monitoring starts, e.g. for a pair that
// has no symbol on a venue.
type ConfigurationError struct {
	Venue VenueID
	Pair  Pair
	Msg   string
}

func (e *ConfigurationError) Error() string {
	if e.Venue == "" {
		return "config: " + e.Msg
	}
	return fmt.Sprintf("config: %s on %s: %s", e.Pair, e.Venue, e.Msg)
}
