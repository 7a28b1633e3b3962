package dispatch

import "github.com/munnerz/goautoneg"

// offers are listed text first: a missing header, */* and ties answer
// plaintext.
var offers = []string{"text/plain", "application/json"}

// prefersJSON reports whether the Accept header ranks application/json
// above text/plain.
func prefersJSON(header string) bool {
	return goautoneg.Negotiate(header, offers) == "application/json"
}
