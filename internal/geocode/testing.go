package geocode

// SetTestURL overrides the reverse geocoding URL on a resolver.
// This should only be used in tests.
func SetTestURL(r *Resolver, reverseURL string) {
	if reverseURL != "" {
		r.reverseURL = reverseURL
	}
}
