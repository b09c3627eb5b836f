package domain

// =============================================================================
// Slug Generation
// =============================================================================

// Slugify converts a name to a DNS-safe slug suitable for app names.
//
// Lowercase letters, digits and hyphens are kept, uppercase letters are
// lowercased, spaces become hyphens, everything else is dropped.
//
// Example:
//
//	Slugify("My Blog 2.0!") // returns "my-blog-20"
func Slugify(name string) string {
	slug := ""
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			slug += string(r)
		} else if r >= 'A' && r <= 'Z' {
			slug += string(r + 32) // convert to lowercase
		} else if r == ' ' {
			slug += "-"
		}
		// All other characters are dropped
	}
	return slug
}
