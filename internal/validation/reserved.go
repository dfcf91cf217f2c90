package validation

// reservedSlugs collide with fixed routes under /api/articles.
var reservedSlugs = map[string]struct{}{
	"feed": {},
}

// IsReservedSlug reports whether slug would be shadowed by a fixed route.
func IsReservedSlug(slug string) bool {
	_, reserved := reservedSlugs[slug]
	return reserved
}
