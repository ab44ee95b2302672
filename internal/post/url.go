package post

import "strings"

// DefaultSiteURL is the public blog origin.
const DefaultSiteURL = "https://blog.zcheck.co.kr"

// URL returns the canonical page URL of slug under base.
func URL(base, slug string) string {
	if base == "" {
		base = DefaultSiteURL
	}
	return strings.TrimRight(base, "/") + "/" + slug + "/"
}

// AbsoluteURL resolves a possibly site-relative reference against base.
func AbsoluteURL(base, ref string) string {
	if ref == "" || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if base == "" {
		base = DefaultSiteURL
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(ref, "/")
}
