package post

import "sort"

// Merge combines local and remote posts keyed by slug. Local entries win on collision,
// remote-only entries are appended, and the result is sorted by PublishedAt descending
// with missing timestamps last.
func Merge(local, remote []*Post) []*Post {
	seen := make(map[string]struct{}, len(local)+len(remote))
	out := make([]*Post, 0, len(local)+len(remote))
	for _, p := range local {
		if p == nil {
			continue
		}
		if _, dup := seen[p.Slug]; dup {
			continue
		}
		seen[p.Slug] = struct{}{}
		out = append(out, p)
	}
	for _, p := range remote {
		if p == nil {
			continue
		}
		if _, dup := seen[p.Slug]; dup {
			continue
		}
		seen[p.Slug] = struct{}{}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	return out
}
