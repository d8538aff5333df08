package cache

import "sort"

// ListID is the tag ID every list-returning query provides next to its
// per-item tags, so a create (which has no prior item ID) can still
// invalidate the list.
const ListID = "LIST"

// Tag labels cached data for selective invalidation.
type Tag struct {
	Type string
	ID   string
}

// ListTag returns the (typ, LIST) tag.
func ListTag(typ string) Tag {
	return Tag{Type: typ, ID: ListID}
}

// ItemTag returns the (typ, id) tag.
func ItemTag(typ, id string) Tag {
	return Tag{Type: typ, ID: id}
}

// IsList reports whether t is a list tag.
func (t Tag) IsList() bool {
	return t.ID == ListID
}

func (t Tag) String() string {
	return t.Type + ":" + t.ID
}

// NormalizeTags removes duplicates and empty tags and sorts the result.
func NormalizeTags(tags []Tag) []Tag {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[Tag]struct{}, len(tags))
	out := make([]Tag, 0, len(tags))
	for _, t := range tags {
		if t.Type == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Intersects reports whether a and b share at least one tag.
func Intersects(a, b []Tag) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[Tag]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	for _, t := range b {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}
