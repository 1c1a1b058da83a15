package topic

import "strings"

const sharePrefix = "$share/"

// Match reports whether a published topic name is selected by a subscription
// filter. Shared subscription filters ($share/<group>/<filter>) match on the
// part after the group.
func Match(filter, name string) bool {
	if rest, ok := strings.CutPrefix(filter, sharePrefix); ok {
		if _, filter, ok = strings.Cut(rest, "/"); !ok {
			return false
		}
	}
	if filter == name {
		return true
	}

	want := strings.Split(filter, "/")
	got := strings.Split(name, "/")
	for i, level := range want {
		if level == MultiWildcard {
			// "a/#" also selects "a" itself.
			return true
		}
		if i == len(got) || (level != Wildcard && level != got[i]) {
			return false
		}
	}
	return len(want) == len(got)
}
