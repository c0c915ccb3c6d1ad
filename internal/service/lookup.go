// Package service provides business logic implementations.
package service

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

// titles adapts an indexed collection to fuzzy.Source.
type titles struct {
	n     int
	title func(int) string
}

func (t titles) String(i int) string { return t.title(i) }
func (t titles) Len() int            { return t.n }

// resolve finds the index of the item a user query refers to.
// It tries, in order: exact id, unique id prefix, case-insensitive title and
// the best fuzzy title match. It returns -1 with a nil error when nothing matches.
func resolve(query string, n int, id, title func(int) string) (int, error) {
	q := strings.TrimSpace(query)
	if q == "" || n == 0 {
		return -1, nil
	}

	for i := 0; i < n; i++ {
		if id(i) == q {
			return i, nil
		}
	}

	prefix := -1
	for i := 0; i < n; i++ {
		if strings.HasPrefix(id(i), q) {
			if prefix >= 0 {
				return -1, fmt.Errorf("%w: id prefix %q", ErrAmbiguousQuery, q)
			}
			prefix = i
		}
	}
	if prefix >= 0 {
		return prefix, nil
	}

	exact := -1
	for i := 0; i < n; i++ {
		if strings.EqualFold(title(i), q) {
			if exact >= 0 {
				return -1, fmt.Errorf("%w: title %q", ErrAmbiguousQuery, q)
			}
			exact = i
		}
	}
	if exact >= 0 {
		return exact, nil
	}

	matches := fuzzy.FindFrom(q, titles{n: n, title: title})
	if len(matches) == 0 {
		return -1, nil
	}
	if len(matches) > 1 && matches[0].Score == matches[1].Score {
		return -1, fmt.Errorf("%w: %q and %q", ErrAmbiguousQuery, matches[0].Str, matches[1].Str)
	}
	return matches[0].Index, nil
}
