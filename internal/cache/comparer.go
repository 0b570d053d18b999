package cache

import "strings"

// Comparer normalizes a key to a canonical representation before it is
// used to index the underlying map. The zero-value default is structural
// key equality (Normalize is the identity function); a supplied Comparer
// can fold keys onto a coarser equivalence, such as case-insensitive
// string comparison.
type Comparer[K comparable] interface {
	Normalize(key K) K
}

// defaultComparer implements structural key equality: Normalize is the
// identity function, so two keys compare equal exactly when Go's built-in
// comparable equality says they do.
type defaultComparer[K comparable] struct{}

func (defaultComparer[K]) Normalize(key K) K { return key }

// CaseInsensitiveComparer folds string keys to lower case before lookup,
// giving case-insensitive semantics over an otherwise case-sensitive
// built-in map.
type CaseInsensitiveComparer struct{}

func (CaseInsensitiveComparer) Normalize(key string) string {
	return strings.ToLower(key)
}
