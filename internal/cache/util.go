package cache

import "reflect"

// isNilKey reports whether key is a nil value of a kind for which "null" is
// meaningful (pointer, interface, map, slice, channel, function). For any
// other kind — integers, plain structs, arrays — the concept of a null key
// simply does not apply, so those kinds never fail this check.
func isNilKey[K comparable](key K) bool {
	v := reflect.ValueOf(key)
	if !v.IsValid() {
		// A nil interface key carries no dynamic value at all.
		return true
	}
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return v.IsNil()
	default:
		return false
	}
}
