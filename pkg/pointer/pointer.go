// Package pointer has helpers for the optional fields of data records.
package pointer

// To returns a pointer to a copy of value
func To[T any](value T) *T {
	return &value
}

// IfValid returns a pointer to value when valid, which matches how nullable
// SQL columns are scanned
func IfValid[T any](valid bool, value T) *T {
	if !valid {
		return nil
	}
	return &value
}

// Copy returns a pointer to a copy of the pointed to value, or nil
func Copy[T any](value *T) *T {
	if value == nil {
		return nil
	}
	return To(*value)
}
