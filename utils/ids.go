package utils

import "github.com/google/uuid"

// IsValidID reports whether id is a well-formed resource identifier.
func IsValidID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// AllValidIDs reports whether every id is well-formed, returning the first offender otherwise.
func AllValidIDs(ids []string) (string, bool) {
	for _, id := range ids {
		if !IsValidID(id) {
			return id, false
		}
	}
	return "", true
}
