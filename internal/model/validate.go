package model

import (
	"regexp"
	"time"
)

// Basic local@domain.tld shape. Uniqueness is not checked here.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s.]+$`)

// ValidateNewUser checks caller-supplied creation fields. It must be called
// before any backend call; a non-nil result is always a *ValidationError.
func ValidateNewUser(fields NewUser, now time.Time) error {
	if fields.FirstName == "" {
		return &ValidationError{Field: "firstName", Reason: "must not be empty"}
	}
	if fields.LastName == "" {
		return &ValidationError{Field: "lastName", Reason: "must not be empty"}
	}
	if !emailPattern.MatchString(fields.Email) {
		return &ValidationError{Field: "email", Reason: "must look like local@domain.tld"}
	}
	if fields.Phone == "" {
		return &ValidationError{Field: "phone", Reason: "must not be empty"}
	}
	if fields.DateOfBirth.IsZero() {
		return &ValidationError{Field: "dateOfBirth", Reason: "must be set"}
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if !fields.DateOfBirth.Before(today) {
		return &ValidationError{Field: "dateOfBirth", Reason: "must be before today"}
	}
	return nil
}

// ValidateUserPatch checks the fields present in a partial update. Date of
// birth is deliberately not re-validated on edit; ProfilePicture may be
// empty, which clears the stored value.
func ValidateUserPatch(patch UserPatch) error {
	if patch.FirstName != nil && *patch.FirstName == "" {
		return &ValidationError{Field: "firstName", Reason: "must not be empty"}
	}
	if patch.LastName != nil && *patch.LastName == "" {
		return &ValidationError{Field: "lastName", Reason: "must not be empty"}
	}
	if patch.Email != nil && !emailPattern.MatchString(*patch.Email) {
		return &ValidationError{Field: "email", Reason: "must look like local@domain.tld"}
	}
	if patch.Phone != nil && *patch.Phone == "" {
		return &ValidationError{Field: "phone", Reason: "must not be empty"}
	}
	return nil
}
