/*
errors.go - Error kinds for the census core

PURPOSE:
  All error kinds in one place. Registry, ledger and aggregation return
  these (possibly wrapped); presentation layers map them to messages or
  status codes with errors.Is / errors.As.

ERROR CATEGORIES:
  1. Domain errors - DuplicateDistrict, DistrictNotFound, NoCensusData
  2. Validation errors - InvalidInput
  3. Storage integrity errors - ConstraintViolation, ReferentialViolation

  Storage integrity errors should not surface past the registry and ledger:
  both pre-check before writing.
*/
package census

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDuplicateDistrict is returned when a district name is already registered.
	ErrDuplicateDistrict = errors.New("district already exists")

	// ErrDistrictNotFound is returned when a district name does not resolve.
	ErrDistrictNotFound = errors.New("district not found")

	// ErrNoCensusData is returned when a district exists but has no records.
	ErrNoCensusData = errors.New("no census data")

	// ErrInvalidInput is returned for inputs that violate entity constraints
	// (empty name, negative area, population or households).
	ErrInvalidInput = errors.New("invalid input")

	// ErrConstraintViolation is returned by a Store when a unique constraint fails.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrReferentialViolation is returned by a Store when a foreign key fails.
	ErrReferentialViolation = errors.New("referential violation")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DuplicateDistrictError names the district that already exists.
type DuplicateDistrictError struct {
	Name       string
	ExistingID DistrictID
}

func (e *DuplicateDistrictError) Error() string {
	return fmt.Sprintf("district '%s' already exists (id=%d)", e.Name, e.ExistingID)
}

func (e *DuplicateDistrictError) Unwrap() error {
	return ErrDuplicateDistrict
}

// DistrictNotFoundError names the district that could not be resolved.
type DistrictNotFoundError struct {
	Name string
}

func (e *DistrictNotFoundError) Error() string {
	return fmt.Sprintf("district '%s' not found", e.Name)
}

func (e *DistrictNotFoundError) Unwrap() error {
	return ErrDistrictNotFound
}

// NoCensusDataError names the district that has no records.
type NoCensusDataError struct {
	Name string
}

func (e *NoCensusDataError) Error() string {
	return fmt.Sprintf("no census data for '%s'", e.Name)
}

func (e *NoCensusDataError) Unwrap() error {
	return ErrNoCensusData
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing district or data.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDistrictNotFound) ||
		errors.Is(err, ErrNoCensusData)
}

// IsClientError returns true if the error is due to caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrDuplicateDistrict) ||
		IsNotFound(err)
}

// Kind returns a short stable name for the error, used for metrics labels
// and API error codes. Unknown errors are "internal".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDuplicateDistrict):
		return "duplicate_district"
	case errors.Is(err, ErrDistrictNotFound):
		return "district_not_found"
	case errors.Is(err, ErrNoCensusData):
		return "no_census_data"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrConstraintViolation):
		return "constraint_violation"
	case errors.Is(err, ErrReferentialViolation):
		return "referential_violation"
	default:
		return "internal"
	}
}
