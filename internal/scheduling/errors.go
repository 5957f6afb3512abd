package scheduling

import "errors"

// Business-rule failures are sentinel errors so callers can branch with
// errors.Is without parsing messages. The store wraps driver errors into
// these; anything it cannot classify becomes ErrStorageUnavailable.
var (
	// ErrInvalidDate means the date did not match MM-DD-YYYY or is not a
	// real calendar date.
	ErrInvalidDate = errors.New("invalid date, expected MM-DD-YYYY")

	// ErrWrongRole means the session's role may not perform the operation.
	ErrWrongRole = errors.New("operation not permitted for this role")

	// ErrInvalidArgument covers malformed non-date input.
	ErrInvalidArgument = errors.New("invalid argument")

	ErrUnknownItem         = errors.New("unknown vaccine")
	ErrOutOfStock          = errors.New("vaccine out of stock")
	ErrNoProviderAvailable = errors.New("no caregiver available on that date")

	// ErrNotFound covers both a missing appointment and one belonging to
	// someone else; callers cannot tell the two apart.
	ErrNotFound = errors.New("appointment not found")

	ErrDuplicateSlot = errors.New("availability already published for that date")
	ErrDuplicateID   = errors.New("appointment id already exists")

	// ErrConflict indicates a lost race or a bug, not bad input.
	ErrConflict = errors.New("conflicting concurrent update")

	// ErrStorageUnavailable is fatal to the operation, not the process.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
