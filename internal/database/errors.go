package database

import (
	"errors"

	"github.com/lib/pq"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
	ErrorClassConstraint
)

func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassPermanent
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001":
			return ErrorClassSerialization
		case "40P01":
			return ErrorClassDeadlock
		case "55P03":
			return ErrorClassTransient
		case "23505", "23503", "23502", "23514":
			return ErrorClassConstraint
		}
	}

	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	class := ClassifyError(err)
	return class == ErrorClassTransient ||
		class == ErrorClassDeadlock ||
		class == ErrorClassSerialization
}

// IsConstraintViolation reports whether the store rejected a write on an
// integrity constraint (unique, foreign key, not null, check).
func IsConstraintViolation(err error) bool {
	return ClassifyError(err) == ErrorClassConstraint
}

func IsUniqueViolation(err error) bool {
	return hasCode(err, "23505")
}

func IsForeignKeyViolation(err error) bool {
	return hasCode(err, "23503")
}

// IsLockNotAvailable reports a NOWAIT lock that another transaction holds.
func IsLockNotAvailable(err error) bool {
	return hasCode(err, "55P03")
}

// ViolatedConstraint names the constraint behind an integrity error, or
// returns "" for any other error.
func ViolatedConstraint(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}

func hasCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}

var (
	ErrClientNotFound       = errors.New("client not found")
	ErrClientInactive       = errors.New("client is inactive")
	ErrProductNotFound      = errors.New("product not found")
	ErrDuplicateProduct     = errors.New("product id already exists")
	ErrPriceLevelNotFound   = errors.New("price level not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderNotPending      = errors.New("order is not pending")
	ErrOptimisticLockFailed = errors.New("optimistic lock failed")
	ErrLockTimeout          = errors.New("order is locked by another request")
	ErrZoneNotFound         = errors.New("delivery zone not found")
	ErrDuplicateZone        = errors.New("delivery zone code already exists")
	ErrZoneInUse            = errors.New("delivery zone is assigned to clients")
)
