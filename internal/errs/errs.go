package errs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel errors returned by the service layer. Handlers map them to HTTP
// statuses; none of them carries a raw store error.
var (
	ErrRaffleNotFound      = errors.New("raffle not found")
	ErrRaffleMisconfigured = errors.New("raffle has no start or end date configured")
	ErrRaffleNotActive     = errors.New("raffle is not active right now")
	ErrTicketNotFound      = errors.New("ticket not found")

	// ErrAllocationFailed masks store-level failures (connectivity, timeout).
	// Details are logged server-side, never returned to the caller.
	ErrAllocationFailed = errors.New("allocation failed")
)

// ValidationError reports malformed request input (empty number set,
// missing name or phone).
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + e.Reason
}

func Validation(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// NumberOutOfRangeError lists every requested number outside the raffle's
// numbering range.
type NumberOutOfRangeError struct {
	Numbers []int
}

func (e *NumberOutOfRangeError) Error() string {
	return "numbers out of range: " + joinNumbers(e.Numbers)
}

// NumbersTakenError lists every requested number that already has a ticket
// row for the raffle.
type NumbersTakenError struct {
	Numbers []int
}

func (e *NumbersTakenError) Error() string {
	return "numbers already taken: " + joinNumbers(e.Numbers)
}

func joinNumbers(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
