package commit

import "git.home.luguber.info/inful/worktime/internal/foundation/errors"

var (
	// ErrSubmissionFailed matches every failed delivery to the time entry API.
	ErrSubmissionFailed = errors.CommitError("time entry submission failed").Build()

	// ErrOutbox reports a failure of the local redelivery queue.
	ErrOutbox = errors.PersistenceError("commit outbox operation failed").Build()
)

func outboxErr(cause error, op string) error {
	return errors.WrapError(cause, ErrOutbox.Category(), ErrOutbox.Message()).
		WithRetry(ErrOutbox.RetryStrategy()).
		WithContext("op", op).
		Build()
}
