package eventstore

import (
	"git.home.luguber.info/inful/worktime/internal/foundation/errors"
)

var (
	// ErrInitializeSchemaFailed indicates the database schema could not be initialized.
	ErrInitializeSchemaFailed = errors.EventStoreError("failed to initialize event store schema").Build()

	// ErrEventAppendFailed indicates appending an event failed.
	ErrEventAppendFailed = errors.EventStoreError("failed to append event to store").Build()

	// ErrEventQueryFailed indicates querying events failed.
	ErrEventQueryFailed = errors.EventStoreError("failed to query events from store").Build()

	// ErrEventPurgeFailed indicates deleting a day's events failed.
	ErrEventPurgeFailed = errors.EventStoreError("failed to purge events").Build()

	// ErrProjectionRebuildFailed indicates rebuilding a projection failed.
	ErrProjectionRebuildFailed = errors.EventStoreError("failed to rebuild projection").Build()
)

func wrap(sentinel *errors.ClassifiedError, cause error) error {
	return errors.WrapError(cause, sentinel.Category(), sentinel.Message()).
		WithSeverity(sentinel.Severity()).
		WithRetry(sentinel.RetryStrategy()).
		Build()
}
