package indexerd

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions callers commonly check with errors.Is.
var (
	// ErrBackendUnavailable is returned by the Database Adapter after
	// exhausting its connection retry budget.
	ErrBackendUnavailable = errors.New("indexerd: database backend unavailable")

	// ErrSchemaMismatch is returned when a module's self-reported
	// (namespace, identifier, schema-version) does not match the registry.
	ErrSchemaMismatch = errors.New("indexerd: module schema mismatch")

	// ErrMissingEntryPoint is returned when a module lacks handle_events or
	// any other required export; the wrapping error names the missing one.
	ErrMissingEntryPoint = errors.New("indexerd: module missing handle_events export")

	// ErrBudgetExhausted is returned when a module invocation exceeds its
	// metering budget.
	ErrBudgetExhausted = errors.New("indexerd: metering budget exhausted")

	// ErrEarlyExit is returned when a module calls ff_early_exit.
	ErrEarlyExit = errors.New("indexerd: module called early exit")

	// ErrKilled is returned when a batch is aborted by the kill switch.
	ErrKilled = errors.New("indexerd: batch aborted by kill switch")

	// ErrTxInProgress reports a transaction already open on a connection.
	// No function in this module returns it.
	ErrTxInProgress = errors.New("indexerd: transaction already in progress")
)

// Kind partitions every error the core can produce into the taxonomy of §7.
// It is not a type name callers switch on directly; it is carried inside the
// typed errors below so logs and status transitions can group on it.
type Kind string

const (
	KindConfiguration     Kind = "configuration"
	KindSchema            Kind = "schema"
	KindModuleLoad        Kind = "module_load"
	KindModuleExecution   Kind = "module_execution"
	KindDatabaseTransient Kind = "database_transient"
	KindDatabaseFatal     Kind = "database_fatal"
	KindNodeTransient     Kind = "node_transient"
	KindQuery             Kind = "query"
)

// CoreError is the common shape of every error produced by the indexer core.
// Kind lets the Indexer Service's status machine decide whether the error is
// recoverable in place (transient) or terminal (fatal) without string
// matching.
type CoreError struct {
	Kind    Kind
	Op      string // component/operation that raised the error, e.g. "schema.Validate"
	Message string
	Err     error // wrapped cause, if any
}

func (e *CoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("indexerd: %s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("indexerd: %s: %s", e.Op, e.Message)
}

func (e *CoreError) Unwrap() error { return e.Err }

// Is reports whether target is a *CoreError with the same Kind, so that
// errors.Is(err, &CoreError{Kind: KindDatabaseFatal}) matches regardless of Op/Message.
func (e *CoreError) Is(target error) bool {
	var t *CoreError
	if errors.As(target, &t) {
		return t.Kind == "" || t.Kind == e.Kind
	}
	return false
}

// NewError constructs a CoreError. Components should use the Is<Kind>
// helpers below rather than inspecting Kind directly.
func NewError(kind Kind, op, message string, cause error) *CoreError {
	return &CoreError{Kind: kind, Op: op, Message: message, Err: cause}
}

func isKind(err error, k Kind) bool {
	if err == nil {
		return false
	}
	var ce *CoreError
	return errors.As(err, &ce) && ce.Kind == k
}

// IsConfiguration reports whether err is a Configuration-kind error (§7):
// invalid URLs, unsupported database scheme, malformed manifest. Fatal at startup.
func IsConfiguration(err error) bool { return isKind(err, KindConfiguration) }

// IsSchema reports whether err is a Schema-kind error: a validation rule
// violation surfaced at register time. Rejects the bundle with no state change.
func IsSchema(err error) bool { return isKind(err, KindSchema) }

// IsModuleLoad reports whether err is a Module-load error: missing entry
// point, schema/version mismatch, invalid bytecode. Marks the indexer Stopped.
func IsModuleLoad(err error) bool { return isKind(err, KindModuleLoad) }

// IsModuleExecution reports whether err is a Module-execution error: trap,
// metering exhaustion, early-exit, host-call deserialization failure. The
// current batch is reverted and retried a bounded number of times.
func IsModuleExecution(err error) bool { return isKind(err, KindModuleExecution) }

// IsDatabaseTransient reports whether err is a transient database error
// (connection lost, deadlock) eligible for backoff retry.
func IsDatabaseTransient(err error) bool { return isKind(err, KindDatabaseTransient) }

// IsDatabaseFatal reports whether err is a Database-fatal error (schema
// corruption, unique-constraint violation on the upsert path indicating row
// codec drift, or retry-ceiling exhaustion of a transient error).
func IsDatabaseFatal(err error) bool { return isKind(err, KindDatabaseFatal) }

// IsNodeTransient reports whether err is a Node-transient error (timeout,
// 5xx). Retried indefinitely with backoff; never surfaced to the Runtime Host.
func IsNodeTransient(err error) bool { return isKind(err, KindNodeTransient) }

// IsQuery reports whether err is a Query-kind error (parse error, unknown
// entity, unsupported operator), surfaced to the API boundary as a
// structured error rather than to the ingestion path.
func IsQuery(err error) bool { return isKind(err, KindQuery) }

// Fatal reports whether a Kind should terminate an indexer's run (transition
// it to Stopped) rather than be retried transparently within its component.
func (k Kind) Fatal() bool {
	switch k {
	case KindConfiguration, KindSchema, KindModuleLoad, KindDatabaseFatal:
		return true
	default:
		return false
	}
}
