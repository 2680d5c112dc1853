package errors

// ErrorCode represents a specific error code in the system.
type ErrorCode string

const (
	// GeneralInternalServerError represents a generic internal error.
	GeneralInternalServerError ErrorCode = "general_internal_server_error"
	// GeneralBadRequestError represents a generic bad request error.
	GeneralBadRequestError ErrorCode = "general_bad_request_error"
	// GeneralNotFoundError represents a generic not found error.
	GeneralNotFoundError ErrorCode = "general_not_found_error"
	// GeneralRepositoryError represents a generic repository error.
	GeneralRepositoryError ErrorCode = "general_repository_error"

	// ErrInvalidOrderParameters is returned when an order request carries a
	// non-positive share count, a non-positive or sub-cent price, or a
	// malformed ticker.
	ErrInvalidOrderParameters ErrorCode = "invalid_order_parameters"
	// ErrUserNotFound is returned when the submitting user does not exist.
	ErrUserNotFound ErrorCode = "user_not_found"
	// ErrStockNotFound is returned when the requested ticker does not exist.
	ErrStockNotFound ErrorCode = "stock_not_found"
	// ErrAccountFrozen is returned when a party's account is frozen.
	ErrAccountFrozen ErrorCode = "account_frozen"
	// ErrStockFrozen is returned when the instrument is halted.
	ErrStockFrozen ErrorCode = "stock_frozen"
	// ErrInsufficientFunds is returned when a buyer cannot cover price*shares.
	ErrInsufficientFunds ErrorCode = "insufficient_funds"
	// ErrInsufficientShares is returned when a seller holds fewer shares than offered.
	ErrInsufficientShares ErrorCode = "insufficient_shares"
	// ErrOrderNotFound is returned when the referenced order is not open.
	ErrOrderNotFound ErrorCode = "order_not_found"
	// ErrNotOwner is returned when a user acts on an order they did not place.
	ErrNotOwner ErrorCode = "not_owner"
	// ErrConflictRetriesExhausted is returned after settlement exhausted its
	// bounded retries against transaction serialization conflicts.
	ErrConflictRetriesExhausted ErrorCode = "conflict_retries_exhausted"
	// ErrAlreadyLinked is returned when registering an external identity that
	// is already bound to an account.
	ErrAlreadyLinked ErrorCode = "already_linked"
	// ErrInvariantViolation marks a state transition that must never happen in
	// correct operation. Never retried, never swallowed.
	ErrInvariantViolation ErrorCode = "invariant_violation"

	// RedisConfigError represents an invalid or nil Redis configuration.
	RedisConfigError ErrorCode = "redis_config_error"
	// RedisConnectionError represents an error when connecting to Redis.
	RedisConnectionError ErrorCode = "redis_connection_error"
	// RedisGetError represents an error when getting a value from Redis.
	RedisGetError ErrorCode = "redis_get_error"
	// RedisSetError represents an error when setting a value in Redis.
	RedisSetError ErrorCode = "redis_set_error"
	// RedisDelError represents an error when deleting a value from Redis.
	RedisDelError ErrorCode = "redis_del_error"
)
