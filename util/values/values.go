package values

// Response statuses. util.StatusCode maps each to an HTTP status code.
const (
	Success        = "success"
	Created        = "created"
	Held           = "held"
	Error          = "error"
	Failed         = "failed"
	BadRequestBody = "bad_request"
	Unprocessable  = "unprocessable"
	NotAllowed     = "not_allowed"
	Conflict       = "conflict"
	NotFound       = "not_found"
	NotAuthorised  = "not_authorised"
	TokenExpired   = "token_expired"
	TooManyRequest = "too_many_requests"
	Unavailable    = "unavailable"
)

const SystemErr = "something went wrong, please try again later"

const (
	HeaderRequestSource = "X-Request-Source"
	HeaderRequestID     = "X-Request-ID"
)

type contextKey string

const (
	ContextTracingKey contextKey = "tracing"
	ContextUserIDKey  contextKey = "user_id"
	ContextUserKey    contextKey = "user"
)
