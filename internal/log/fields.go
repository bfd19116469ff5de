package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldQuery       = "query"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldErrorType   = "error_type"
	FieldOperation   = "operation"
	FieldProfile     = "profile"
	FieldUserID      = "user_id"
	FieldRole        = "role"
	FieldView        = "view"
	FieldResource    = "resource"
	FieldCount       = "count"
	FieldTargets     = "targets"
	FieldReportURL   = "report_url"
	FieldBackendPath = "backend_path"
	FieldOrigin      = "origin"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentSession   = "session"
	ComponentGuard     = "guard"
	ComponentResource  = "resource"
	ComponentSelection = "selection"
	ComponentReport    = "report"
	ComponentNotify    = "notify"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentRedis     = "redis"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
	ComponentTemplate  = "template"
	ComponentView      = "view"
)

// Operations defines standard operation names
const (
	OpRead      = "read"
	OpDelete    = "delete"
	OpDeleteAll = "delete_all"
	OpList      = "list"
	OpLogin     = "login"
	OpLogout    = "logout"
	OpGenerate  = "generate"
	OpBroadcast = "broadcast"
	OpValidate  = "validate"
	OpRender    = "render"
	OpSweep     = "sweep"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeServer        = "server_error"
	ErrorTypeAuth          = "auth_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds error field; nil errors are skipped.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithErrorType(t string) LogFields {
	f[FieldErrorType] = t
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithSession adds the identity fields of a session.
func (f LogFields) WithSession(profile, userID, role string) LogFields {
	f[FieldProfile] = profile
	if userID != "" {
		f[FieldUserID] = userID
	}
	if role != "" {
		f[FieldRole] = role
	}
	return f
}

// WithBulk adds fields describing a destructive list action.
func (f LogFields) WithBulk(resource string, targets int, all bool) LogFields {
	f[FieldResource] = resource
	f[FieldTargets] = targets
	f["delete_all"] = all
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
