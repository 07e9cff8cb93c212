package log

// Standard field names so log lines stay greppable across components.
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldUserID    = "user_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
	FieldClientIP  = "client_ip"
	FieldBackend   = "backend"
	FieldEntity    = "entity"
	FieldAction    = "action"
	FieldError     = "error"
)

// Component names used across the service.
const (
	ComponentServer  = "server"
	ComponentHTTP    = "http"
	ComponentStorage = "storage"
	ComponentAuth    = "auth"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
)
