package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID = "session_id"
	FieldRequestID = "request_id"
	FieldTaskID    = "task_id"
	FieldAvatarID  = "avatar_id"
	FieldKBID      = "knowledge_base_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldOperation = "operation"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// HTTP fields
	FieldMethod  = "method"
	FieldPath    = "path"
	FieldStatus  = "status"
	FieldBaseURL = "base_url"
)
