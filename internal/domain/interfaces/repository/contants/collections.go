package repocontants

const (
	SESSION_COLLECTION = "sessions"
	SESSION_KEY_FIELD  = "session_key"
)
