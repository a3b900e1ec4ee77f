package constants

import "time"

// Context keys
const (
	ContextKeyUserID    = "user_id"
	ContextKeyRequestID = "request_id"
)

// Session
const (
	SessionCookieName = "taskgenie_session"
	SessionMaxAge     = 86400 * 7
)

// Auth
const (
	MinPasswordLength = 8
	MinUsernameLength = 3
	MaxUsernameLength = 50
	TokenIssuer       = "taskgenie-api"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// NLP gateway
const (
	NLPClassifyPath   = "/api/nlp/classify"
	NLPBreakdownPath  = "/api/nlp/breakdown"
	DefaultNLPTimeout = 10 * time.Second
)

// Export
const (
	ExportDateLayout   = "2006-01-02"
	ExportTagSeparator = "; "
)
