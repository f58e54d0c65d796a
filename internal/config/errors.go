package config

const (
	ErrInitializeDatabaseFmt = "Failed to initialize database: %v"

	ErrAuthHeaderRequired     = "Authorization header required"
	ErrInvalidSignatureFormat = "Invalid signature format"
	ErrInvalidSignature       = "Invalid signature"
	ErrInternalServerError    = "Internal server error"
	ErrRefreshChallengeFmt    = "Failed to refresh challenge"

	ErrResumeNotFound  = "Resume not found"
	ErrSessionNotFound = "Editor session not found"
	ErrInvalidSeq      = "Invalid edit sequence number"
	ErrCommentEmpty    = "Comment cannot be empty"
	ErrCommentsOff     = "Comments are disabled"
)
