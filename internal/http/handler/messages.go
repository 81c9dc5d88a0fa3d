package handler

const (
	jsonKeyError   = "error"
	jsonKeyMessage = "message"

	msgContentTypeJSONRequired = "Content-Type must be application/json"
	msgInvalidRequestBody      = "invalid request body"
	msgInvalidCredentials      = "invalid email or password"
	msgInvalidOTP              = "invalid or expired verification code"
	msgOTPRequired             = "verification code sent"
	msgSignInRequired          = "sign in required"
	msgReportResolved          = "report resolved"
	msgRoleUpdated             = "role updated"
	msgOwnRoleChange           = "you cannot change your own role"
	msgInvalidRole             = "unknown role"
	msgInvalidPage             = "page and page_size must be positive integers"
	msgInvalidStatusFilter     = "invalid status filter"
	msgAccessDenied            = "access denied"
	msgInvalidActor            = "invalid actor filter"
	msgInvalidResourceFilter   = "invalid resource filter"
	msgInvalidSince            = "since must be an RFC 3339 timestamp"
	msgInvalidLimit            = "limit must be a positive integer and offset non-negative"
)
