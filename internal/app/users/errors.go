package users

// Error is an application-layer error that can be mapped to an HTTP response.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

func validationError(field, message string) *Error {
	return &Error{
		Status:  422,
		Code:    "VALIDATION_ERROR",
		Message: "invalid " + field,
		Details: map[string]any{field: message},
	}
}

func errEmailInUse() *Error {
	return &Error{
		Status:  409,
		Code:    "EMAIL_ALREADY_IN_USE",
		Message: "email address is already in use",
	}
}

func errNotProvisioned() *Error {
	return &Error{
		Status:  404,
		Code:    "USER_NOT_PROVISIONED",
		Message: "No user profile exists for the authenticated identity.",
	}
}
