package domain

// SubjectID is the identity asserted by the identity provider (JWT "sub") or
// forwarded by the gateway in X-User-ID. Its format is controlled by the IdP.
type SubjectID string

// UserID is an internal identifier for a user record.
type UserID string

// ActivityID is an internal identifier for an activity record.
type ActivityID string
