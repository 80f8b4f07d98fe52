package users

import "github.com/fitness-tracker/fitness-platform/internal/domain"

// Optional is a tri-state field used to distinguish:
// - unspecified (omitted)
// - specified as null
// - specified with a value
type Optional[T any] struct {
	specified bool
	isNull    bool
	value     T
}

func Unspecified[T any]() Optional[T] { return Optional[T]{} }
func Null[T any]() Optional[T]        { return Optional[T]{specified: true, isNull: true} }
func Some[T any](v T) Optional[T]     { return Optional[T]{specified: true, value: v} }

func (o Optional[T]) IsSpecified() bool { return o.specified }
func (o Optional[T]) IsNull() bool      { return o.specified && o.isNull }
func (o Optional[T]) Value() T          { return o.value }

// RegisterInput registers the user bound to Subject. Exactly one of Password or
// External must be set.
type RegisterInput struct {
	Subject   domain.SubjectID
	Email     string
	FirstName string
	LastName  string

	Password string
	External bool
}

type UpdateMyProfileInput struct {
	FirstName Optional[string] // null clears
	LastName  Optional[string] // null clears
	Email     Optional[string] // cannot be null
}
