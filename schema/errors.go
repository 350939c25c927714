package schema

import "errors"

var (
	// ErrInvalidDefinition a class definition that cannot be mapped, a developer error
	ErrInvalidDefinition = errors.New("invalid class definition")
	// ErrUnknownProperty property is not declared by the class or its ancestors
	ErrUnknownProperty = errors.New("unknown property")
	// ErrInvalidValue value cannot be converted to the property's data type
	ErrInvalidValue = errors.New("invalid property value")
)
