package types

// Class represents a user class type, Custom(name). Identity is by name;
// layout and methods live with the code generator.
type Class struct {
	typ
	name string
}

// NewClass creates a class type.
func NewClass(name string) *Class {
	return &Class{name: name}
}

// Name returns the class name.
func (c *Class) Name() string {
	return c.name
}

// String implements Type.
func (c *Class) String() string {
	return c.name
}
