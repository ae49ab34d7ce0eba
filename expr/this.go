package expr

// Builder accumulates a field-access chain starting at `this`,
// `this._` (parent) or `this._root` (root). Used as:
//
//	expr.This().Field("width")
//	expr.This().Parent().Field("c")
//	expr.This().Root().Field("d")
type Builder struct {
	parent bool
	root   bool
	fields []string
}

// This begins a new path expression at the current context.
func This() *Builder { return &Builder{} }

// Parent walks to the enclosing context before any fields are resolved.
// Must be called before any Field.
func (b *Builder) Parent() *Builder {
	b.parent = true
	return b
}

// Root walks to the topmost context before any fields are resolved. Must
// be called before any Field.
func (b *Builder) Root() *Builder {
	b.root = true
	return b
}

// Field appends a field-access step.
func (b *Builder) Field(name string) *Builder {
	b.fields = append(b.fields, name)
	return b
}

// Expr materializes the accumulated chain as a Path Expr.
func (b *Builder) Expr() Expr {
	return &Path{Parent: b.parent, Root: b.root, Fields: append([]string(nil), b.fields...)}
}
