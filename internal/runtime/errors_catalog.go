package runtime

// Error Message Catalog
//
// Standardized, reusable message formats, generalizing the teacher's
// internal/interp/errors/catalog.go constant table from DWScript's error
// surface to candela's five-kind ErrorKind set. Messages start lowercase
// except the divide-by-zero and root-binding ones, which keep Clojure's
// own capitalized wording; all use present tense and include relevant
// context.

const (
	// Arithmetic
	ErrMsgIntegerOverflow = "integer overflow"
	ErrMsgDivideByZero    = "Divide by zero"
	ErrMsgModByZero       = "divide by zero in mod"
	ErrMsgRemByZero       = "divide by zero in rem"

	// Type
	ErrMsgNotNumeric     = "value is not numeric: %s"
	ErrMsgNotCallable    = "value is not callable: %s"
	ErrMsgCannotCoerce   = "cannot coerce %s to float"
	ErrMsgTypeMismatch   = "cannot apply %s to %s and %s"
	ErrMsgUnexpectedType = "unexpected type: %s"

	// Arity
	ErrMsgWrongArity = "wrong number of args (%d) passed to %s"

	// Value
	ErrMsgNoRootBinding   = "Can't change/establish root binding of: %s with set"
	ErrMsgTooManyHooks    = "too many shutdown hooks registered (max %d)"
	ErrMsgInvalidBinding  = "invalid binding for %s"

	// Internal
	ErrMsgBootstrapIncomplete = "dispatch vtable not installed: %s"
	ErrMsgUnknownASTNode      = "internal error: unknown AST node %T"
)
