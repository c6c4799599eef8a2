package errs

import "fmt"

var (
	ErrSchemaMismatch   = fmt.Errorf("schema mismatch")
	ErrModelUnavailable = fmt.Errorf("model unavailable")
	ErrInvalidConfig    = fmt.Errorf("invalid config")
	ErrUnknownClass     = fmt.Errorf("unknown class")
	ErrJournalDisabled  = fmt.Errorf("prediction journal disabled")
)
