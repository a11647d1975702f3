package resource

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// MissingFieldsError lists required fields that are absent or empty.
type MissingFieldsError struct {
	Resource string
	Fields   []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("%s: missing required fields: %s", e.Resource, strings.Join(e.Fields, ", "))
}

// ValidateRequired checks that every required field of d is present in rec.
// It is the only check made before a record is sent to the API.
func ValidateRequired(d Descriptor, rec Record) error {
	var missing []string
	for _, f := range d.Required {
		v, ok := rec[f]
		if !ok || v == nil || validate.Var(v, "required") != nil {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Resource: d.Name, Fields: missing}
	}
	return nil
}
