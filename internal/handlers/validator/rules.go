package validator

import "github.com/go-playground/validator/v10"

func registerFn(tag string, fn func(fl validator.FieldLevel) bool) func(v *validator.Validate) {
	return func(v *validator.Validate) {
		_ = v.RegisterValidation(tag, fn)
	}
}

func NewSequenceValidationRules() []ValidationRule {
	return []ValidationRule{
		{
			Rule: registerFn("amino_acids", aminoAcidValidator),
		},
		{
			Rule: registerFn("protein_name", proteinNameValidator),
		},
	}
}

// NewSequenceValidator returns a validator ready to check a SequenceForm.
func NewSequenceValidator() *Validator {
	v := NewValidator()
	v.Register(NewSequenceValidationRules()...)
	return v
}
