package validator

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

type ErrInvalidForm struct {
	error
}

func NewErrInvalidForm(format string, args ...any) *ErrInvalidForm {
	return &ErrInvalidForm{fmt.Errorf(format, args...)}
}

var messages = map[string]map[string]string{
	"Sequence": {
		"required":    "Protein sequence is required",
		"min":         fmt.Sprintf("Sequence is too short (minimum %d amino acids)", MinSequenceLength),
		"max":         fmt.Sprintf("Sequence is too long (maximum %d amino acids)", MaxSequenceLength),
		"amino_acids": fmt.Sprintf("Invalid amino acid sequence. Only standard amino acids (%s) are allowed", AminoAcids),
	},
	"Name": {
		"max":          "Protein name is too long (maximum 100 characters)",
		"protein_name": "Invalid protein name. Use letters, digits and the characters . _ - | :",
	},
}

func translate(err error) error {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return NewErrInvalidForm("%s", err)
	}

	fe := fieldErrors[0]
	if msg, ok := messages[fe.Field()][fe.Tag()]; ok {
		return NewErrInvalidForm("%s", msg)
	}
	return NewErrInvalidForm("invalid %s", fe.Field())
}
