package validator

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const (
	// AminoAcids lists the one-letter codes of the twenty standard amino acids.
	AminoAcids = "ACDEFGHIKLMNPQRSTVWY"

	MinSequenceLength = 10
	MaxSequenceLength = 2500
	DefaultName       = "protein"
)

var (
	aminoAcidRegex   = regexp.MustCompile("^[" + AminoAcids + "]+$")
	proteinNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9 ._|:-]*$`)
)

// SequenceForm is a sequence submission after normalization.
type SequenceForm struct {
	Sequence string `validate:"required,min=10,max=2500,amino_acids"`
	Name     string `validate:"omitempty,max=100,protein_name"`
}

// NewSequenceForm normalizes a raw submission: a leading FASTA header becomes the name
// when no name is given, whitespace is removed and residues are upper-cased.
func NewSequenceForm(sequence, name string) SequenceForm {
	header, body := splitFasta(sequence)
	if strings.TrimSpace(name) == "" {
		name = header
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}

	return SequenceForm{
		Sequence: NormalizeSequence(body),
		Name:     name,
	}
}

// NormalizeSequence removes every whitespace character and upper-cases the residues.
func NormalizeSequence(sequence string) string {
	return strings.ToUpper(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, sequence))
}

func splitFasta(sequence string) (string, string) {
	trimmed := strings.TrimLeftFunc(sequence, unicode.IsSpace)
	if !strings.HasPrefix(trimmed, ">") {
		return "", sequence
	}
	header, body, _ := strings.Cut(trimmed, "\n")
	header = strings.TrimSpace(strings.TrimPrefix(header, ">"))
	// keep the identifier only, the description can be arbitrarily long
	if id, _, found := strings.Cut(header, " "); found {
		header = id
	}
	return header, body
}

func aminoAcidValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	return aminoAcidRegex.MatchString(val)
}

func proteinNameValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	return proteinNameRegex.MatchString(val)
}
