package structure

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Structure is the typed model of a predicted structure file.
type Structure struct {
	Title  string
	Chains []Chain
}

type Chain struct {
	ID       string
	Residues []Residue
	// Sequence is the one-letter sequence of Residues, X for unknown residues.
	Sequence string
}

type Residue struct {
	Name          string
	Number        int
	InsertionCode string
	// Confidence is the B-factor column, which AlphaFold fills with the pLDDT score.
	Confidence float64
}

var oneLetterCodes = map[string]byte{
	"ALA": 'A', "ARG": 'R', "ASN": 'N', "ASP": 'D', "CYS": 'C',
	"GLN": 'Q', "GLU": 'E', "GLY": 'G', "HIS": 'H', "ILE": 'I',
	"LEU": 'L', "LYS": 'K', "MET": 'M', "PHE": 'F', "PRO": 'P',
	"SER": 'S', "THR": 'T', "TRP": 'W', "TYR": 'Y', "VAL": 'V',
}

// OneLetter maps a three-letter residue name to its one-letter code.
func OneLetter(name string) byte {
	if c, ok := oneLetterCodes[strings.ToUpper(name)]; ok {
		return c
	}
	return 'X'
}

// Parse reads the ATOM and HETATM records of the first model of a PDB file.
func Parse(r io.Reader) (*Structure, error) {
	s := &Structure{}
	chains := make(map[string]*Chain)
	order := make([]string, 0)
	inModel := false

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		record := strings.TrimSpace(field(line, 0, 6))

		switch record {
		case "TITLE":
			s.Title = strings.TrimSpace(strings.Join([]string{s.Title, strings.TrimSpace(field(line, 10, 80))}, " "))
		case "MODEL":
			inModel = true
		case "ENDMDL":
			if inModel {
				return s.finish(chains, order), nil
			}
		case "END":
			return s.finish(chains, order), nil
		case "ATOM", "HETATM":
			res, chainID, err := parseAtom(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			if record == "HETATM" && res.Name == "HOH" {
				continue
			}

			chain, ok := chains[chainID]
			if !ok {
				chain = &Chain{ID: chainID}
				chains[chainID] = chain
				order = append(order, chainID)
			}
			if n := len(chain.Residues); n > 0 {
				last := chain.Residues[n-1]
				if last.Number == res.Number && last.InsertionCode == res.InsertionCode {
					continue
				}
			}
			chain.Residues = append(chain.Residues, res)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading structure: %w", err)
	}

	return s.finish(chains, order), nil
}

func (s *Structure) finish(chains map[string]*Chain, order []string) *Structure {
	s.Chains = make([]Chain, 0, len(order))
	for _, id := range order {
		c := chains[id]
		seq := make([]byte, len(c.Residues))
		for i, r := range c.Residues {
			seq[i] = OneLetter(r.Name)
		}
		c.Sequence = string(seq)
		s.Chains = append(s.Chains, *c)
	}
	return s
}

func parseAtom(line string) (Residue, string, error) {
	if len(line) < 26 {
		return Residue{}, "", fmt.Errorf("atom record too short")
	}

	number, err := strconv.Atoi(strings.TrimSpace(field(line, 22, 26)))
	if err != nil {
		return Residue{}, "", fmt.Errorf("invalid residue number %q", field(line, 22, 26))
	}

	res := Residue{
		Name:          strings.TrimSpace(field(line, 17, 20)),
		Number:        number,
		InsertionCode: strings.TrimSpace(field(line, 26, 27)),
	}
	if b := strings.TrimSpace(field(line, 60, 66)); b != "" {
		if v, err := strconv.ParseFloat(b, 64); err == nil {
			res.Confidence = v
		}
	}

	return res, strings.TrimSpace(field(line, 21, 22)), nil
}

// field returns line[start:end] clipped to the line length. PDB columns are fixed width.
func field(line string, start, end int) string {
	if start >= len(line) {
		return ""
	}
	if end > len(line) {
		end = len(line)
	}
	return line[start:end]
}

// MeanConfidence averages the per-residue confidence of the chain.
func (c Chain) MeanConfidence() float64 {
	if len(c.Residues) == 0 {
		return 0
	}
	total := 0.0
	for _, r := range c.Residues {
		total += r.Confidence
	}
	return total / float64(len(c.Residues))
}
