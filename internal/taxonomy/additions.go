package taxonomy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ledgerworks/taxpass/internal/model"
)

// Addition is one client-specific category declared in a YAML additions
// file. Additions are scoped to a tax year.
type Addition struct {
	Worksheet string `yaml:"worksheet"`
	Name      string `yaml:"name"`
	TaxYear   int    `yaml:"tax_year"`
}

// AdditionsFile is the on-disk shape of a client taxonomy additions file.
type AdditionsFile struct {
	Categories []Addition `yaml:"categories"`
}

// LoadAdditions parses a client taxonomy additions file and validates it
// against the fixed worksheet set.
func LoadAdditions(path string) ([]model.TaxCategory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy additions: %w", err)
	}

	var file AdditionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy additions: %w", err)
	}

	cats := make([]model.TaxCategory, 0, len(file.Categories))
	for i, add := range file.Categories {
		ws := model.Worksheet(add.Worksheet)
		if !ws.Valid() {
			return nil, fmt.Errorf("addition %d: unknown worksheet %q", i, add.Worksheet)
		}
		if add.Name == "" {
			return nil, fmt.Errorf("addition %d: name is required", i)
		}
		if add.Name == model.PersonalExpenseCategory {
			return nil, fmt.Errorf("addition %d: %q is reserved", i, add.Name)
		}
		if add.TaxYear == 0 {
			return nil, fmt.Errorf("addition %d: tax_year is required", i)
		}
		cats = append(cats, model.TaxCategory{
			Worksheet: ws,
			Name:      add.Name,
			TaxYear:   add.TaxYear,
			IsActive:  true,
		})
	}
	return cats, nil
}
