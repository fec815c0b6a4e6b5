// Package schema loads the JWCC (JSON with Commas and Comments) table
// definition file the CLI starts from: how many columns a table has, which
// one is the primary key, and which columns should get a secondary index
// built at startup. It carries no storage semantics of its own.
package schema

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/tailscale/hujson"
)

// Table describes one table definition as read from a schema file.
type Table struct {
	Name             string `json:"name"`
	Columns          int    `json:"columns"`
	KeyColumn        int    `json:"key_column"`
	SecondaryIndexes []int  `json:"secondary_indexes,omitempty"`
}

// Load reads path as JWCC, standardizes it to plain JSON and decodes it into
// a Table. path may contain // and /* */ comments and trailing commas.
func Load(path string) (Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Table{}, errors.Wrapf(err, "reading schema file %s", path)
	}

	standardized, err := hujson.Standardize(raw)
	if err != nil {
		return Table{}, errors.Wrapf(err, "parsing schema file %s as JWCC", path)
	}

	var t Table
	if err := json.Unmarshal(standardized, &t); err != nil {
		return Table{}, errors.Wrapf(err, "decoding schema file %s", path)
	}

	if err := validate(t); err != nil {
		return Table{}, errors.Wrapf(err, "schema file %s", path)
	}
	return t, nil
}

func validate(t Table) error {
	if t.Name == "" {
		return errors.New("name is required")
	}
	if t.Columns <= 0 {
		return errors.New("columns must be positive")
	}
	if t.KeyColumn < 0 || t.KeyColumn >= t.Columns {
		return errors.Errorf("key_column %d out of range [0,%d)", t.KeyColumn, t.Columns)
	}
	for _, col := range t.SecondaryIndexes {
		if col < 0 || col >= t.Columns {
			return errors.Errorf("secondary_indexes: column %d out of range [0,%d)", col, t.Columns)
		}
	}
	return nil
}
