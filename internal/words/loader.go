package words

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// LoadCSV reads a catalog from a "category,word" CSV file. The first row is
// a header. Duplicate words within a category are kept once.
func LoadCSV(path string) (Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	catalog := make(Catalog)
	seen := make(map[string]struct{})
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) < 2 {
			continue
		}
		category := strings.TrimSpace(row[0])
		word := strings.TrimSpace(row[1])
		if category == "" || word == "" {
			continue
		}
		key := category + "\x00" + word
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		catalog[category] = append(catalog[category], word)
	}
	if len(catalog) == 0 {
		return nil, ErrEmptyCatalog
	}
	return catalog, nil
}
