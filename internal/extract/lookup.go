package extract

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"onetmart/pkg/domain"
)

// MajorGroups reads the auxiliary major-group lookup CSV (columns
// code_full,name). An absent file yields zero rows, not an error.
func MajorGroups(path string) ([]domain.MajorGroup, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open lookup %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read lookup header: %w", err)
	}
	idx := map[string]int{}
	for i, col := range header {
		idx[col] = i
	}
	full, okFull := idx["code_full"]
	name, okName := idx["name"]
	if !okFull || !okName {
		return nil, fmt.Errorf("lookup %s: missing code_full/name columns", path)
	}
	var out []domain.MajorGroup
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read lookup row: %w", err)
		}
		out = append(out, domain.MajorGroup{CodeFull: rec[full], Name: rec[name]})
	}
	return out, nil
}
