package persistence

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Load reads the "<name>.json" file written by JSONWriter.Flush back
// into rows, if it exists. A missing file is not an error: it means
// this entity kind has never been flushed (fresh station).
func Load(dir, name string, rows interface{}) error {
	path := filepath.Join(dir, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, rows)
}
