package knowledge

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
)

type scenarioFile struct {
	Scenarios []json.RawMessage `json:"scenarios"`
}

// IndexScenariosFromFile indexes every record of the "scenarios" list in a
// JSON file and returns how many were indexed. Records that are not JSON
// objects or fail to index are logged and skipped. If path does not exist
// it is looked up once more in the scenario base directory.
func (e *Engine) IndexScenariosFromFile(path string) (n int, err error) {
	defer func() {
		if err == nil {
			return
		}
		n = 0
		if errors.Is(err, ErrNotFound) {
			e.log.Warn("scenarios file not found", "path", path, "error", err)
			return
		}
		e.log.Error("failed to index scenarios", "path", path, "error", err)
	}()
	defer recoverInternal(&err)

	resolved, err := e.resolveScenarioPath(path)
	if err != nil {
		return 0, err
	}

	buf, err := os.ReadFile(resolved)
	if err != nil {
		return 0, fmt.Errorf("failed to read scenarios file: %w", err)
	}

	var file scenarioFile
	err = json.Unmarshal(buf, &file)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrParse, resolved, err)
	}

	for i, raw := range file.Scenarios {
		s, perr := scenarioFrom(gjson.ParseBytes(raw))
		if perr != nil {
			e.metrics.rejected.WithLabelValues(sourceScenario).Inc()
			e.log.Warn("skipping malformed scenario", "path", resolved, "index", i, "error", perr)
			continue
		}

		if e.IndexScenario(s) == nil {
			n++
		}
	}

	e.log.Info("indexed scenarios", "path", resolved, "count", n, "total", len(file.Scenarios))
	return n, nil
}

func (e *Engine) resolveScenarioPath(path string) (string, error) {
	_, err := os.Stat(path)
	if err == nil {
		return path, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to stat scenarios file: %w", err)
	}

	if e.baseDir != "" {
		alt := filepath.Join(e.baseDir, filepath.Base(path))
		if _, err := os.Stat(alt); err == nil {
			return alt, nil
		}
	}

	return "", fmt.Errorf("%w: scenarios file %s", ErrNotFound, path)
}
