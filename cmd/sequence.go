package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/resilience-sim/resilience-sim/sim/graph"
)

// sequenceFile is the JSON form of an operation sequence.
type sequenceFile struct {
	Name       string   `json:"name"`
	Operations []string `json:"operations"`
}

// ReadSequence loads an operation sequence for an externally ranked strategy.
// A .json file holds {"name": ..., "operations": ["3", "1 4", ...]}; any other
// file holds one operation per line, with blank lines and #-comments ignored.
// One token is a node removal, two tokens an edge addition. The returned name
// is the file's name field or, for text files, the file stem.
func ReadSequence(path string) (string, []graph.Operation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, errors.Wrapf(err, "reading sequence %s", path)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var lines []string
	if strings.EqualFold(filepath.Ext(path), ".json") {
		var sf sequenceFile
		if err := json.Unmarshal(data, &sf); err != nil {
			return "", nil, errors.Wrapf(err, "decoding sequence %s", path)
		}
		if sf.Name != "" {
			name = sf.Name
		}
		lines = sf.Operations
	} else {
		sc := bufio.NewScanner(bytes.NewReader(data))
		for sc.Scan() {
			line := sc.Text()
			if i := strings.IndexByte(line, '#'); i >= 0 {
				line = line[:i]
			}
			if strings.TrimSpace(line) != "" {
				lines = append(lines, line)
			}
		}
		if err := sc.Err(); err != nil {
			return "", nil, errors.Wrapf(err, "scanning sequence %s", path)
		}
	}

	ops := make([]graph.Operation, 0, len(lines))
	for i, line := range lines {
		op, err := graph.ParseOperation(line)
		if err != nil {
			return "", nil, errors.Wrapf(err, "sequence %s entry %d", path, i+1)
		}
		ops = append(ops, op)
	}
	logrus.Infof("Parsed sequence %s: %d operations", path, len(ops))
	return name, ops, nil
}
