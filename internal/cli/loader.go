package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"gopkg.in/yaml.v3"

	"github.com/roach88/lore/internal/compiler"
	"github.com/roach88/lore/internal/ir"
)

// LoadError is a loading failure with a CLI error code.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadPack loads and compiles a CUE rule pack from a directory.
func LoadPack(dir string) (*compiler.RulePack, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("pack directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("accessing pack directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	files, err := findCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	pack, err := compiler.CompilePack(value)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeCompile, Message: err.Error()}
	}
	return pack, nil
}

// findCUEFiles lists .cue files directly under dir, sorted.
func findCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".cue") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// LoadState reads a YAML game-state file.
func LoadState(path string) (ir.GameState, error) {
	var state ir.GameState
	data, err := os.ReadFile(path)
	if err != nil {
		return state, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading state file: %v", err)}
	}
	if err := yaml.Unmarshal(data, &state); err != nil {
		return state, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("parsing state file %s: %v", path, err)}
	}
	return state, nil
}

// candidateFile is the YAML shape of a candidate list.
type candidateFile struct {
	Candidates []yaml.Node `yaml:"candidates"`
}

// LoadCandidates reads a YAML candidate file. Each entry is decoded
// through the JSON field names so embedded conditions keep their
// tagged-union shape.
func LoadCandidates(path string) ([]ir.Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading candidates file: %v", err)}
	}

	var file candidateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("parsing candidates file %s: %v", path, err)}
	}

	candidates := make([]ir.Candidate, 0, len(file.Candidates))
	for i, node := range file.Candidates {
		var raw any
		if err := node.Decode(&raw); err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("candidates[%d]: %v", i, err)}
		}
		// YAML -> JSON bridge: candidates use json tags, and the
		// Candidate decoder routes conditions through the tagged-union
		// codec.
		jsonBytes, err := json.Marshal(raw)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("candidates[%d]: %v", i, err)}
		}
		var cand ir.Candidate
		if err := json.Unmarshal(jsonBytes, &cand); err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("candidates[%d]: %v", i, err)}
		}
		if cand.Kind == "" {
			cand.Kind = ir.KindFromID(cand.ID)
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}
