package file

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/switchboard/pkg/domain"
)

var extensions = map[string]bool{".yaml": true, ".yml": true, ".json": true}

// Source is a FlowSource over a directory tree of flow files.
// A flow without an explicit id takes the file name without extension.
type Source struct {
	dir string
}

// NewSource creates a Source rooted at dir.
func NewSource(dir string) *Source {
	return &Source{dir: dir}
}

// LoadFlow reads the flow with the given id.
func (s *Source) LoadFlow(ctx context.Context, id string) (domain.FlowDefinition, error) {
	index, err := s.scan(ctx)
	if err != nil {
		return domain.FlowDefinition{}, err
	}
	entry, ok := index[id]
	if !ok {
		return domain.FlowDefinition{}, fmt.Errorf("%w: %s", domain.ErrFlowNotFound, id)
	}
	return entry.def, nil
}

// ListFlows returns every flow id in the directory, sorted.
func (s *Source) ListFlows(ctx context.Context) ([]string, error) {
	index, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(index))
	for id := range index {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

type indexed struct {
	path string
	def  domain.FlowDefinition
}

func (s *Source) scan(ctx context.Context) (map[string]indexed, error) {
	index := make(map[string]indexed)
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !extensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		def, err := ReadFile(path)
		if err != nil {
			return err
		}
		if def.ID == "" {
			def.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		if existing, ok := index[def.ID]; ok {
			return fmt.Errorf("collision detected: flow %q is defined in both %q and %q", def.ID, existing.path, path)
		}
		index[def.ID] = indexed{path: path, def: def}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return index, nil
}
