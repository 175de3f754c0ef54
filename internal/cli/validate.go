package cli

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/switchboard/internal/presentation/tui"
	"github.com/aretw0/switchboard/pkg/adapters/file"
	"github.com/aretw0/switchboard/pkg/flow"
	"github.com/aretw0/switchboard/pkg/providers"
)

// ValidateReport summarizes a validation run.
type ValidateReport struct {
	Files    int
	Invalid  int
	Warnings int
}

// Valid reports whether every file passed.
func (r ValidateReport) Valid() bool { return r.Invalid == 0 }

// ValidatePaths checks every flow file under paths and prints one line per
// file followed by its defects and warnings.
func ValidatePaths(w io.Writer, styler tui.Styler, paths []string) (ValidateReport, error) {
	var report ValidateReport
	files, err := collectFlowFiles(paths)
	if err != nil {
		return report, err
	}

	for _, path := range files {
		report.Files++
		def, err := file.ReadFile(path)
		if err != nil {
			report.Invalid++
			fmt.Fprintf(w, "%s %s: %v\n", styler.System("✗"), path, err)
			continue
		}
		if def.ID == "" {
			def.ID = trimExt(filepath.Base(path))
		}

		v, err := flow.Validate(def, flow.WithHandoffActions(providers.TransferToAgent))
		if err != nil {
			report.Invalid++
			fmt.Fprintf(w, "%s %s\n", styler.System("✗"), path)
			defects := flow.Defects(err)
			if defects == nil {
				fmt.Fprintf(w, "    %v\n", err)
			}
			for _, d := range defects {
				fmt.Fprintf(w, "    %s\n", d.Error())
			}
			continue
		}

		fmt.Fprintf(w, "%s %s (%s, %d nodes)\n", styler.Bot("✓"), path, v.ID(), v.Len())
		if vars := v.Variables(); len(vars) > 0 {
			fmt.Fprintf(w, "    variables: %s\n", strings.Join(vars, ", "))
		}
		for _, warn := range v.Warnings() {
			report.Warnings++
			fmt.Fprintf(w, "    warning: %s\n", warn.String())
		}
	}
	return report, nil
}

func collectFlowFiles(paths []string) ([]string, error) {
	var files []string
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isFlowFile(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func isFlowFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
