package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/scribe-agent/scribe/examples"
	defaultskills "github.com/scribe-agent/scribe/skills"
)

// runInit seeds a directory with the example config and the shipped
// skill files. Existing files are left untouched.
func runInit(stdout io.Writer, dir string) error {
	if err := os.MkdirAll(filepath.Join(dir, "skills"), 0755); err != nil {
		return err
	}

	if err := seedFile(stdout, filepath.Join(dir, "scribe.yaml"), examples.ConfigYAML); err != nil {
		return err
	}

	entries, err := fs.ReadDir(defaultskills.FS, ".")
	if err != nil {
		return fmt.Errorf("read embedded skills: %w", err)
	}
	for _, e := range entries {
		data, err := fs.ReadFile(defaultskills.FS, e.Name())
		if err != nil {
			return fmt.Errorf("read embedded skill %s: %w", e.Name(), err)
		}
		if err := seedFile(stdout, filepath.Join(dir, "skills", e.Name()), data); err != nil {
			return err
		}
	}

	return nil
}

// seedFile writes content to path unless the file already exists.
func seedFile(stdout io.Writer, path string, content []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			fmt.Fprintf(stdout, "%s already exists, skipped\n", path)
			return nil
		}
		return err
	}
	defer f.Close()

	if _, err := f.Write(content); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s\n", path)
	return nil
}
