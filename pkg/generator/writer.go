package generator

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/blimu-dev/clientgen/pkg/config"
)

// writeArtifacts writes rendered artifacts below the client output directory,
// skipping excluded paths. Each file is written to a temporary sibling and
// renamed into place so readers never observe a partial file.
func writeArtifacts(client config.Client, artifacts []Artifact) (int, error) {
	written := 0
	for _, a := range artifacts {
		target := filepath.Join(client.OutDir, filepath.FromSlash(a.Path))
		if client.ShouldExcludeFile(target) {
			continue
		}
		if err := writeFileAtomic(target, a.Content); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func writeFileAtomic(target string, content []byte) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*")
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", target, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file %s: %w", target, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write file %s: %w", target, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to write file %s: %w", target, err)
	}
	return nil
}
