// Package publish exports finished bundle artifacts: it lays them out
// in a local dist directory and optionally uploads that directory to
// an S3 bucket.
package publish

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/skiff-dev/skiff/internal/bundler"
	"github.com/skiff-dev/skiff/internal/errors"
)

// ManifestFileName is the manifest written at the dist root.
const ManifestFileName = "manifest.json"

// Manifest describes an exported artifact set.
type Manifest struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// CreatedAt is when the export was produced.
	CreatedAt time.Time `json:"createdAt"`

	// Bundles lists the per-platform artifacts, dist-relative.
	Bundles []BundleEntry `json:"bundles"`
}

// BundleEntry is one platform's artifact set in the manifest.
type BundleEntry struct {
	Platform          string       `json:"platform"`
	Bundle            string       `json:"bundle"`
	SourceMap         string       `json:"sourceMap,omitempty"`
	Bytecode          string       `json:"bytecode,omitempty"`
	BytecodeSourceMap string       `json:"bytecodeSourceMap,omitempty"`
	Assets            []AssetEntry `json:"assets,omitempty"`
}

// AssetEntry is one exported asset in the manifest.
type AssetEntry struct {
	Path       string   `json:"path"`
	Hash       string   `json:"hash,omitempty"`
	FileHashes []string `json:"fileHashes,omitempty"`
}

// WriteDist lays bundle outputs out under dir:
//
//	<platform>/index.bundle         bundle code
//	<platform>/index.bundle.map     source map
//	<platform>/index.hbc            bytecode, when present
//	<platform>/index.hbc.map        bytecode source map, when present
//	assets/<path>                   asset files copied from the project
//	manifest.json                   artifact manifest
//
// It returns the manifest it wrote.
func WriteDist(dir, projectRoot, name string, outputs []*bundler.Output) (*Manifest, error) {
	manifest := &Manifest{
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	for _, out := range outputs {
		platform := string(out.Platform)
		platformDir := filepath.Join(dir, platform)
		if err := os.MkdirAll(platformDir, 0755); err != nil {
			return nil, exportErr(err)
		}

		entry := BundleEntry{
			Platform: platform,
			Bundle:   filepath.Join(platform, "index.bundle"),
		}
		if err := os.WriteFile(filepath.Join(dir, entry.Bundle), []byte(out.Code), 0644); err != nil {
			return nil, exportErr(err)
		}

		if out.SourceMap != "" {
			entry.SourceMap = entry.Bundle + ".map"
			if err := os.WriteFile(filepath.Join(dir, entry.SourceMap), []byte(out.SourceMap), 0644); err != nil {
				return nil, exportErr(err)
			}
		}

		if out.HasBytecode() {
			entry.Bytecode = filepath.Join(platform, "index.hbc")
			if err := os.WriteFile(filepath.Join(dir, entry.Bytecode), out.Bytecode, 0644); err != nil {
				return nil, exportErr(err)
			}
			if out.BytecodeSourceMap != "" {
				entry.BytecodeSourceMap = entry.Bytecode + ".map"
				if err := os.WriteFile(filepath.Join(dir, entry.BytecodeSourceMap), []byte(out.BytecodeSourceMap), 0644); err != nil {
					return nil, exportErr(err)
				}
			}
		}

		for _, asset := range out.Assets {
			rel := filepath.Join("assets", asset.Path)
			if err := copyAsset(filepath.Join(projectRoot, asset.Path), filepath.Join(dir, rel)); err != nil {
				return nil, exportErr(err)
			}
			entry.Assets = append(entry.Assets, AssetEntry{
				Path:       rel,
				Hash:       asset.Hash,
				FileHashes: asset.FileHashes,
			})
		}

		manifest.Bundles = append(manifest.Bundles, entry)
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, exportErr(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFileName), data, 0644); err != nil {
		return nil, exportErr(err)
	}

	return manifest, nil
}

func copyAsset(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

func exportErr(err error) error {
	return errors.New("E400").WithDetail(err.Error()).Wrap(err)
}
