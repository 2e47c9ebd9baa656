package publish

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/skiff-dev/skiff/internal/bundler"
	"github.com/skiff-dev/skiff/internal/errors"
)

func sampleOutputs() []*bundler.Output {
	return []*bundler.Output{
		{
			Platform:          bundler.PlatformIOS,
			Code:              "ios-code",
			SourceMap:         `{"version":3}`,
			Bytecode:          []byte{0xde, 0xad},
			BytecodeSourceMap: `{"version":3,"hbc":true}`,
			Assets: []bundler.Asset{
				{Path: "img/logo.png", Hash: "h1", FileHashes: []string{"fh1"}},
			},
		},
		{
			Platform: bundler.PlatformAndroid,
			Code:     "android-code",
		},
	}
}

func writeSampleProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "img"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "img", "logo.png"), []byte("png"), 0644); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestWriteDist(t *testing.T) {
	root := writeSampleProject(t)
	dist := t.TempDir()

	manifest, err := WriteDist(dist, root, "demo", sampleOutputs())
	if err != nil {
		t.Fatalf("WriteDist() error = %v", err)
	}

	for _, rel := range []string{
		"ios/index.bundle",
		"ios/index.bundle.map",
		"ios/index.hbc",
		"ios/index.hbc.map",
		"android/index.bundle",
		filepath.Join("assets", "img", "logo.png"),
		ManifestFileName,
	} {
		if _, err := os.Stat(filepath.Join(dist, rel)); err != nil {
			t.Errorf("missing artifact %s: %v", rel, err)
		}
	}

	code, _ := os.ReadFile(filepath.Join(dist, "ios", "index.bundle"))
	if string(code) != "ios-code" {
		t.Errorf("ios bundle = %q", code)
	}

	if manifest.Name != "demo" || len(manifest.Bundles) != 2 {
		t.Errorf("manifest = %+v", manifest)
	}
	ios := manifest.Bundles[0]
	if ios.Bytecode == "" || ios.BytecodeSourceMap == "" {
		t.Errorf("ios entry missing bytecode paths: %+v", ios)
	}
	if len(ios.Assets) != 1 || ios.Assets[0].Hash != "h1" {
		t.Errorf("ios assets = %+v", ios.Assets)
	}
	android := manifest.Bundles[1]
	if android.Bytecode != "" || android.SourceMap != "" {
		t.Errorf("android entry should have no optional artifacts: %+v", android)
	}

	data, err := os.ReadFile(filepath.Join(dist, ManifestFileName))
	if err != nil {
		t.Fatal(err)
	}
	var onDisk Manifest
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("manifest not JSON: %v", err)
	}
	if len(onDisk.Bundles) != 2 {
		t.Errorf("on-disk manifest = %+v", onDisk)
	}
}

func TestWriteDist_MissingAsset(t *testing.T) {
	outputs := []*bundler.Output{{
		Platform: bundler.PlatformIOS,
		Code:     "code",
		Assets:   []bundler.Asset{{Path: "img/gone.png"}},
	}}

	_, err := WriteDist(t.TempDir(), t.TempDir(), "demo", outputs)
	if err == nil {
		t.Fatal("WriteDist() should fail when an asset file is missing")
	}
	se, ok := err.(*errors.SkiffError)
	if !ok || se.Code != "E400" {
		t.Errorf("error = %v, want E400", err)
	}
}

// fakePutter records uploaded objects.
type fakePutter struct {
	objects map[string]putRecord
	err     error
}

type putRecord struct {
	body        []byte
	contentType string
}

func (f *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.objects == nil {
		f.objects = make(map[string]putRecord)
	}
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*params.Key] = putRecord{body: body, contentType: *params.ContentType}
	return &s3.PutObjectOutput{}, nil
}

func TestUpload(t *testing.T) {
	root := writeSampleProject(t)
	dist := t.TempDir()
	if _, err := WriteDist(dist, root, "demo", sampleOutputs()); err != nil {
		t.Fatal(err)
	}

	putter := &fakePutter{}
	u := NewUploader(putter, "artifacts", "builds/42", zerolog.Nop())
	if err := u.Upload(context.Background(), dist); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	keys := make([]string, 0, len(putter.objects))
	for k := range putter.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	wantKeys := []string{
		"builds/42/android/index.bundle",
		"builds/42/assets/img/logo.png",
		"builds/42/ios/index.bundle",
		"builds/42/ios/index.bundle.map",
		"builds/42/ios/index.hbc",
		"builds/42/ios/index.hbc.map",
		"builds/42/manifest.json",
	}
	if len(keys) != len(wantKeys) {
		t.Fatalf("uploaded keys = %v, want %v", keys, wantKeys)
	}
	for i := range keys {
		if keys[i] != wantKeys[i] {
			t.Errorf("key[%d] = %q, want %q", i, keys[i], wantKeys[i])
		}
	}

	bundle := putter.objects["builds/42/ios/index.bundle"]
	if string(bundle.body) != "ios-code" {
		t.Errorf("uploaded bundle body = %q", bundle.body)
	}
	if bundle.contentType != "application/javascript" {
		t.Errorf("bundle content type = %q", bundle.contentType)
	}
	if ct := putter.objects["builds/42/manifest.json"].contentType; ct != "application/json" {
		t.Errorf("manifest content type = %q", ct)
	}
}

func TestUpload_PutFailure(t *testing.T) {
	root := writeSampleProject(t)
	dist := t.TempDir()
	if _, err := WriteDist(dist, root, "demo", sampleOutputs()); err != nil {
		t.Fatal(err)
	}

	putter := &fakePutter{err: context.DeadlineExceeded}
	u := NewUploader(putter, "artifacts", "", zerolog.Nop())

	err := u.Upload(context.Background(), dist)
	if err == nil {
		t.Fatal("Upload() should fail when a put fails")
	}
	se, ok := err.(*errors.SkiffError)
	if !ok || se.Code != "E400" {
		t.Errorf("error = %v, want E400", err)
	}
}
