package build

import (
	"fmt"
	"os"
	"path/filepath"

	mferrors "github.com/gomanifold/manifold/pkg/errors"
)

// MarkerFile is the package marker written into every model directory.
const MarkerFile = "doc.go"

// EnsurePackageMarkers makes every directory of a model's package path an
// importable Go package. Existing markers are left untouched, so repeated
// builds are idempotent.
func EnsurePackageMarkers(loc Locator, modelsDir, rootPackage string) error {
	for i, dir := range loc.PackageDirs(modelsDir) {
		pkg := rootPackage
		if i > 0 {
			pkg = loc.Segments[i-1]
		}
		if err := writeMarker(dir, pkg); err != nil {
			return mferrors.NewPackageMarkerFailed(dir, err)
		}
	}
	return nil
}

func writeMarker(dir, pkg string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	marker := filepath.Join(dir, MarkerFile)
	if _, err := os.Stat(marker); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	content := fmt.Sprintf("// Code generated by manifold. DO NOT EDIT.\n\n// Package %s holds generated request models.\npackage %s\n", pkg, pkg)
	return os.WriteFile(marker, []byte(content), 0644)
}
