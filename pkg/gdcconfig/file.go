package gdcconfig

import (
	"os"

	"github.com/google/renameio/v2"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/lenscal/pkg/calibration"
)

// WriteFile encodes table to path atomically: the data goes to a temporary
// file in the same directory which replaces path once complete. On failure
// path is left untouched.
func WriteFile(path string, table calibration.RemapTable, opts Options) error {
	if err := table.Validate(); err != nil {
		return err
	}

	pf, err := renameio.NewPendingFile(path, renameio.WithPermissions(0644))
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to create temporary file for %s", path)
	}
	defer func() {
		if err := pf.Cleanup(); err != nil {
			logrus.Warnf("failed to remove temporary file %s", pf.Name())
		}
	}()

	if err := Encode(pf, table, opts); err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to %s", pf.Name())
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return pkgerrors.Wrapf(err, "failed to replace %s", path)
	}

	return nil
}

// ReadFile decodes the config at path.
func ReadFile(path string) (*Config, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to open file %s", path)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", path)
		}
	}(fp)

	cfg, err := Decode(fp)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to parse %s", path)
	}
	return cfg, nil
}
