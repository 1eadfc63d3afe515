// Package unidoc configures the unipdf metered license shared by PDF reading
// and PDF export.
package unidoc

import (
	"errors"
	"sync"

	"github.com/unidoc/unipdf/v3/common/license"
)

// ErrUnlicensed is returned by PDF text extraction and PDF export when no
// license key has been installed. unipdf refuses both without one.
var ErrUnlicensed = errors.New("PDF support needs a unidoc license key (set pdf.license_key or UNIDOC_LICENSE_KEY)")

var (
	mu      sync.Mutex
	tried   bool
	initErr error
)

// SetLicense installs key the first time it is called with a non-empty key.
// Later calls return the first result.
func SetLicense(key string) error {
	if key == "" {
		return nil
	}
	mu.Lock()
	defer mu.Unlock()
	if !tried {
		tried = true
		initErr = license.SetMeteredKey(key)
	}
	return initErr
}

// Licensed reports whether a key was installed successfully.
func Licensed() bool {
	mu.Lock()
	defer mu.Unlock()
	return tried && initErr == nil
}
