package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"

	"dripl/internal/credentials"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCookieBundles reports how many configured cookie candidates are
// readable. Cookies are optional: with none configured attempts run without
// --cookies, so the result is marked optional.
func CheckCookieBundles(paths []string) Result {
	result := Result{Name: "Cookie bundles", Optional: true}
	if len(paths) == 0 {
		result.Passed = true
		result.Detail = "none configured"
		return result
	}
	present := 0
	for _, path := range paths {
		if bundle, err := credentials.Inspect(path); err == nil && bundle.Exists {
			present++
		}
	}
	result.Passed = present > 0
	result.Detail = fmt.Sprintf("%d of %d present", present, len(paths))
	return result
}
