package preflight

import (
	"dripl/internal/config"
	"dripl/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes every preflight check for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	for _, status := range deps.CheckDownloader(cfg.Downloader.Binary, cfg.Downloader.FFmpegLocation) {
		results = append(results, fromDependency(status))
	}
	results = append(results, CheckCookieBundles(cfg.Credentials.CookiePaths))
	return results
}

// Failures returns the results that did not pass, including optional ones.
func Failures(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}

func fromDependency(status deps.Status) Result {
	result := Result{
		Name:     status.Name,
		Passed:   status.Available,
		Optional: status.Optional,
		Detail:   status.Detail,
	}
	if status.Available {
		result.Detail = status.Command
	}
	return result
}
