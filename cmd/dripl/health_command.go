package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dripl/internal/api"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show credential, route and dependency health from the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			health, err := client.Health(cmd.Context())
			if err != nil {
				return wrapDaemonError(err, ctx.apiAddress(cfg))
			}
			if jsonOutput {
				return writeJSON(cmd, health)
			}
			out := cmd.OutOrStdout()
			renderHealth(out, health, shouldColorize(out))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the raw health payload as JSON")
	return cmd
}

func renderHealth(out io.Writer, health api.HealthResponse, colorize bool) {
	if health.Daemon != nil {
		fmt.Fprintln(out, renderSectionHeader("Daemon", colorize))
		fmt.Fprintln(out, renderStatusLine("PID", statusInfo, strconv.Itoa(health.Daemon.PID), colorize))
		if health.Daemon.Running {
			fmt.Fprintln(out, renderStatusLine("API", statusOK, "listening on "+health.Daemon.APIAddress, colorize))
		} else {
			fmt.Fprintln(out, renderStatusLine("API", statusWarn, "serving without the daemon lock", colorize))
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, renderSectionHeader("Credentials", colorize))
	if len(health.Credentials) == 0 {
		fmt.Fprintln(out, renderStatusLine("Cookies", statusWarn, "none configured; attempts run without cookies", colorize))
	} else {
		rows := make([][]string, 0, len(health.Credentials))
		for _, cred := range health.Credentials {
			rows = append(rows, []string{
				cred.Path,
				yesNo(cred.Exists),
				strconv.FormatInt(cred.Bytes, 10),
				strconv.Itoa(cred.Lines),
			})
		}
		fmt.Fprintln(out, renderTable([]column{
			{header: "Path"},
			{header: "Present"},
			{header: "Bytes", align: alignRight},
			{header: "Lines", align: alignRight},
		}, rows))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, renderSectionHeader("Routes", colorize))
	if len(health.Routes) == 0 {
		fmt.Fprintln(out, renderStatusLine("Proxies", statusInfo, "none configured; direct egress", colorize))
	} else {
		rows := make([][]string, 0, len(health.Routes))
		for i, route := range health.Routes {
			marker := ""
			if i == health.Cursor {
				marker = "next"
			}
			rows = append(rows, []string{strconv.Itoa(i), route, marker})
		}
		fmt.Fprintln(out, renderTable([]column{
			{header: "#", align: alignRight},
			{header: "Route"},
			{header: "Cursor"},
		}, rows))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, renderSectionHeader("Dependencies", colorize))
	for _, line := range dependencyLines(health.Dependencies, colorize) {
		fmt.Fprintln(out, line)
	}

	if health.MaxConcurrent > 0 || health.FailurePolicy != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderSectionHeader("Retrieval", colorize))
		fmt.Fprintln(out, renderStatusLine("Max concurrent", statusInfo, strconv.Itoa(health.MaxConcurrent), colorize))
		fmt.Fprintln(out, renderStatusLine("Failure policy", statusInfo, health.FailurePolicy, colorize))
	}
}

func dependencyLines(deps []api.DependencyStatus, colorize bool) []string {
	if len(deps) == 0 {
		return []string{renderStatusLine("Summary", statusInfo, "no dependencies reported", colorize)}
	}
	lines := make([]string, 0, len(deps)+1)
	var missing []string
	for _, dep := range deps {
		kind, message := dependencyStatus(dep)
		if !dep.Available && !dep.Optional {
			missing = append(missing, dep.Name)
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, message, colorize))
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Summary", statusError, "missing "+strings.Join(missing, ", "), colorize))
	} else {
		lines = append(lines, renderStatusLine("Summary", statusOK, "all required dependencies available", colorize))
	}
	return lines
}

func dependencyStatus(dep api.DependencyStatus) (statusKind, string) {
	if dep.Available {
		if dep.Command != "" {
			return statusOK, fmt.Sprintf("ready (%s)", dep.Command)
		}
		return statusOK, "ready"
	}
	message := strings.TrimSpace(dep.Detail)
	if message == "" {
		message = "not available"
	}
	if dep.Optional {
		return statusWarn, message
	}
	return statusError, message
}
