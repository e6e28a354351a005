package cli_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/graph-guard/intscan/pkg/cli"

	"github.com/stretchr/testify/require"
)

func helpOutput(execName string) string {
	return lines(
		fmt.Sprintf("usage: %s <command> [flags]", execName),
		"",
		"commands available:",
		" parse - parses integers from arguments",
		" extract - parses integers from a JSON document",
		" serve - turns the CLI into a server and starts listening",
		" help - prints this help",
	)
}

func parseUsage(execName string) string {
	return lines(
		"",
		fmt.Sprintf("usage: %s parse [flags] <input>...", execName),
		"",
		"flags:",
		"-config <path>: defines the configuration directory path "+
			"(default: ./config)",
		"-profile <id>: uses the configured profile "+
			"(mutually exclusive with -type, -strategy and -ignore)",
		"-type <type>: defines the target integer type (default: int64)",
		"-strategy <table|pack>: defines how ignored characters "+
			"are tested (default: table)",
		"-ignore <chars>: defines the ignored characters",
	)
}

func extractUsage(execName string) string {
	return lines(
		"",
		fmt.Sprintf("usage: %s extract -profile <id> -path <path>... [file]",
			execName),
		"",
		"reads the JSON document from file, or stdin if no file is given.",
		"",
		"flags:",
		"-config <path>: defines the configuration directory path "+
			"(default: ./config)",
		"-profile <id>: defines the configured profile to parse with",
		"-path <path>: defines a path of a value to parse, repeatable",
	)
}

func TestNoArgs(t *testing.T) {
	out := new(bytes.Buffer)
	c := cli.Parse(out, nil)
	require.Nil(t, c)
	require.Equal(t, helpOutput("intscan"), out.String())
}

func TestNoCommand(t *testing.T) {
	out := new(bytes.Buffer)
	c := cli.Parse(out, []string{"execname"})
	require.Nil(t, c)
	require.Equal(t, helpOutput("execname"), out.String())
}

func TestUnknownCommand(t *testing.T) {
	out := new(bytes.Buffer)
	c := cli.Parse(out, []string{"execname", "unknown-command"})
	require.Nil(t, c)
	require.Equal(t, helpOutput("execname"), out.String())
}

func TestCommandHelp(t *testing.T) {
	out := new(bytes.Buffer)
	c := cli.Parse(out, []string{"execname", "help"})
	require.Nil(t, c)
	require.Equal(t, helpOutput("intscan"), out.String())
}

func TestCommandParse(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		out := new(bytes.Buffer)
		c := cli.Parse(out, []string{"intscan", "parse", "42", "-7"})
		require.Equal(t, cli.CommandParse{
			Type:     "int64",
			Strategy: "table",
			Inputs:   []string{"42", "-7"},
		}, c)
		require.Equal(t, "", out.String())
	})

	t.Run("ad_hoc", func(t *testing.T) {
		out := new(bytes.Buffer)
		c := cli.Parse(out, []string{
			"intscan", "parse",
			"-type", "uint16",
			"-strategy", "pack",
			"-ignore", "_,",
			"0x_ff",
		})
		require.Equal(t, cli.CommandParse{
			Type:     "uint16",
			Strategy: "pack",
			Ignore:   "_,",
			Inputs:   []string{"0x_ff"},
		}, c)
		require.Equal(t, "", out.String())
	})

	t.Run("profile", func(t *testing.T) {
		out := new(bytes.Buffer)
		c := cli.Parse(out, []string{
			"intscan", "parse",
			"-config", "./custom_config",
			"-profile", "port",
			"8080",
		})
		require.Equal(t, cli.CommandParse{
			ConfigDirPath: "./custom_config",
			ProfileID:     "port",
			Inputs:        []string{"8080"},
		}, c)
		require.Equal(t, "", out.String())
	})

	t.Run("profile_conflict", func(t *testing.T) {
		out := new(bytes.Buffer)
		c := cli.Parse(out, []string{
			"intscan", "parse",
			"-profile", "port",
			"-ignore", "_",
			"8080",
		})
		require.Nil(t, c)
		require.Equal(t, lines(
			"-profile and -ignore are mutually exclusive.",
		)+parseUsage("intscan"), out.String())
	})

	t.Run("no_inputs", func(t *testing.T) {
		out := new(bytes.Buffer)
		c := cli.Parse(out, []string{"intscan", "parse", "-type", "int8"})
		require.Nil(t, c)
		require.Equal(t, lines("no inputs.")+parseUsage("intscan"), out.String())
	})

	t.Run("unknown_flags", func(t *testing.T) {
		out := new(bytes.Buffer)
		c := cli.Parse(out, []string{
			"intscan", "parse",
			"-unknown", "foobar",
		})
		require.Nil(t, c)
		require.Equal(t, lines(
			"flag provided but not defined: -unknown",
		)+parseUsage("intscan"), out.String())
	})
}

func TestCommandExtract(t *testing.T) {
	t.Run("stdin", func(t *testing.T) {
		out := new(bytes.Buffer)
		c := cli.Parse(out, []string{
			"intscan", "extract",
			"-profile", "port",
			"-path", "server.port",
			"-path", "proxy.port",
		})
		require.Equal(t, cli.CommandExtract{
			ConfigDirPath: cli.DefaultConfigDirPath,
			ProfileID:     "port",
			Paths:         []string{"server.port", "proxy.port"},
		}, c)
		require.Equal(t, "", out.String())
	})

	t.Run("file", func(t *testing.T) {
		out := new(bytes.Buffer)
		c := cli.Parse(out, []string{
			"intscan", "extract",
			"-config", "/etc/intscan",
			"-profile", "port",
			"-path", "port",
			"./doc.json",
		})
		require.Equal(t, cli.CommandExtract{
			ConfigDirPath: "/etc/intscan",
			ProfileID:     "port",
			Paths:         []string{"port"},
			FilePath:      "./doc.json",
		}, c)
		require.Equal(t, "", out.String())
	})

	for _, td := range []struct {
		name   string
		args   []string
		expect string
	}{
		{
			"no_profile",
			[]string{"-path", "x"},
			lines("-profile isn't set."),
		},
		{
			"no_path",
			[]string{"-profile", "port"},
			lines("-path isn't set."),
		},
		{
			"too_many_arguments",
			[]string{"-profile", "port", "-path", "x", "a.json", "b.json"},
			lines("too many arguments."),
		},
	} {
		t.Run(td.name, func(t *testing.T) {
			out := new(bytes.Buffer)
			c := cli.Parse(out, append([]string{"intscan", "extract"}, td.args...))
			require.Nil(t, c)
			require.Equal(t, td.expect+extractUsage("intscan"), out.String())
		})
	}
}

func TestCommandServe(t *testing.T) {
	t.Setenv(cli.EnvJWTSecret, "testsecret")

	t.Run("default_config_path", func(t *testing.T) {
		out := new(bytes.Buffer)
		c := cli.Parse(out, []string{"intscan", "serve"})
		require.Equal(t, cli.CommandServe{
			ConfigDirPath: cli.DefaultConfigDirPath,
			JWTSecret:     "testsecret",
		}, c)
		require.Equal(t, "", out.String())
	})

	t.Run("custom_config_path", func(t *testing.T) {
		out := new(bytes.Buffer)
		c := cli.Parse(out, []string{
			"intscan", "serve",
			"-config", "./custom_config",
		})
		require.Equal(t, cli.CommandServe{
			ConfigDirPath: "./custom_config",
			JWTSecret:     "testsecret",
		}, c)
		require.Equal(t, "", out.String())
	})

	t.Run("unknown_flags", func(t *testing.T) {
		out := new(bytes.Buffer)
		c := cli.Parse(out, []string{
			"intscan", "serve",
			"-unknown", "foobar",
		})
		require.Nil(t, c)
		require.Equal(t, lines(
			"flag provided but not defined: -unknown",
			"",
			"usage: intscan serve [-config <path>]",
			"",
			"flags:",
			"-config <path>: defines the configuration directory path "+
				"(default: ./config)",
			"",
			"environment variables:",
			"INTSCAN_JWT_SECRET: JWT HMAC secret "+
				"(overrides api.jwt_secret, enables bearer auth if set)",
		), out.String())
	})
}

func lines(l ...string) string {
	var b strings.Builder
	for i := range l {
		b.WriteString(l[i])
		b.WriteString("\n")
	}
	return b.String()
}
