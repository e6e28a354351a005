package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const EnvJWTSecret = "INTSCAN_JWT_SECRET"
const DefaultConfigDirPath = "./config"

// Command can be any of:
//
//	CommandParse
//	CommandExtract
//	CommandServe
type Command any

type CommandParse struct {
	// ConfigDirPath and ProfileID are set when a configured
	// profile is used, otherwise Type, Strategy and Ignore are set.
	ConfigDirPath string
	ProfileID     string

	Type     string
	Strategy string
	Ignore   string

	Inputs []string
}

type CommandExtract struct {
	ConfigDirPath string
	ProfileID     string
	Paths         []string

	// FilePath is empty when reading from stdin.
	FilePath string
}

type CommandServe struct {
	ConfigDirPath string
	JWTSecret     string
}

func Parse(w io.Writer, args []string) (cmd Command) {
	fm := fmt.Sprintf

	executableName := "intscan"
	if len(args) > 0 {
		executableName = filepath.Base(args[0])
	}

	flags := flag.NewFlagSet("intscan", flag.ContinueOnError)
	flags.SetOutput(w)
	flags.Usage = func() { usage(w, executableName) }

	parseFlags := func() (ok bool) {
		err := flags.Parse(args[2:])
		// flags will automatically call .Usage()
		return err == nil
	}

	if len(args) < 2 {
		flags.Usage()
		return nil
	}

	switch args[1] {
	case "parse":
		c := CommandParse{}
		flags.Usage = func() {
			writeLines(w,
				"",
				fm("usage: %s parse [flags] <input>...", executableName),
				"",
				"flags:",
				"-config <path>: defines the configuration directory path "+
					"(default: "+DefaultConfigDirPath+")",
				"-profile <id>: uses the configured profile "+
					"(mutually exclusive with -type, -strategy and -ignore)",
				"-type <type>: defines the target integer type (default: int64)",
				"-strategy <table|pack>: defines how ignored characters "+
					"are tested (default: table)",
				"-ignore <chars>: defines the ignored characters",
			)
		}

		flags.StringVar(&c.ConfigDirPath, "config", DefaultConfigDirPath, "")
		flags.StringVar(&c.ProfileID, "profile", "", "")
		flags.StringVar(&c.Type, "type", "int64", "")
		flags.StringVar(&c.Strategy, "strategy", "table", "")
		flags.StringVar(&c.Ignore, "ignore", "", "")
		if !parseFlags() {
			return nil
		}

		if c.ProfileID != "" {
			var conflict string
			flags.Visit(func(f *flag.Flag) {
				switch f.Name {
				case "type", "strategy", "ignore":
					conflict = f.Name
				}
			})
			if conflict != "" {
				writeLines(w,
					fm("-profile and -%s are mutually exclusive.", conflict),
				)
				flags.Usage()
				return nil
			}
			c.Type, c.Strategy, c.Ignore = "", "", ""
		} else {
			c.ConfigDirPath = ""
		}

		if c.Inputs = flags.Args(); len(c.Inputs) < 1 {
			writeLines(w, "no inputs.")
			flags.Usage()
			return nil
		}
		cmd = c

	case "extract":
		c := CommandExtract{}
		flags.Usage = func() {
			writeLines(w,
				"",
				fm("usage: %s extract -profile <id> -path <path>... [file]",
					executableName),
				"",
				"reads the JSON document from file, or stdin if no file is given.",
				"",
				"flags:",
				"-config <path>: defines the configuration directory path "+
					"(default: "+DefaultConfigDirPath+")",
				"-profile <id>: defines the configured profile to parse with",
				"-path <path>: defines a path of a value to parse, repeatable",
			)
		}

		var paths stringsFlag
		flags.StringVar(&c.ConfigDirPath, "config", DefaultConfigDirPath, "")
		flags.StringVar(&c.ProfileID, "profile", "", "")
		flags.Var(&paths, "path", "")
		if !parseFlags() {
			return nil
		}
		if c.ProfileID == "" {
			writeLines(w, "-profile isn't set.")
			flags.Usage()
			return nil
		}
		if len(paths) < 1 {
			writeLines(w, "-path isn't set.")
			flags.Usage()
			return nil
		}
		switch rest := flags.Args(); len(rest) {
		case 0:
		case 1:
			c.FilePath = rest[0]
		default:
			writeLines(w, "too many arguments.")
			flags.Usage()
			return nil
		}
		c.Paths = paths
		cmd = c

	case "serve":
		c := CommandServe{}
		c.JWTSecret = os.Getenv(EnvJWTSecret)

		flags.Usage = func() {
			writeLines(w,
				"",
				fm("usage: %s serve [-config <path>]", executableName),
				"",
				"flags:",
				"-config <path>: defines the configuration directory path "+
					"(default: "+DefaultConfigDirPath+")",
				"",
				"environment variables:",
				fm("%s: JWT HMAC secret "+
					"(overrides api.jwt_secret, enables bearer auth if set)",
					EnvJWTSecret),
			)
		}

		flags.StringVar(&c.ConfigDirPath, "config", DefaultConfigDirPath, "")
		if !parseFlags() {
			return nil
		}
		cmd = c

	case "help":
		PrintHelp(w)
		return nil

	default:
		flags.Usage()
		return nil
	}
	return cmd
}

func usage(w io.Writer, executableName string) {
	writeLines(w,
		fmt.Sprintf("usage: %s <command> [flags]", executableName),
		"",
		"commands available:",
		" parse - parses integers from arguments",
		" extract - parses integers from a JSON document",
		" serve - turns the CLI into a server and starts listening",
		" help - prints this help",
	)
}

type stringsFlag []string

func (s *stringsFlag) String() string { return strings.Join(*s, ",") }

func (s *stringsFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func writeLines(w io.Writer, lines ...string) {
	for i := range lines {
		_, _ = w.Write([]byte(lines[i]))
		_, _ = w.Write([]byte("\n"))
	}
}

func PrintHelp(w io.Writer) {
	usage(w, "intscan")
}
