package testsetup

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/graph-guard/intscan/pkg/config"
	"gopkg.in/yaml.v3"
)

/* SPECIAL NOTE:                                     *\
\* Symlinks are not allowed in embedded filesystems! */

const (
	SetupNameBasic = "basic"
	SetupNameAuth  = "auth"
)

func ByName(name string) (s Setup, ok bool) {
	switch name {
	case SetupNameBasic:
		return read(fsBasic, SetupNameBasic), true
	case SetupNameAuth:
		return read(fsAuth, SetupNameAuth), true
	}
	return s, false
}

//go:embed basic
var fsBasic embed.FS

//go:embed auth
var fsAuth embed.FS

func Basic() Setup { return read(fsBasic, SetupNameBasic) }
func Auth() Setup  { return read(fsAuth, SetupNameAuth) }

func read(fsys fs.FS, root string) Setup {
	c, err := config.Read(fsys, root)
	panicOnErr(err)
	t, err := readTests(fsys, root)
	panicOnErr(err)
	return Setup{
		Name:   root,
		Config: c,
		Tests:  t,
	}
}

func panicOnErr(err error) {
	if err != nil {
		panic(err)
	}
}

type TestModel struct {
	Client struct {
		Input struct {
			Method   string            `yaml:"method"`
			Endpoint string            `yaml:"endpoint"`
			Headers  map[string]string `yaml:"headers"`
			Body     string            `yaml:"body"`
			BodyJSON map[string]any    `yaml:"body(JSON)"`
		} `yaml:"input"`
		ExpectResponse struct {
			Status   int               `yaml:"status"`
			Headers  map[string]string `yaml:"headers"` // Key -> Regexp
			Body     string            `yaml:"body"`
			BodyJSON map[string]any    `yaml:"body(JSON)"`
		} `yaml:"expect-response"`
	} `yaml:"client"`
}

type Setup struct {
	Name   string
	Config *config.Config
	Tests  []Test
}

type Test struct {
	Name string
	TestModel
}

func readTests(fsys fs.FS, root string) ([]Test, error) {
	var tests []Test
	d, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("reading test dir: %w", err)
	}
	for _, testFile := range d {
		n := testFile.Name()
		if !strings.HasPrefix(n, "test_") || !strings.HasSuffix(n, ".yaml") {
			continue
		}

		p := path.Join(root, n)
		m, err := readTest(fsys, p)
		if err != nil {
			return nil, err
		}

		if err := isXOR(
			m.Client.Input.Body,
			m.Client.Input.BodyJSON,
			"client.input.body",
			"client.input.body(JSON)",
		); err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		if err := isXOR(
			m.Client.ExpectResponse.Body,
			m.Client.ExpectResponse.BodyJSON,
			"client.expect-response.body",
			"client.expect-response.body(JSON)",
		); err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}

		tests = append(tests, Test{
			Name:      strings.TrimSuffix(strings.TrimPrefix(n, "test_"), ".yaml"),
			TestModel: m,
		})
	}
	return tests, nil
}

func readTest(fsys fs.FS, p string) (m TestModel, err error) {
	f, err := fsys.Open(p)
	if err != nil {
		return m, fmt.Errorf("reading test file %q: %w", p, err)
	}
	defer f.Close()

	d := yaml.NewDecoder(f)
	d.KnownFields(true)
	if err := d.Decode(&m); err != nil {
		return m, fmt.Errorf("decoding YAML %q: %w", p, err)
	}
	return m, nil
}

// isXOR returns an error if both a and b are set.
// Both being empty is allowed for empty bodies.
func isXOR(a string, b map[string]any, aTitle, bTitle string) error {
	if a == "" || b == nil {
		return nil
	}
	return fmt.Errorf(`%q (%q) and %q (%v) are mutually exclusive, `+
		`make sure you're using either of them, not both at the same time!`,
		aTitle, a, bTitle, b,
	)
}
