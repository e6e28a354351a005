package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/graph-guard/intscan/pkg/profile"
	"github.com/yourbasic/bit"
	yaml "gopkg.in/yaml.v3"
)

const ServerConfigFile1 = "config.yaml"
const ServerConfigFile2 = "config.yml"
const ServerConfigFile3 = "config.toml"
const ProfilesEnabledDir = "profiles_enabled"
const ProfilesDisabledDir = "profiles_disabled"
const FileExtYAML1 = ".yaml"
const FileExtYAML2 = ".yml"
const FileExtTOML = ".toml"

const DefaultReadTimeout = 10 * time.Second
const DefaultWriteTimeout = 10 * time.Second
const DefaultMaxRequestBodySize = 1024 * 1024 * 4

type Config struct {
	Host               string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	MaxRequestBodySize int
	API                API
	ProfilesEnabled    []*profile.Profile
	ProfilesDisabled   []*profile.Profile
}

type API struct {
	// JWTSecret enables bearer token authentication when not empty.
	JWTSecret string
}

// Read reads the configuration directory at dirPath.
func Read(filesystem fs.FS, dirPath string) (*Config, error) {
	d, err := fs.ReadDir(filesystem, dirPath)
	if err != nil {
		return nil, fmt.Errorf("reading config directory: %w", err)
	}

	var profilesEnabledDir bool
	var profilesDisabledDir bool
	var serverConfFile string
	var enabledPaths, disabledPaths map[string]string

	conf := &Config{}

	for _, o := range d {
		n := o.Name()
		if o.IsDir() {
			switch n {
			case ProfilesEnabledDir:
				profilesEnabledDir = true
			case ProfilesDisabledDir:
				profilesDisabledDir = true
			}
			continue
		} else if n == ServerConfigFile1 ||
			n == ServerConfigFile2 ||
			n == ServerConfigFile3 {
			if serverConfFile != "" {
				return nil, &ErrorConflict{Items: []string{
					path.Join(dirPath, serverConfFile),
					path.Join(dirPath, n),
				}}
			}
			serverConfFile = n

			p := path.Join(dirPath, n)
			var c serverConfig
			if err := decode(filesystem, p, &c); err != nil {
				return nil, err
			}
			if err := c.apply(p, conf); err != nil {
				return nil, err
			}
		}
	}

	if serverConfFile == "" {
		return nil, &ErrorMissing{
			FilePath: path.Join(dirPath, ServerConfigFile1),
		}
	}

	if profilesEnabledDir {
		p, paths, err := readProfilesDir(
			filesystem, path.Join(dirPath, ProfilesEnabledDir),
		)
		if err != nil {
			return nil, err
		}
		conf.ProfilesEnabled, enabledPaths = p, paths
	}

	if profilesDisabledDir {
		p, paths, err := readProfilesDir(
			filesystem, path.Join(dirPath, ProfilesDisabledDir),
		)
		if err != nil {
			return nil, err
		}
		conf.ProfilesDisabled, disabledPaths = p, paths
	}

	if d := duplicate(
		conf.ProfilesEnabled,
		conf.ProfilesDisabled,
		func(a, b *profile.Profile) bool { return a.ID == b.ID },
	); d != nil {
		return nil, &ErrorConflict{Items: []string{
			enabledPaths[d.ID],
			disabledPaths[d.ID],
		}}
	}

	return conf, nil
}

type serverConfig struct {
	Host               string `yaml:"host" toml:"host"`
	ReadTimeout        string `yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeout       string `yaml:"write_timeout" toml:"write_timeout"`
	MaxRequestBodySize int    `yaml:"max_request_body_size" toml:"max_request_body_size"`
	API                struct {
		JWTSecret string `yaml:"jwt_secret" toml:"jwt_secret"`
	} `yaml:"api" toml:"api"`
}

func (c *serverConfig) apply(filePath string, conf *Config) error {
	if c.Host == "" {
		return &ErrorMissing{
			FilePath: filePath,
			Feature:  "host",
		}
	}
	conf.Host = c.Host
	conf.API.JWTSecret = c.API.JWTSecret

	var err error
	if conf.ReadTimeout, err = duration(
		filePath, "read_timeout", c.ReadTimeout, DefaultReadTimeout,
	); err != nil {
		return err
	}
	if conf.WriteTimeout, err = duration(
		filePath, "write_timeout", c.WriteTimeout, DefaultWriteTimeout,
	); err != nil {
		return err
	}

	switch {
	case c.MaxRequestBodySize < 0:
		return &ErrorIllegal{
			FilePath: filePath,
			Feature:  "max_request_body_size",
			Message:  "must not be negative",
		}
	case c.MaxRequestBodySize == 0:
		conf.MaxRequestBodySize = DefaultMaxRequestBodySize
	default:
		conf.MaxRequestBodySize = c.MaxRequestBodySize
	}
	return nil
}

func duration(
	filePath, feature, s string, def time.Duration,
) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, &ErrorIllegal{
			FilePath: filePath,
			Feature:  feature,
			Message:  err.Error(),
		}
	}
	if d <= 0 {
		return 0, &ErrorIllegal{
			FilePath: filePath,
			Feature:  feature,
			Message:  "must be positive",
		}
	}
	return d, nil
}

type profileConfig struct {
	Name     string `yaml:"name" toml:"name"`
	Type     string `yaml:"type" toml:"type"`
	Strategy string `yaml:"strategy" toml:"strategy"`
	Ignore   string `yaml:"ignore" toml:"ignore"`
}

// readProfilesDir reads all profile files in dirPath.
// files maps profile IDs to the paths of the files they were read from.
func readProfilesDir(
	filesystem fs.FS,
	dirPath string,
) (profiles []*profile.Profile, files map[string]string, err error) {
	dir, err := fs.ReadDir(filesystem, dirPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading directory: %w", err)
	}

	files = map[string]string{}
	for _, o := range dir {
		if o.IsDir() {
			continue
		}
		n := o.Name()
		ext := path.Ext(n)
		if ext != FileExtYAML1 && ext != FileExtYAML2 && ext != FileExtTOML {
			// Ignore non-config files
			continue
		}
		p := path.Join(dirPath, n)
		id := n[:len(n)-len(ext)]
		if err := ValidateID(id); err != "" {
			return nil, nil, &ErrorIllegal{
				FilePath: p,
				Feature:  "id",
				Message:  err,
			}
		}

		id = strings.ToLower(id)
		if prev, ok := files[id]; ok {
			return nil, nil, &ErrorConflict{Items: []string{prev, p}}
		}
		files[id] = p

		pr, err := readProfileFile(filesystem, p, id)
		if err != nil {
			return nil, nil, err
		}
		profiles = append(profiles, pr)
	}

	return profiles, files, nil
}

func readProfileFile(
	filesystem fs.FS,
	filePath, id string,
) (*profile.Profile, error) {
	var c profileConfig
	if err := decode(filesystem, filePath, &c); err != nil {
		return nil, err
	}

	if c.Type == "" {
		return nil, &ErrorMissing{
			FilePath: filePath,
			Feature:  "type",
		}
	}
	kind, err := profile.ParseKind(c.Type)
	if err != nil {
		return nil, &ErrorIllegal{
			FilePath: filePath,
			Feature:  "type",
			Message:  err.Error(),
		}
	}
	strategy, err := profile.ParseStrategy(c.Strategy)
	if err != nil {
		return nil, &ErrorIllegal{
			FilePath: filePath,
			Feature:  "strategy",
			Message:  err.Error(),
		}
	}
	if err := ValidateIgnore(c.Ignore); err != "" {
		return nil, &ErrorIllegal{
			FilePath: filePath,
			Feature:  "ignore",
			Message:  err,
		}
	}

	p, err := profile.New(id, c.Name, kind, strategy, c.Ignore)
	if err != nil {
		return nil, fmt.Errorf("compiling profile %q: %w", id, err)
	}
	return p, nil
}

// decode decodes the YAML or TOML file at filePath into v
// rejecting unknown fields.
func decode(filesystem fs.FS, filePath string, v any) error {
	f, err := filesystem.Open(filePath)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	if path.Ext(filePath) == FileExtTOML {
		md, err := toml.NewDecoder(f).Decode(v)
		if err != nil {
			return &ErrorIllegal{
				FilePath: filePath,
				Message:  err.Error(),
			}
		}
		if u := md.Undecoded(); len(u) > 0 {
			return &ErrorIllegal{
				FilePath: filePath,
				Feature:  u[0].String(),
				Message:  "unknown field",
			}
		}
		return nil
	}

	d := yaml.NewDecoder(f)
	d.KnownFields(true)
	if err := d.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return &ErrorIllegal{
			FilePath: filePath,
			Message:  err.Error(),
		}
	}
	return nil
}

func ValidateID(n string) (err string) {
	if n == "" {
		return "empty"
	}
	for i := range n {
		if strings.IndexByte(IDValidCharDict, n[i]) < 0 {
			return fmt.Sprintf("contains illegal character at index %d", i)
		}
	}
	return ""
}

const IDValidCharDict = "abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"0123456789" +
	"_-"

// forbiddenIgnored are bytes that would shadow digits,
// base prefixes or the sign.
var forbiddenIgnored = bit.New().
	AddRange('0', '9'+1).
	AddRange('a', 'z'+1).
	AddRange('A', 'Z'+1).
	Add('-')

// ValidateIgnore returns an error message if s contains
// a forbidden or duplicate byte.
func ValidateIgnore(s string) (err string) {
	seen := bit.New()
	for i := 0; i < len(s); i++ {
		c := int(s[i])
		if forbiddenIgnored.Contains(c) {
			return fmt.Sprintf("contains illegal character %q at index %d", s[i], i)
		}
		if seen.Contains(c) {
			return fmt.Sprintf("contains duplicate character %q at index %d", s[i], i)
		}
		seen.Add(c)
	}
	return ""
}

func duplicate[T any](a, b []T, isEqual func(a, b T) bool) (d T) {
	for i := range a {
		for i2 := range b {
			if isEqual(a[i], b[i2]) {
				return a[i]
			}
		}
	}
	return
}

type ErrorConflict struct {
	Items []string
}

func (e ErrorConflict) Error() string {
	var b strings.Builder
	b.WriteString("conflict between: ")
	for i := range e.Items {
		b.WriteString(e.Items[i])
		if i+1 < len(e.Items) {
			b.WriteString(", ")
		}
	}
	return b.String()
}

type ErrorMissing struct {
	FilePath string
	Feature  string
}

func (e ErrorMissing) Error() string {
	var b strings.Builder
	if e.Feature == "" {
		b.Grow(len("missing ") + len(e.FilePath))
		b.WriteString("missing ")
		b.WriteString(e.FilePath)
		return b.String()
	}
	b.Grow(len("missing ") + len(e.Feature) + len(" in ") + len(e.FilePath))
	b.WriteString("missing ")
	b.WriteString(e.Feature)
	b.WriteString(" in ")
	b.WriteString(e.FilePath)
	return b.String()
}

type ErrorIllegal struct {
	FilePath string
	Feature  string
	Message  string
}

func (e ErrorIllegal) Error() string {
	var b strings.Builder
	if e.Feature == "" {
		b.Grow(len("illegal ") +
			len(e.FilePath) +
			len(": ") +
			len(e.Message))
		b.WriteString("illegal ")
		b.WriteString(e.FilePath)
		b.WriteString(": ")
		b.WriteString(e.Message)
		return b.String()
	}
	b.Grow(len("illegal ") +
		len(e.Feature) +
		len(" in ") +
		len(e.FilePath) +
		len(": ") +
		len(e.Message))
	b.WriteString("illegal ")
	b.WriteString(e.Feature)
	b.WriteString(" in ")
	b.WriteString(e.FilePath)
	b.WriteString(": ")
	b.WriteString(e.Message)
	return b.String()
}
