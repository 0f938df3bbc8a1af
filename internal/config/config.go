// Package config loads the settings of the tmplstream command.
//
// Sources, from lowest to highest priority:
//  1. defaults from DefaultConfig
//  2. a YAML or JSON config file
//  3. TMPLSTREAM_ environment variables
//  4. command line flags the user set
package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
)

// EnvPrefix is prepended to the upper-cased config keys, dots replaced by
// underscores: consul.address is TMPLSTREAM_CONSUL_ADDRESS.
const EnvPrefix = "TMPLSTREAM_"

// Config is the command configuration.
type Config struct {
	// Templates is a directory rendered recursively or a glob pattern.
	Templates string `koanf:"templates"`
	Output    string `koanf:"output"`
	// Ext replaces the extension of rendered files.
	Ext      string   `koanf:"ext"`
	Data     []string `koanf:"data"`
	Partials string   `koanf:"partials"`
	Helpers  string   `koanf:"helpers"`
	Engine   string   `koanf:"engine"`
	Filter   string   `koanf:"filter"`
	// Deny lists gotemplate builtins that fail when called, e.g. env.
	Deny     []string `koanf:"deny"`
	Buffer   int      `koanf:"buffer"`
	Backup   bool     `koanf:"backup"`
	DryRun   bool     `koanf:"dry_run"`
	LogLevel string   `koanf:"log_level"`

	Consul ConsulConfig `koanf:"consul"`
	Vault  VaultConfig  `koanf:"vault"`
}

// ConsulConfig configures the Consul client and what is read through it.
type ConsulConfig struct {
	Address   string    `koanf:"address"`
	Namespace string    `koanf:"namespace"`
	Token     string    `koanf:"token"`
	TLS       TLSConfig `koanf:"tls"`
	// Partials is a KV prefix holding partials.
	Partials string `koanf:"partials"`
	// Data is a KV key holding YAML or JSON data.
	Data string `koanf:"data"`
}

// VaultConfig configures the Vault client and the secret read as data.
type VaultConfig struct {
	Address   string    `koanf:"address"`
	Namespace string    `koanf:"namespace"`
	Token     string    `koanf:"token"`
	TLS       TLSConfig `koanf:"tls"`
	Data      string    `koanf:"data"`
}

// TLSConfig enables https to a server.
type TLSConfig struct {
	Enabled    bool   `koanf:"enabled"`
	CACert     string `koanf:"ca_cert"`
	CAPath     string `koanf:"ca_path"`
	Cert       string `koanf:"cert"`
	Key        string `koanf:"key"`
	ServerName string `koanf:"server_name"`
	Insecure   bool   `koanf:"insecure"`
}

// DefaultConfig returns the defaults.
func DefaultConfig() Config {
	return Config{
		Templates: "templates",
		Output:    "dist",
		Engine:    "handlebars",
		Buffer:    16,
		LogLevel:  "info",
	}
}

// LoadInput is used as input to Load.
type LoadInput struct {
	// Command supplies flag values. Optional.
	Command *cli.Command
	// Path of the config file. Optional.
	Path string
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load merges every source into a Config.
func Load(i LoadInput) (*Config, error) {
	k := koanf.New(".")
	defaults := DefaultConfig()

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, errors.Wrap(err, "load defaults")
	}

	if i.Path != "" {
		var parser koanf.Parser = yaml.Parser()
		if strings.ToLower(filepath.Ext(i.Path)) == ".json" {
			parser = json.Parser()
		}
		if err := k.Load(file.Provider(i.Path), parser); err != nil {
			return nil, errors.Wrapf(err, "load config file %s", i.Path)
		}
	}

	lookup := i.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if env := fromEnv(k, lookup); len(env) > 0 {
		if err := k.Load(confmap.Provider(env, "."), nil); err != nil {
			return nil, errors.Wrap(err, "load environment")
		}
	}

	if i.Command != nil {
		if err := applyFlags(i.Command, k, reflect.TypeOf(defaults), ""); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	return &cfg, nil
}

// EnvName is the environment variable read for key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// FlagName is the command line flag read for key.
func FlagName(key string) string {
	return strings.ReplaceAll(strings.ReplaceAll(key, ".", "-"), "_", "-")
}

// fromEnv collects the environment variables of every known key. List
// values are comma separated.
func fromEnv(k *koanf.Koanf, lookup func(string) (string, bool)) map[string]interface{} {
	env := make(map[string]interface{})
	for _, key := range k.Keys() {
		v, ok := lookup(EnvName(key))
		if !ok {
			continue
		}
		switch k.Get(key).(type) {
		case []string, []interface{}:
			env[key] = splitList(v)
		default:
			env[key] = v
		}
	}
	return env
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// applyFlags sets the keys whose flags were given on the command line.
func applyFlags(cmd *cli.Command, k *koanf.Koanf, typ reflect.Type, prefix string) error {
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		key := field.Tag.Get("koanf")
		if key == "" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}

		if field.Type.Kind() == reflect.Struct {
			if err := applyFlags(cmd, k, field.Type, key); err != nil {
				return err
			}
			continue
		}

		name := FlagName(key)
		if !cmd.IsSet(name) {
			continue
		}
		var v interface{}
		switch field.Type.Kind() {
		case reflect.String:
			v = cmd.String(name)
		case reflect.Bool:
			v = cmd.Bool(name)
		case reflect.Int:
			v = cmd.Int(name)
		case reflect.Slice:
			v = cmd.StringSlice(name)
		default:
			return errors.Errorf("flag --%s: unsupported type %s", name, field.Type)
		}
		if err := k.Set(key, v); err != nil {
			return errors.Wrapf(err, "flag --%s", name)
		}
	}
	return nil
}
