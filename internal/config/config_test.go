package config

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestNames(t *testing.T) {
	t.Parallel()
	cases := []struct {
		key  string
		env  string
		flag string
	}{
		{"engine", "TMPLSTREAM_ENGINE", "engine"},
		{"log_level", "TMPLSTREAM_LOG_LEVEL", "log-level"},
		{"consul.address", "TMPLSTREAM_CONSUL_ADDRESS", "consul-address"},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			assert.Equal(t, tc.env, EnvName(tc.key))
			assert.Equal(t, tc.flag, FlagName(tc.key))
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()
	cfg, err := Load(LoadInput{LookupEnv: envMap(nil)})
	require.NoError(t, err)
	d := DefaultConfig()
	assert.Equal(t, d.Templates, cfg.Templates)
	assert.Equal(t, d.Output, cfg.Output)
	assert.Equal(t, d.Engine, cfg.Engine)
	assert.Equal(t, d.Buffer, cfg.Buffer)
	assert.Equal(t, d.LogLevel, cfg.LogLevel)
	assert.Empty(t, cfg.Data)
	assert.Empty(t, cfg.Consul.Address)
}

func TestLoad_Layers(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "tmplstream.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
templates: site/pages
engine: gotemplate
data: [site.yaml]
consul:
  address: 127.0.0.1:8500
  partials: site/partials
`), 0644))
	jsonPath := filepath.Join(dir, "tmplstream.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"engine": "pongo", "buffer": 4}`), 0644))

	t.Run("yaml_file", func(t *testing.T) {
		cfg, err := Load(LoadInput{Path: yamlPath, LookupEnv: envMap(nil)})
		require.NoError(t, err)
		assert.Equal(t, "site/pages", cfg.Templates)
		assert.Equal(t, "gotemplate", cfg.Engine)
		assert.Equal(t, []string{"site.yaml"}, cfg.Data)
		assert.Equal(t, "127.0.0.1:8500", cfg.Consul.Address)
		assert.Equal(t, "site/partials", cfg.Consul.Partials)
		assert.Equal(t, "dist", cfg.Output)
	})

	t.Run("json_file", func(t *testing.T) {
		cfg, err := Load(LoadInput{Path: jsonPath, LookupEnv: envMap(nil)})
		require.NoError(t, err)
		assert.Equal(t, "pongo", cfg.Engine)
		assert.Equal(t, 4, cfg.Buffer)
	})

	t.Run("missing_file", func(t *testing.T) {
		_, err := Load(LoadInput{Path: filepath.Join(dir, "nope.yaml")})
		assert.Error(t, err)
	})

	t.Run("env_over_file", func(t *testing.T) {
		cfg, err := Load(LoadInput{
			Path: yamlPath,
			LookupEnv: envMap(map[string]string{
				"TMPLSTREAM_ENGINE":         "handlebars",
				"TMPLSTREAM_CONSUL_ADDRESS": "consul:8500",
				"TMPLSTREAM_DATA":           "a.yaml, b.json",
				"TMPLSTREAM_BACKUP":         "true",
			}),
		})
		require.NoError(t, err)
		assert.Equal(t, "handlebars", cfg.Engine)
		assert.Equal(t, "consul:8500", cfg.Consul.Address)
		assert.Equal(t, []string{"a.yaml", "b.json"}, cfg.Data)
		assert.True(t, cfg.Backup)
	})

	t.Run("flags_over_env", func(t *testing.T) {
		var cfg *Config
		cmd := &cli.Command{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "engine"},
				&cli.StringFlag{Name: "output"},
				&cli.StringFlag{Name: "consul-address"},
				&cli.IntFlag{Name: "buffer"},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				var err error
				cfg, err = Load(LoadInput{
					Command: cmd,
					Path:    yamlPath,
					LookupEnv: envMap(map[string]string{
						"TMPLSTREAM_ENGINE": "handlebars",
						"TMPLSTREAM_OUTPUT": "from-env",
					}),
				})
				return err
			},
		}
		err := cmd.Run(context.Background(),
			[]string{"test", "--engine", "pongo", "--consul-address", "flag:8500", "--buffer", "2"})
		require.NoError(t, err)
		assert.Equal(t, "pongo", cfg.Engine)
		assert.Equal(t, "flag:8500", cfg.Consul.Address)
		assert.Equal(t, 2, cfg.Buffer)
		// unset flags do not mask lower layers
		assert.Equal(t, "from-env", cfg.Output)
	})
}

func TestApplyFlags(t *testing.T) {
	t.Parallel()
	type nested struct {
		Ratio float64 `koanf:"ratio"`
	}
	cases := []struct {
		name string
		typ  reflect.Type
		args []string
		err  string
		key  string
		e    interface{}
	}{
		{
			name: "tls",
			typ:  reflect.TypeOf(Config{}),
			args: []string{"--vault-tls-enabled", "--vault-tls-ca-cert", "ca.pem"},
			key:  "vault.tls.ca_cert",
			e:    "ca.pem",
		},
		{
			name: "deny",
			typ:  reflect.TypeOf(Config{}),
			args: []string{"--deny", "env", "--deny", "sockaddr"},
			key:  "deny",
			e:    []string{"env", "sockaddr"},
		},
		{
			name: "unset_flag_ignored",
			typ:  reflect.TypeOf(struct{ N nested `koanf:"n"` }{}),
			key:  "n.ratio",
		},
		{
			name: "unsupported_type",
			typ:  reflect.TypeOf(struct{ N nested `koanf:"n"` }{}),
			args: []string{"--n-ratio", "0.5"},
			err:  "flag --n-ratio: unsupported type float64",
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			k := koanf.New(".")
			var applied error
			cmd := &cli.Command{
				Name: "test",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "vault-tls-enabled"},
					&cli.StringFlag{Name: "vault-tls-ca-cert"},
					&cli.StringSliceFlag{Name: "deny"},
					&cli.FloatFlag{Name: "n-ratio"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					applied = applyFlags(cmd, k, tc.typ, "")
					return nil
				},
			}
			require.NoError(t, cmd.Run(context.Background(), append([]string{"test"}, tc.args...)))
			if tc.err != "" {
				require.Error(t, applied)
				assert.Contains(t, applied.Error(), tc.err)
				return
			}
			require.NoError(t, applied)
			assert.Equal(t, tc.e, k.Get(tc.key))
		})
	}
}
