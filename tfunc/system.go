package tfunc

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	socktmpl "github.com/hashicorp/go-sockaddr/template"
	"github.com/pkg/errors"
)

// now is overridden by tests.
var now = func() time.Time { return time.Now().UTC() }

// lookupEnv looks key up in env, a list of KEY=value pairs, before the
// process environment.
func lookupEnv(env []string, key string) (string, bool) {
	for _, kv := range env {
		if k, v, ok := strings.Cut(kv, "="); ok && k == key {
			return v, true
		}
	}
	return os.LookupEnv(key)
}

func envFunc(env []string) func(string) (string, error) {
	return func(key string) (string, error) {
		v, _ := lookupEnv(env, key)
		return v, nil
	}
}

// envOrDefaultFunc returns def only for unset variables; a variable set to
// the empty string is returned as is.
func envOrDefaultFunc(env []string) func(string, string) (string, error) {
	return func(key, def string) (string, error) {
		if v, ok := lookupEnv(env, key); ok {
			return v, nil
		}
		return def, nil
	}
}

// timestamp formats the current UTC time as RFC3339, with the given layout,
// or as seconds for "unix".
func timestamp(layout ...string) (string, error) {
	switch len(layout) {
	case 0:
		return now().Format(time.RFC3339), nil
	case 1:
		if layout[0] == "unix" {
			return strconv.FormatInt(now().Unix(), 10), nil
		}
		return now().Format(layout[0]), nil
	}
	return "", fmt.Errorf("timestamp: expected 0 or 1 arguments, got %d", len(layout))
}

// sockaddr evaluates a go-sockaddr template expression, e.g.
// {{ sockaddr "GetPrivateIP" }}.
func sockaddr(args ...string) (string, error) {
	out, err := socktmpl.Parse("{{ " + strings.Join(args, " ") + " }}")
	if err != nil {
		return "", errors.Wrap(err, "sockaddr")
	}
	return out, nil
}
