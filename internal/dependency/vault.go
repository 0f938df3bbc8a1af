package dependency

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/hashicorp/vault/api"
	"github.com/pkg/errors"
)

// VaultReadQuery reads a single secret from Vault.
type VaultReadQuery struct {
	rawPath     string
	queryValues url.Values
}

// NewVaultReadQuery parses a secret path, optionally with query values such
// as "?version=2".
func NewVaultReadQuery(s string) (*VaultReadQuery, error) {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "/")
	if s == "" {
		return nil, fmt.Errorf("vault.read: invalid format: %q", s)
	}

	secretURL, err := url.Parse(s)
	if err != nil {
		return nil, errors.Wrap(err, "vault.read")
	}

	return &VaultReadQuery{
		rawPath:     secretURL.Path,
		queryValues: secretURL.Query(),
	}, nil
}

// Fetch reads the secret and returns its data. For KV version 2 mounts the
// path is rewritten to the data endpoint and the inner data map returned.
func (d *VaultReadQuery) Fetch(ctx context.Context, clients Clients) (map[string]interface{}, error) {
	client := clients.Vault()
	if client == nil {
		return nil, errors.Wrap(ErrNoVault, d.ID())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	secretPath := d.rawPath
	mountPath, v2, err := isKVv2(client, d.rawPath)
	if err == nil && v2 {
		secretPath = shimKVv2Path(d.rawPath, mountPath)
	}

	secret, err := client.Logical().ReadWithData(secretPath, d.queryValues)
	if err != nil {
		return nil, errors.Wrap(err, d.ID())
	}
	if secret == nil || deletedKVv2(secret) {
		return nil, errors.Wrapf(ErrNotFound, "%s: no secret exists at %s",
			d.ID(), secretPath)
	}

	if v2 {
		if data, ok := secret.Data["data"].(map[string]interface{}); ok {
			return data, nil
		}
	}
	return secret.Data, nil
}

// ID returns the human-friendly version of this query.
func (d *VaultReadQuery) ID() string {
	if v := d.queryValues["version"]; len(v) > 0 {
		return fmt.Sprintf("vault.read(%s.v%s)", d.rawPath, v[0])
	}
	return fmt.Sprintf("vault.read(%s)", d.rawPath)
}

// Stringer interface reuses ID
func (d *VaultReadQuery) String() string {
	return d.ID()
}

func deletedKVv2(s *api.Secret) bool {
	switch md := s.Data["metadata"].(type) {
	case map[string]interface{}:
		dt, _ := md["deletion_time"].(string)
		return dt != ""
	}
	return false
}

// isKVv2 asks Vault which mount serves path and whether it is a version 2
// KV store.
func isKVv2(client *api.Client, path string) (string, bool, error) {
	// We don't want to use a wrapping call here so save any custom value and
	// restore after
	currentWrappingLookupFunc := client.CurrentWrappingLookupFunc()
	client.SetWrappingLookupFunc(nil)
	defer client.SetWrappingLookupFunc(currentWrappingLookupFunc)

	r := client.NewRequest("GET", "/v1/sys/internal/ui/mounts/"+path)
	resp, err := client.RawRequest(r)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		// If we get a 404 we are using an older version of vault, default to
		// version 1
		if resp != nil && resp.StatusCode == 404 {
			return "", false, nil
		}

		// anonymous requests may fail to access /sys/internal/ui path
		if client.Token() == "" {
			return "", false, nil
		}

		return "", false, err
	}

	secret, err := api.ParseSecret(resp.Body)
	if err != nil {
		return "", false, err
	}
	if secret == nil {
		return "", false, fmt.Errorf("secret at path %s does not exist", path)
	}
	mountPath, _ := secret.Data["path"].(string)
	mountType, _ := secret.Data["type"].(string)

	options, _ := secret.Data["options"].(map[string]interface{})
	version, _ := options["version"].(string)
	switch version {
	case "2":
		return mountPath, mountType == "kv", nil
	}
	return mountPath, false, nil
}

// shimKVv2Path inserts the data segment KV version 2 expects after the mount.
func shimKVv2Path(rawPath, mountPath string) string {
	switch {
	case rawPath == mountPath, rawPath == strings.TrimSuffix(mountPath, "/"):
		return path.Join(mountPath, "data")
	default:
		p := strings.TrimPrefix(rawPath, mountPath)

		// Only add /data/ prefix to the path if neither /data/ or /metadata/ are
		// present.
		if strings.HasPrefix(p, "data/") || strings.HasPrefix(p, "metadata/") {
			return rawPath
		}
		return path.Join(mountPath, "data", p)
	}
}
