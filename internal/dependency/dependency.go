// Package dependency holds the Consul and Vault clients and the queries the
// remote data sources issue through them.
package dependency

import (
	"context"
	"regexp"

	consulapi "github.com/hashicorp/consul/api"
	vaultapi "github.com/hashicorp/vault/api"
)

const (
	dcRe     = `(@(?P<dc>[[:word:]\.\-\_]+))?`
	keyRe    = `/?(?P<key>[^@]+)`
	prefixRe = `/?(?P<prefix>[^@]+)`
)

// Clients is the read interface to a set of API clients. ClientSet
// implements it.
type Clients interface {
	Consul() *consulapi.Client
	Vault() *vaultapi.Client
}

// QueryOptions is a list of options to send with a Consul query.
type QueryOptions struct {
	Datacenter string
	Namespace  string
}

// Merge returns a copy of q with the non-empty fields of o applied.
func (q *QueryOptions) Merge(o *QueryOptions) *QueryOptions {
	var r QueryOptions
	if q != nil {
		r = *q
	}
	if o == nil {
		return &r
	}
	if o.Datacenter != "" {
		r.Datacenter = o.Datacenter
	}
	if o.Namespace != "" {
		r.Namespace = o.Namespace
	}
	return &r
}

// ToConsulOpts converts the options, bound to ctx.
func (q *QueryOptions) ToConsulOpts(ctx context.Context) *consulapi.QueryOptions {
	cq := consulapi.QueryOptions{
		Datacenter: q.Datacenter,
		Namespace:  q.Namespace,
	}
	if ctx != nil {
		return cq.WithContext(ctx)
	}
	return &cq
}

// regexpMatch matches the given regexp and extracts the match groups into a
// named map.
func regexpMatch(re *regexp.Regexp, q string) map[string]string {
	names := re.SubexpNames()
	match := re.FindAllStringSubmatch(q, -1)

	if len(match) == 0 {
		return map[string]string{}
	}

	m := map[string]string{}
	for i, n := range match[0] {
		if names[i] != "" {
			m[names[i]] = n
		}
	}

	return m
}
