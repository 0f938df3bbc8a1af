package dependency

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var (
	// KVListQueryRe is the regular expression to use.
	KVListQueryRe = regexp.MustCompile(`\A` + prefixRe + dcRe + `\z`)

	// KVGetQueryRe is the regular expression to use.
	KVGetQueryRe = regexp.MustCompile(`\A` + keyRe + dcRe + `\z`)
)

// KeyPair is a simple Key-Value pair
type KeyPair struct {
	Path  string
	Key   string
	Value []byte

	CreateIndex uint64
	ModifyIndex uint64
	Flags       uint64
}

// KVListQuery queries the KV store for every key under a prefix.
type KVListQuery struct {
	dc     string
	prefix string
	opts   QueryOptions
}

// NewKVListQuery parses a string of the form "prefix@dc" into a query.
func NewKVListQuery(s string) (*KVListQuery, error) {
	if s == "" || s == "/" {
		return nil, fmt.Errorf("kv.list: prefix required")
	}
	if !KVListQueryRe.MatchString(s) {
		return nil, fmt.Errorf("kv.list: invalid format: %q", s)
	}

	m := regexpMatch(KVListQueryRe, s)
	return &KVListQuery{
		dc:     m["dc"],
		prefix: m["prefix"],
	}, nil
}

// Fetch lists the pairs under the prefix. Folder entries, keys ending in
// "/", are left out. Pair keys are relative to the prefix.
func (d *KVListQuery) Fetch(ctx context.Context, clients Clients) ([]*KeyPair, error) {
	consul := clients.Consul()
	if consul == nil {
		return nil, errors.Wrap(ErrNoConsul, d.ID())
	}

	opts := d.opts.Merge(&QueryOptions{Datacenter: d.dc})
	list, _, err := consul.KV().List(d.prefix, opts.ToConsulOpts(ctx))
	if err != nil {
		return nil, errors.Wrap(err, d.ID())
	}

	pairs := make([]*KeyPair, 0, len(list))
	for _, pair := range list {
		if strings.HasSuffix(pair.Key, "/") {
			continue
		}
		key := strings.TrimPrefix(pair.Key, d.prefix)
		key = strings.TrimLeft(key, "/")

		pairs = append(pairs, &KeyPair{
			Path:        pair.Key,
			Key:         key,
			Value:       pair.Value,
			CreateIndex: pair.CreateIndex,
			ModifyIndex: pair.ModifyIndex,
			Flags:       pair.Flags,
		})
	}
	return pairs, nil
}

// SetOptions sets the base query options.
func (d *KVListQuery) SetOptions(opts QueryOptions) {
	d.opts = opts
}

// ID returns the human-friendly version of this query.
func (d *KVListQuery) ID() string {
	prefix := d.prefix
	if d.dc != "" {
		prefix = prefix + "@" + d.dc
	}
	return fmt.Sprintf("kv.list(%s)", prefix)
}

// Stringer interface reuses ID
func (d *KVListQuery) String() string {
	return d.ID()
}

// KVGetQuery queries the KV store for a single key.
type KVGetQuery struct {
	dc   string
	key  string
	opts QueryOptions
}

// NewKVGetQuery parses a string of the form "key@dc" into a query.
func NewKVGetQuery(s string) (*KVGetQuery, error) {
	if s == "" || !KVGetQueryRe.MatchString(s) {
		return nil, fmt.Errorf("kv.get: invalid format: %q", s)
	}

	m := regexpMatch(KVGetQueryRe, s)
	return &KVGetQuery{
		dc:  m["dc"],
		key: m["key"],
	}, nil
}

// Fetch returns the value stored under the key. A missing key is
// ErrNotFound.
func (d *KVGetQuery) Fetch(ctx context.Context, clients Clients) (*KeyPair, error) {
	consul := clients.Consul()
	if consul == nil {
		return nil, errors.Wrap(ErrNoConsul, d.ID())
	}

	opts := d.opts.Merge(&QueryOptions{Datacenter: d.dc})
	pair, _, err := consul.KV().Get(d.key, opts.ToConsulOpts(ctx))
	if err != nil {
		return nil, errors.Wrap(err, d.ID())
	}
	if pair == nil {
		return nil, errors.Wrap(ErrNotFound, d.ID())
	}

	return &KeyPair{
		Path:        pair.Key,
		Key:         pair.Key,
		Value:       pair.Value,
		CreateIndex: pair.CreateIndex,
		ModifyIndex: pair.ModifyIndex,
		Flags:       pair.Flags,
	}, nil
}

// SetOptions sets the base query options.
func (d *KVGetQuery) SetOptions(opts QueryOptions) {
	d.opts = opts
}

// ID returns the human-friendly version of this query.
func (d *KVGetQuery) ID() string {
	key := d.key
	if d.dc != "" {
		key = key + "@" + d.dc
	}
	return fmt.Sprintf("kv.get(%s)", key)
}

// Stringer interface reuses ID
func (d *KVGetQuery) String() string {
	return d.ID()
}
