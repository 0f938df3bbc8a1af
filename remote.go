package tmplstream

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/tmplstream/events"
	idep "github.com/hashicorp/tmplstream/internal/dependency"
	"github.com/pkg/errors"
)

// Clients is the set of API clients remote sources fetch through. ClientSet
// implements it.
type Clients = idep.Clients

// RetryFunc is given the number of the failed attempt, starting at 0, and
// returns whether to try again and how long to sleep first.
type RetryFunc func(attempt int) (bool, time.Duration)

// RetryBackoff retries up to max times, sleeping base doubled on every
// attempt.
func RetryBackoff(max int, base time.Duration) RetryFunc {
	return func(attempt int) (bool, time.Duration) {
		if attempt >= max {
			return false, 0
		}
		return true, base << uint(attempt)
	}
}

// DefaultRetryFunc retries 5 times starting at 250ms.
var DefaultRetryFunc = RetryBackoff(5, 250*time.Millisecond)

// RemoteInput is used as input when creating a Remote.
type RemoteInput struct {
	Clients Clients
	// RetryFunc decides on retries of temporary failures. Defaults to
	// DefaultRetryFunc.
	RetryFunc    RetryFunc
	EventHandler events.EventHandler
}

// Remote builds sources backed by Consul and Vault.
type Remote struct {
	clients Clients
	retry   RetryFunc
	event   events.EventHandler
}

// NewRemote returns a Remote fetching through the given clients.
func NewRemote(i RemoteInput) *Remote {
	r := &Remote{
		clients: i.Clients,
		retry:   i.RetryFunc,
		event:   i.EventHandler,
	}
	if r.retry == nil {
		r.retry = DefaultRetryFunc
	}
	if r.event == nil {
		r.event = func(events.Event) {}
	}
	return r
}

// ConsulKeys is a sequence of the keys under a Consul KV prefix
// ("prefix@dc"). It lists the prefix on the first call to Next.
func ConsulKeys(clients Clients, prefix string) ItemSource {
	return NewRemote(RemoteInput{Clients: clients}).ConsulKeys(prefix)
}

// ConsulData is a deferred value decoding one Consul KV value.
func ConsulData(clients Clients, key string) Deferred {
	return NewRemote(RemoteInput{Clients: clients}).ConsulData(key)
}

// VaultData is a deferred value holding the data of a Vault secret.
func VaultData(clients Clients, path string) Deferred {
	return NewRemote(RemoteInput{Clients: clients}).VaultData(path)
}

// ConsulKeys returns the keys under prefix as items. Item paths are the full
// keys, relative to the prefix. Names derive from the last key segment.
func (r *Remote) ConsulKeys(prefix string) ItemSource {
	var (
		once  sync.Once
		mu    sync.Mutex
		items []*Item
		err   error
	)
	load := func(ctx context.Context) {
		q, qerr := idep.NewKVListQuery(prefix)
		if qerr != nil {
			err = qerr
			return
		}
		var pairs []*idep.KeyPair
		err = r.fetch(ctx, q.ID(), func() (ferr error) {
			pairs, ferr = q.Fetch(ctx, r.clients)
			return ferr
		})
		base := strings.TrimRight(strings.SplitN(prefix, "@", 2)[0], "/")
		for _, p := range pairs {
			items = append(items, &Item{
				Path:     p.Path,
				Base:     base,
				Contents: append([]byte{}, p.Value...),
			})
		}
	}

	return ItemSourceFunc(func(ctx context.Context) (*Item, error) {
		once.Do(func() { load(ctx) })
		if err != nil {
			return nil, err
		}
		mu.Lock()
		defer mu.Unlock()
		if len(items) == 0 {
			return nil, io.EOF
		}
		it := items[0]
		items = items[1:]
		return it, nil
	})
}

// ConsulData returns a deferred value fetching and decoding key ("key@dc").
// The format follows the key's extension, YAML by default.
func (r *Remote) ConsulData(key string) Deferred {
	return Lazy(func(ctx context.Context) (interface{}, error) {
		q, err := idep.NewKVGetQuery(key)
		if err != nil {
			return nil, err
		}
		var pair *idep.KeyPair
		err = r.fetch(ctx, q.ID(), func() (ferr error) {
			pair, ferr = q.Fetch(ctx, r.clients)
			return ferr
		})
		if err != nil {
			return nil, err
		}
		return decodeData(pair.Key, pair.Value)
	})
}

// VaultData returns a deferred value reading the secret at path. KV version
// 2 mounts are handled transparently.
func (r *Remote) VaultData(path string) Deferred {
	return Lazy(func(ctx context.Context) (interface{}, error) {
		q, err := idep.NewVaultReadQuery(path)
		if err != nil {
			return nil, err
		}
		var data map[string]interface{}
		err = r.fetch(ctx, q.ID(), func() (ferr error) {
			data, ferr = q.Fetch(ctx, r.clients)
			return ferr
		})
		if err != nil {
			return nil, err
		}
		return data, nil
	})
}

// fetch calls fn until it succeeds, fails permanently or the retry function
// gives up.
func (r *Remote) fetch(ctx context.Context, id string, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || !idep.Temporary(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		retry, sleep := r.retry(attempt)
		if !retry {
			r.event(events.MaxRetries{ID: id, Count: attempt})
			return errors.Wrapf(err, "%s: retry limit reached", id)
		}
		r.event(events.RetryAttempt{
			ID:      id,
			Attempt: attempt + 1,
			Sleep:   sleep,
			Error:   err,
		})

		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
