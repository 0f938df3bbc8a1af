package dependency

import (
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"time"

	consulapi "github.com/hashicorp/consul/api"
	rootcerts "github.com/hashicorp/go-rootcerts"
	vaultapi "github.com/hashicorp/vault/api"
	"github.com/pkg/errors"
)

// defaultLeaderWait bounds the wait for a Consul leader.
const defaultLeaderWait = time.Minute

// ClientSet holds the Consul and Vault clients the remote sources read
// through. Either may be missing.
type ClientSet struct {
	sync.RWMutex

	consul     *consulapi.Client
	vault      *vaultapi.Client
	transports []*http.Client
}

// CreateClientInput is used as input to the CreateClient functions.
type CreateClientInput struct {
	Address   string
	Namespace string
	Token     string
	TLS       TLSInput

	// LeaderWait bounds how long CreateConsulClient waits for a leader.
	LeaderWait time.Duration

	// optional, principally for testing
	HttpClient *http.Client
}

// TLSInput configures https to a server. Nothing is configured unless
// Enabled is set.
type TLSInput struct {
	Enabled bool
	// CACert and CAPath replace the system roots.
	CACert string
	CAPath string
	// Cert and Key are a client certificate; Key may be omitted when Cert
	// holds both.
	Cert       string
	Key        string
	ServerName string
	// Insecure skips server certificate verification.
	Insecure bool
}

// check for interface compliance
var _ Clients = (*ClientSet)(nil)

// NewClientSet creates a new client set that is ready to accept clients.
func NewClientSet() *ClientSet {
	return &ClientSet{}
}

// CreateConsulClient creates the Consul client and waits until the cluster
// has a leader, so that reads do not fail while it is electing one.
func (c *ClientSet) CreateConsulClient(i *CreateClientInput) error {
	conf := consulapi.DefaultConfig()
	if i.Address != "" {
		conf.Address = i.Address
	}
	if i.Namespace != "" {
		conf.Namespace = i.Namespace
	}
	if i.Token != "" {
		conf.Token = i.Token
	}
	if i.TLS.Enabled {
		conf.Scheme = "https"
	}

	hc, err := i.httpClient()
	if err != nil {
		return errors.Wrap(err, "client set: consul")
	}
	conf.HttpClient = hc

	client, err := consulapi.NewClient(conf)
	if err != nil {
		return errors.Wrap(err, "client set: consul")
	}

	wait := i.LeaderWait
	if wait == 0 {
		wait = defaultLeaderWait
	}
	if err := hasLeader(client, wait); err != nil {
		return err
	}

	c.Lock()
	c.consul = client
	c.transports = append(c.transports, hc)
	c.Unlock()
	return nil
}

// hasLeader polls the leader endpoint with a doubling interval starting at
// two seconds, and gives up once the next interval would exceed max. A 5xx
// answer means the cluster is still electing and is retried, any other
// error is returned at once.
func hasLeader(client *consulapi.Client, max time.Duration) error {
	for wait := 2 * time.Second; ; wait *= 2 {
		leader, err := client.Status().Leader()
		if err != nil {
			if s, ok := DecodeConsulStatusError(err); !ok || s.Code < 500 {
				return errors.Wrap(err, "client set: consul leader")
			}
		}
		if leader != "" {
			return nil
		}
		if wait > max {
			return errors.New("client set: no consul leader detected")
		}
		time.Sleep(wait)
	}
}

// CreateVaultClient creates the Vault client. Vault is not contacted until
// a secret is read.
func (c *ClientSet) CreateVaultClient(i *CreateClientInput) error {
	conf := vaultapi.DefaultConfig()
	if i.Address != "" {
		conf.Address = i.Address
	}

	hc, err := i.httpClient()
	if err != nil {
		return errors.Wrap(err, "client set: vault")
	}
	conf.HttpClient = hc

	client, err := vaultapi.NewClient(conf)
	if err != nil {
		return errors.Wrap(err, "client set: vault")
	}
	if i.Namespace != "" {
		client.SetNamespace(i.Namespace)
	}
	if i.Token != "" {
		client.SetToken(i.Token)
	}

	c.Lock()
	c.vault = client
	c.transports = append(c.transports, hc)
	c.Unlock()
	return nil
}

// Consul returns the Consul client for this set.
func (c *ClientSet) Consul() *consulapi.Client {
	if c == nil {
		return nil
	}
	c.RLock()
	defer c.RUnlock()
	return c.consul
}

// Vault returns the Vault client for this set.
func (c *ClientSet) Vault() *vaultapi.Client {
	if c == nil {
		return nil
	}
	c.RLock()
	defer c.RUnlock()
	return c.vault
}

// Stop closes all idle connections for any attached clients.
func (c *ClientSet) Stop() {
	c.Lock()
	defer c.Unlock()
	for _, hc := range c.transports {
		hc.CloseIdleConnections()
	}
}

// httpClient returns the given test client or a pooled one honoring TLS.
func (i *CreateClientInput) httpClient() (*http.Client, error) {
	if i.HttpClient != nil {
		return i.HttpClient, nil
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if i.TLS.Enabled {
		conf, err := i.TLS.config()
		if err != nil {
			return nil, err
		}
		transport.TLSClientConfig = conf
	}
	return &http.Client{Transport: transport}, nil
}

func (t TLSInput) config() (*tls.Config, error) {
	conf := &tls.Config{
		ServerName:         t.ServerName,
		InsecureSkipVerify: t.Insecure,
	}
	if t.Cert != "" {
		key := t.Key
		if key == "" {
			key = t.Cert
		}
		cert, err := tls.LoadX509KeyPair(t.Cert, key)
		if err != nil {
			return nil, errors.Wrap(err, "tls: client certificate")
		}
		conf.Certificates = []tls.Certificate{cert}
	}
	err := rootcerts.ConfigureTLS(conf, &rootcerts.Config{
		CAFile: t.CACert,
		CAPath: t.CAPath,
	})
	if err != nil {
		return nil, errors.Wrap(err, "tls: ca")
	}
	return conf, nil
}
