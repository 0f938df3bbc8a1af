package tmplstream

import (
	"net/http"
	"time"

	idep "github.com/hashicorp/tmplstream/internal/dependency"
)

// ClientSet holds the Consul and Vault clients used by the remote sources
// (ConsulKeys, ConsulData, VaultData).
type ClientSet struct {
	*idep.ClientSet
}

// NewClientSet is used to create the clients used.
func NewClientSet() *ClientSet {
	return &ClientSet{ClientSet: idep.NewClientSet()}
}

// AddConsul creates a Consul client and adds to the client set. It blocks
// until the cluster reports a leader or LeaderWait runs out.
func (cs *ClientSet) AddConsul(i ConsulInput) error {
	return cs.CreateConsulClient(&idep.CreateClientInput{
		Address:    i.Address,
		Namespace:  i.Namespace,
		Token:      i.Token,
		TLS:        i.TLS,
		LeaderWait: i.LeaderWait,
		HttpClient: i.HttpClient,
	})
}

// AddVault creates a Vault client and adds to the client set
func (cs *ClientSet) AddVault(i VaultInput) error {
	return cs.CreateVaultClient(&idep.CreateClientInput{
		Address:    i.Address,
		Namespace:  i.Namespace,
		Token:      i.Token,
		TLS:        i.TLS,
		HttpClient: i.HttpClient,
	})
}

// Stop closes all idle connections for any attached clients.
func (cs *ClientSet) Stop() {
	if cs.ClientSet != nil {
		cs.ClientSet.Stop()
	}
}

// TLSInput configures https to Consul or Vault. It is ignored unless
// Enabled is set.
type TLSInput = idep.TLSInput

// VaultInput defines the inputs needed to configure the Vault client.
type VaultInput struct {
	Address   string
	Namespace string
	Token     string
	TLS       TLSInput
	// optional, principally for testing
	HttpClient *http.Client
}

// ConsulInput defines the inputs needed to configure the Consul client.
type ConsulInput struct {
	Address   string
	Namespace string
	Token     string
	TLS       TLSInput
	// LeaderWait bounds the wait for a cluster leader when the client is
	// created. Defaults to a minute.
	LeaderWait time.Duration
	// optional, principally for testing
	HttpClient *http.Client
}
