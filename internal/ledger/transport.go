package ledger

import (
	"errors"
	"fmt"
)

const (
	TransportMemnet = "memnet"
	TransportGRPC   = "grpc"
)

// Config selects and seeds the network transport.
type Config struct {
	Transport  string           `yaml:"transport"`
	Network    string           `yaml:"network"`
	Nodes      []string         `yaml:"nodes"`
	FeeTinybar int64            `yaml:"feeTinybar"`
	Genesis    []GenesisAccount `yaml:"genesis"`
}

// GenesisAccount seeds the memnet transport with a funded account.
type GenesisAccount struct {
	AccountID      string `yaml:"accountId"`
	SigningKey     string `yaml:"signingKey"`
	BalanceTinybar int64  `yaml:"balanceTinybar"`
}

func DefaultConfig() Config {
	return Config{
		Transport: TransportMemnet,
		Network:   "local",
	}
}

// NewGateway constructs the configured transport.
func NewGateway(cfg Config) (Gateway, error) {
	switch cfg.Transport {
	case TransportMemnet, "":
		net := NewMemnet()
		if cfg.FeeTinybar > 0 {
			net.SetFee(cfg.FeeTinybar)
		}
		for _, acct := range cfg.Genesis {
			if !ValidEntityID(acct.AccountID) {
				return nil, fmt.Errorf("genesis account id %q is malformed", acct.AccountID)
			}
			net.RegisterAccount(acct.AccountID, acct.SigningKey, acct.BalanceTinybar)
		}
		return net, nil
	case TransportGRPC:
		return nil, errors.New("grpc gateway is not available in this build")
	default:
		return nil, fmt.Errorf("unknown ledger transport %q", cfg.Transport)
	}
}
