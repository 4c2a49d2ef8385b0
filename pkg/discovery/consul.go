// Package discovery registers services with Consul and resolves sibling
// addresses. Every caller falls back to its static address when Consul is
// not configured.
package discovery

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"

	"github.com/hashicorp/consul/api"
)

type Client struct {
	log    *slog.Logger
	client *api.Client
}

type Registration struct {
	ID      string
	Name    string
	Address string
	Port    int
	Tags    []string
	// HealthURL enables an HTTP check; GRPCHealth enables a gRPC check
	// against Address:Port.
	HealthURL  string
	GRPCHealth bool
}

func New(log *slog.Logger, addr string) (*Client, error) {
	cfg := api.DefaultConfig()
	cfg.Address = addr

	c, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create consul client: %w", err)
	}
	return &Client{log: log, client: c}, nil
}

// Connect returns nil without error when addr is empty, which turns
// discovery off.
func Connect(log *slog.Logger, addr string) (*Client, error) {
	if addr == "" {
		return nil, nil
	}
	return New(log, addr)
}

// Self describes the calling process listening on listenAddr. host falls back
// to the machine hostname and id to name-host-port.
func Self(name, id, host, listenAddr string) (Registration, error) {
	_, p, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return Registration{}, fmt.Errorf("parse listen address %q: %w", listenAddr, err)
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return Registration{}, fmt.Errorf("parse port %q: %w", p, err)
	}
	if host == "" {
		if host, err = os.Hostname(); err != nil {
			return Registration{}, err
		}
	}
	if id == "" {
		id = fmt.Sprintf("%s-%s-%d", name, host, port)
	}
	return Registration{ID: id, Name: name, Address: host, Port: port}, nil
}

func (c *Client) Register(r Registration) error {
	reg := &api.AgentServiceRegistration{
		ID:      r.ID,
		Name:    r.Name,
		Address: r.Address,
		Port:    r.Port,
		Tags:    r.Tags,
	}
	switch {
	case r.HealthURL != "":
		reg.Check = &api.AgentServiceCheck{
			HTTP:                           r.HealthURL,
			Interval:                       "10s",
			Timeout:                        "5s",
			DeregisterCriticalServiceAfter: "30s",
		}
	case r.GRPCHealth:
		reg.Check = &api.AgentServiceCheck{
			GRPC:                           fmt.Sprintf("%s:%d", r.Address, r.Port),
			Interval:                       "10s",
			Timeout:                        "5s",
			DeregisterCriticalServiceAfter: "30s",
		}
	}
	if err := c.client.Agent().ServiceRegister(reg); err != nil {
		return fmt.Errorf("register %s: %w", r.Name, err)
	}
	c.log.Info("service registered", "name", r.Name, "id", r.ID, "address", r.Address, "port", r.Port)
	return nil
}

func (c *Client) Deregister(id string) error {
	if err := c.client.Agent().ServiceDeregister(id); err != nil {
		return fmt.Errorf("deregister %s: %w", id, err)
	}
	return nil
}

// Resolve returns host:port of the first passing instance of name.
func (c *Client) Resolve(name string) (string, error) {
	entries, _, err := c.client.Health().Service(name, "", true, nil)
	if err != nil {
		return "", fmt.Errorf("lookup %s: %w", name, err)
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("no healthy instances of %s", name)
	}
	svc := entries[0].Service
	host := svc.Address
	if host == "" {
		host = entries[0].Node.Address
	}
	return fmt.Sprintf("%s:%d", host, svc.Port), nil
}

// ResolveOr resolves name through Consul when c is non-nil, otherwise (or on
// lookup failure) it returns fallback.
func ResolveOr(c *Client, name, fallback string) string {
	if c == nil {
		return fallback
	}
	addr, err := c.Resolve(name)
	if err != nil {
		c.log.Warn("service lookup failed, using static address", "name", name, "fallback", fallback, "err", err)
		return fallback
	}
	return addr
}
