package consul

import (
	"fmt"

	consulapi "github.com/hashicorp/consul/api"
)

// NewClient connects to the local Consul agent at the given address.
func NewClient(address string) (*consulapi.Client, error) {
	config := consulapi.DefaultConfig()
	config.Address = address
	client, err := consulapi.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}
	return client, nil
}

// RegisterService registers this process with Consul so gateways and other
// services can discover it. Registration includes an HTTP health check
// against /api/health.
func RegisterService(client *consulapi.Client, name, address string, port int) error {
	registration := &consulapi.AgentServiceRegistration{
		ID:      fmt.Sprintf("%s-%s-%d", name, address, port),
		Name:    name,
		Address: address,
		Port:    port,
		Check: &consulapi.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s:%d/api/health", address, port),
			Interval:                       "15s",
			Timeout:                        "3s",
			DeregisterCriticalServiceAfter: "1m",
		},
	}
	if err := client.Agent().ServiceRegister(registration); err != nil {
		return fmt.Errorf("failed to register service with consul: %w", err)
	}
	return nil
}
