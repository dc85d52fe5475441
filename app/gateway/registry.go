package gateway

import (
	"errors"
	"strings"
)

var ErrProviderNotSupported = errors.New("provider is not supported")

type Registry struct {
	clients map[string]Client
}

func NewRegistry(clients ...Client) *Registry {
	items := make(map[string]Client, len(clients))
	for _, c := range clients {
		items[c.Name()] = c
	}
	return &Registry{clients: items}
}

func (r *Registry) Get(name string) (Client, error) {
	client, ok := r.clients[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, ErrProviderNotSupported
	}
	return client, nil
}
