package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	consul "github.com/hashicorp/consul/api"
)

// ConsulStore is an ExternalStore backed by Consul's KV API, the
// alternate external backend alongside EtcdStore (see DESIGN.md).
type ConsulStore struct {
	client *consul.Client
	prefix string
}

// NewConsulStore connects using cfg (nil selects Consul's library
// defaults) and returns a store namespaced by prefix.
func NewConsulStore(cfg *consul.Config, prefix string) (*ConsulStore, error) {
	if cfg == nil {
		cfg = consul.DefaultConfig()
	}
	client, err := consul.NewClient(cfg)
	if err != nil {
		return nil, &Error{Component: "registry.consul", Operation: "NewConsulStore", Message: "connect failed", Err: err}
	}
	return &ConsulStore{client: client, prefix: strings.TrimSuffix(prefix, "/")}, nil
}

func (s *ConsulStore) key(key string) string {
	return s.prefix + "/" + key
}

func (s *ConsulStore) Put(_ context.Context, key string, value []byte) error {
	_, err := s.client.KV().Put(&consul.KVPair{Key: s.key(key), Value: value}, nil)
	return err
}

func (s *ConsulStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	pair, _, err := s.client.KV().Get(s.key(key), nil)
	if err != nil {
		return nil, false, err
	}
	if pair == nil {
		return nil, false, nil
	}
	return pair.Value, true, nil
}

func (s *ConsulStore) Delete(_ context.Context, key string) error {
	_, err := s.client.KV().Delete(s.key(key), nil)
	return err
}

func (s *ConsulStore) ListAppend(_ context.Context, key string, value []byte) error {
	pairs, _, err := s.client.KV().List(s.key(key)+"/", nil)
	if err != nil {
		return err
	}
	member := fmt.Sprintf("%s/%010d", s.key(key), len(pairs))
	_, err = s.client.KV().Put(&consul.KVPair{Key: member, Value: value}, nil)
	return err
}

func (s *ConsulStore) List(_ context.Context, key string) ([][]byte, error) {
	pairs, _, err := s.client.KV().List(s.key(key)+"/", nil)
	if err != nil {
		return nil, err
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
	out := make([][]byte, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, p.Value)
	}
	return out, nil
}

func (s *ConsulStore) SetAdd(_ context.Context, key, value string) error {
	member := s.key(key) + "/" + value
	_, err := s.client.KV().Put(&consul.KVPair{Key: member, Value: []byte(value)}, nil)
	return err
}

func (s *ConsulStore) SetMembers(_ context.Context, key string) ([]string, error) {
	pairs, _, err := s.client.KV().List(s.key(key)+"/", nil)
	if err != nil {
		return nil, err
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, string(p.Value))
	}
	return out, nil
}
