package registry

import (
	"context"
	"fmt"
	"strings"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdStore is an ExternalStore backed by etcd's key/value API. Lists and
// sets are modeled as a key prefix per member, since etcd has no native
// list/set value type; List/SetMembers return members ordered by key.
type EtcdStore struct {
	client *clientv3.Client
	prefix string
}

// NewEtcdStore dials endpoints and returns a store namespaced by prefix.
func NewEtcdStore(endpoints []string, prefix string) (*EtcdStore, error) {
	cli, err := clientv3.New(clientv3.Config{Endpoints: endpoints})
	if err != nil {
		return nil, &Error{Component: "registry.etcd", Operation: "NewEtcdStore", Message: "dial failed", Err: err}
	}
	return &EtcdStore{client: cli, prefix: strings.TrimSuffix(prefix, "/")}, nil
}

func (s *EtcdStore) key(key string) string {
	return s.prefix + "/" + key
}

func (s *EtcdStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.client.Put(ctx, s.key(key), string(value))
	return err
}

func (s *EtcdStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	resp, err := s.client.Get(ctx, s.key(key))
	if err != nil {
		return nil, false, err
	}
	if len(resp.Kvs) == 0 {
		return nil, false, nil
	}
	return resp.Kvs[0].Value, true, nil
}

func (s *EtcdStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.Delete(ctx, s.key(key))
	return err
}

func (s *EtcdStore) ListAppend(ctx context.Context, key string, value []byte) error {
	resp, err := s.client.Get(ctx, s.key(key)+"/", clientv3.WithPrefix(), clientv3.WithCountOnly())
	if err != nil {
		return err
	}
	member := fmt.Sprintf("%s/%010d", s.key(key), resp.Count)
	_, err = s.client.Put(ctx, member, string(value))
	return err
}

func (s *EtcdStore) List(ctx context.Context, key string) ([][]byte, error) {
	resp, err := s.client.Get(ctx, s.key(key)+"/", clientv3.WithPrefix(), clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
	if err != nil {
		return nil, err
	}
	out := make([][]byte, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		out = append(out, kv.Value)
	}
	return out, nil
}

func (s *EtcdStore) SetAdd(ctx context.Context, key, value string) error {
	member := s.key(key) + "/" + value
	_, err := s.client.Put(ctx, member, value)
	return err
}

func (s *EtcdStore) SetMembers(ctx context.Context, key string) ([]string, error) {
	resp, err := s.client.Get(ctx, s.key(key)+"/", clientv3.WithPrefix(), clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		out = append(out, string(kv.Value))
	}
	return out, nil
}

func (s *EtcdStore) Close() error {
	return s.client.Close()
}
