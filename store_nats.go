package tiered

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"

	"github.com/nats-io/nats.go"
)

const natsIncrementAttempts = 16

// NATSKeyValue captures the subset of nats.KeyValue used by the store.
type NATSKeyValue interface {
	Get(key string) (nats.KeyValueEntry, error)
	Put(key string, value []byte) (uint64, error)
	Create(key string, value []byte) (uint64, error)
	Update(key string, value []byte, last uint64) (uint64, error)
	Purge(key string, opts ...nats.DeleteOpt) error
}

var errNATSUnavailable = errors.New("nats store key-value unavailable")

type natsStore struct {
	kv     NATSKeyValue
	prefix string
}

func newNATSStore(kv NATSKeyValue, prefix string) Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &natsStore{kv: kv, prefix: prefix}
}

func (s *natsStore) Driver() Driver { return DriverNATS }

func (s *natsStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	if s.kv == nil {
		return nil, false, errNATSUnavailable
	}
	entry, err := s.kv.Get(s.storeKey(key))
	if isNATSMiss(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if entry.Operation() != nats.KeyValuePut {
		return nil, false, nil
	}
	return cloneBytes(entry.Value()), true, nil
}

func (s *natsStore) Set(_ context.Context, key string, value []byte) error {
	if s.kv == nil {
		return errNATSUnavailable
	}
	_, err := s.kv.Put(s.storeKey(key), cloneBytes(value))
	return err
}

// Increment is a compare-and-set loop over the entry revision.
func (s *natsStore) Increment(_ context.Context, key string, delta int64) (int64, error) {
	if s.kv == nil {
		return 0, errNATSUnavailable
	}
	storeKey := s.storeKey(key)
	for attempt := 0; attempt < natsIncrementAttempts; attempt++ {
		var (
			current  int64
			revision uint64
		)
		entry, err := s.kv.Get(storeKey)
		switch {
		case isNATSMiss(err):
		case err != nil:
			return 0, err
		case entry.Operation() == nats.KeyValuePut:
			revision = entry.Revision()
			if raw := entry.Value(); len(raw) > 0 {
				current, err = strconv.ParseInt(string(raw), 10, 64)
				if err != nil {
					return 0, fmt.Errorf("store key %q does not contain a numeric value", key)
				}
			}
		}

		next := current + delta
		body := []byte(strconv.FormatInt(next, 10))
		if revision == 0 {
			_, err = s.kv.Create(storeKey, body)
		} else {
			_, err = s.kv.Update(storeKey, body, revision)
		}
		if err == nil {
			return next, nil
		}
		if errors.Is(err, nats.ErrKeyExists) || isNATSMiss(err) {
			continue
		}
		return 0, err
	}
	return 0, errors.New("nats increment exceeded retry limit")
}

func (s *natsStore) Delete(_ context.Context, key string) error {
	if s.kv == nil {
		return errNATSUnavailable
	}
	err := s.kv.Purge(s.storeKey(key))
	if isNATSMiss(err) {
		return nil
	}
	return err
}

func (s *natsStore) storeKey(key string) string {
	return s.scopePrefix() + encodeNATSKeyPart(key)
}

func (s *natsStore) scopePrefix() string {
	return "p." + encodeNATSKeyPart(s.prefix) + ".k."
}

func isNATSMiss(err error) bool {
	return errors.Is(err, nats.ErrKeyNotFound) || errors.Is(err, nats.ErrKeyDeleted)
}

// NATS keys only allow [-/_=.a-zA-Z0-9]; slot keys may contain ':'.
func encodeNATSKeyPart(part string) string {
	if part == "" {
		return "_"
	}
	return base64.RawURLEncoding.EncodeToString([]byte(part))
}
