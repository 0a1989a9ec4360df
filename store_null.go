package tiered

import "context"

// nullStore never holds anything. Used to run without a disk tier.
type nullStore struct{}

func newNullStore() Store { return &nullStore{} }

func (s *nullStore) Driver() Driver { return DriverNull }

func (s *nullStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (s *nullStore) Set(context.Context, string, []byte) error { return nil }

func (s *nullStore) Increment(context.Context, string, int64) (int64, error) {
	return 0, nil
}

func (s *nullStore) Delete(context.Context, string) error { return nil }
