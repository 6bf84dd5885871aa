package store

import (
	"reflect"
	"testing"
)

// TestSuite runs a suite of tests against a store implementation.
func TestSuite(t *testing.T, newStore func() Store) {
	t.Helper()
	t.Run("GetSet", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		if _, err := s.Get("abc"); err != ErrNotFound {
			t.Errorf("expected not found error, got: %v", err)
		}
		if err := s.Set("", []byte("x")); err != ErrMalformedKey {
			t.Errorf("expected malformed error, got: %v", err)
		}
		if err := s.Set("abc", []byte(`{"a":1}`)); err != nil {
			t.Errorf("unexpected error: %s", err)
		}
		if got, err := s.Get("abc"); err != nil {
			t.Errorf("unexpected error: %s", err)
		} else if string(got) != `{"a":1}` {
			t.Errorf("got: %s; want %s", got, `{"a":1}`)
		}

		// Overwrite
		if err := s.Set("abc", []byte(`2`)); err != nil {
			t.Errorf("unexpected error: %s", err)
		}
		if got, err := s.Get("abc"); err != nil {
			t.Errorf("unexpected error: %s", err)
		} else if string(got) != `2` {
			t.Errorf("got: %s; want %s", got, `2`)
		}
	})

	t.Run("ValueCopy", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		value := []byte("hello")
		if err := s.Set("abc", value); err != nil {
			t.Fatal(err)
		}
		value[0] = 'j'
		got, err := s.Get("abc")
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != "hello" {
			t.Errorf("store retained caller's buffer: got %q", got)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		if err := s.Delete("abc"); err != ErrNotFound {
			t.Errorf("expected not found error, got: %v", err)
		}
		if err := s.Set("abc", []byte("1")); err != nil {
			t.Fatal(err)
		}
		if err := s.Delete("abc"); err != nil {
			t.Errorf("unexpected error: %s", err)
		}
		if _, err := s.Get("abc"); err != ErrNotFound {
			t.Errorf("expected not found error, got: %v", err)
		}
	})

	t.Run("Keys", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		if keys, err := s.Keys(""); err != nil {
			t.Errorf("unexpected error: %s", err)
		} else if len(keys) != 0 {
			t.Errorf("got: %q; want no keys", keys)
		}

		for _, key := range []string{"user:b", "user:a", "session:x", "user"} {
			if err := s.Set(key, []byte("1")); err != nil {
				t.Fatal(err)
			}
		}

		testcases := []struct {
			prefix string
			want   []string
		}{
			{"", []string{"session:x", "user", "user:a", "user:b"}},
			{"user:", []string{"user:a", "user:b"}},
			{"session", []string{"session:x"}},
			{"nope", []string{}},
		}
		for _, tc := range testcases {
			got, err := s.Keys(tc.prefix)
			if err != nil {
				t.Errorf("%q: unexpected error: %s", tc.prefix, err)
				continue
			}
			if len(got) == 0 && len(tc.want) == 0 {
				continue
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("%q: got: %q; want %q", tc.prefix, got, tc.want)
			}
		}
	})
}
