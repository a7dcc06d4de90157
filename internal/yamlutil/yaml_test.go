package yamlutil

import (
	"errors"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

func TestUnmarshal(t *testing.T) {
	t.Run("parses valid yaml", func(t *testing.T) {
		var s sample
		if err := Unmarshal([]byte("name: test\ncount: 3\n"), &s); err != nil {
			t.Fatalf("Unmarshal() error: %v", err)
		}
		if s.Name != "test" || s.Count != 3 {
			t.Errorf("got %+v, want {test 3}", s)
		}
	})

	t.Run("ignores unknown fields", func(t *testing.T) {
		var s sample
		if err := Unmarshal([]byte("name: test\nextra: 1\n"), &s); err != nil {
			t.Errorf("Unmarshal() error: %v", err)
		}
	})

	t.Run("empty data", func(t *testing.T) {
		var s sample
		if err := Unmarshal(nil, &s); !errors.Is(err, ErrNilData) {
			t.Errorf("error = %v, want ErrNilData", err)
		}
	})

	t.Run("nil destination", func(t *testing.T) {
		if err := Unmarshal([]byte("a: 1"), nil); !errors.Is(err, ErrNilDestination) {
			t.Errorf("error = %v, want ErrNilDestination", err)
		}
	})

	t.Run("oversized input", func(t *testing.T) {
		var s sample
		data := []byte("name: " + strings.Repeat("x", MaxInputSize))
		if err := Unmarshal(data, &s); !errors.Is(err, ErrInputTooLarge) {
			t.Errorf("error = %v, want ErrInputTooLarge", err)
		}
	})
}

func TestUnmarshalStrict(t *testing.T) {
	t.Run("parses valid yaml", func(t *testing.T) {
		var s sample
		if err := UnmarshalStrict([]byte("name: test\n"), &s); err != nil {
			t.Fatalf("UnmarshalStrict() error: %v", err)
		}
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		var s sample
		if err := UnmarshalStrict([]byte("name: test\nextra: 1\n"), &s); err == nil {
			t.Error("unknown field accepted")
		}
	})
}
