package provider

import (
	"context"
	"errors"
	"sort"
	"testing"
)

// fakeProvider is a minimal Provider for registry tests.
type fakeProvider struct {
	name     string
	typeName string
}

func (f *fakeProvider) Name() string               { return f.name }
func (f *fakeProvider) Type() string               { return f.typeName }
func (f *fakeProvider) Ping(context.Context) error { return nil }
func (f *fakeProvider) Publish(context.Context, string, []Record) error {
	return nil
}

func fakeFactory(typeName string) Factory {
	return func(name string, config map[string]string) (Provider, error) {
		return &fakeProvider{name: name, typeName: typeName}, nil
	}
}

func TestRegistryCreateAndGet(t *testing.T) {
	r := NewRegistry()
	r.RegisterFactory("zonefile", fakeFactory("zonefile"))

	if err := r.CreateInstance("local", "zonefile", nil); err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}

	p, ok := r.Get("local")
	if !ok {
		t.Fatal("instance not found")
	}
	if p.Name() != "local" || p.Type() != "zonefile" {
		t.Errorf("unexpected instance: %s/%s", p.Name(), p.Type())
	}

	if _, ok := r.Get("ghost"); ok {
		t.Error("Get returned an instance that was never created")
	}
}

func TestRegistryUnknownType(t *testing.T) {
	r := NewRegistry()

	err := r.CreateInstance("local", "zonefile", nil)
	if err == nil {
		t.Error("expected an error for an unregistered type")
	}
}

func TestRegistryFactoryFailure(t *testing.T) {
	r := NewRegistry()
	fail := errors.New("bad config")
	r.RegisterFactory("sftp", func(name string, config map[string]string) (Provider, error) {
		return nil, fail
	})

	err := r.CreateInstance("remote", "sftp", nil)
	if !errors.Is(err, fail) {
		t.Errorf("err = %v, want wrapped factory error", err)
	}
	if _, ok := r.Get("remote"); ok {
		t.Error("failed instance should not be registered")
	}
}

func TestRegistryAllPreservesOrder(t *testing.T) {
	r := NewRegistry()
	r.RegisterFactory("zonefile", fakeFactory("zonefile"))
	r.RegisterFactory("rfc2136", fakeFactory("rfc2136"))

	names := []string{"c", "a", "b"}
	for _, name := range names {
		if err := r.CreateInstance(name, "zonefile", nil); err != nil {
			t.Fatalf("CreateInstance(%s): %v", name, err)
		}
	}

	all := r.All()
	if len(all) != len(names) {
		t.Fatalf("got %d instances, want %d", len(all), len(names))
	}
	for i, p := range all {
		if p.Name() != names[i] {
			t.Errorf("instance %d = %s, want %s (creation order)", i, p.Name(), names[i])
		}
	}
}

func TestRegistryTypes(t *testing.T) {
	r := NewRegistry()
	r.RegisterFactory("zonefile", fakeFactory("zonefile"))
	r.RegisterFactory("sftp", fakeFactory("sftp"))
	r.RegisterFactory("rfc2136", fakeFactory("rfc2136"))

	types := r.Types()
	sort.Strings(types)
	want := []string{"rfc2136", "sftp", "zonefile"}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("types = %v, want %v", types, want)
		}
	}
}
