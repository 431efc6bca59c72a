package formula

import (
	"testing"

	"github.com/noahsaso/argus-sub001/internal/testutil"
)

func TestNewDefaultRegistriesSeedsEveryFormula(t *testing.T) {
	rs, err := NewDefaultRegistries()
	testutil.AssertNoError(t, err)

	cases := []struct {
		scope Scope
		name  string
	}{
		{ScopeAccount, "balance"},
		{ScopeContract, "info"},
		{ScopeContract, "feegrantAllowance"},
		{ScopeGeneric, "blockHeightAtTime"},
	}
	for _, c := range cases {
		f, ok := rs.Resolve(c.scope, c.name)
		testutil.AssertTrue(t, ok, "expected %s/%s to be registered", c.scope, c.name)
		testutil.AssertEqual(t, c.name, f.Name)
	}
}

func TestResolveUnknownFormula(t *testing.T) {
	rs, err := NewDefaultRegistries()
	testutil.AssertNoError(t, err)

	_, ok := rs.Resolve(ScopeAccount, "doesNotExist")
	testutil.AssertFalse(t, ok)
}

func TestRegisterRejectsScopeMismatch(t *testing.T) {
	r := NewRegistry(ScopeAccount)
	err := r.Register(Formula{Name: "x", Scope: ScopeContract})
	testutil.AssertError(t, err)
}

func TestGenericBlockHeightAtTimeIsDynamic(t *testing.T) {
	rs, err := NewDefaultRegistries()
	testutil.AssertNoError(t, err)

	f, ok := rs.Resolve(ScopeGeneric, "blockHeightAtTime")
	testutil.AssertTrue(t, ok)
	testutil.AssertTrue(t, f.Dynamic, "blockHeightAtTime must be marked dynamic per spec §4.4")
}
