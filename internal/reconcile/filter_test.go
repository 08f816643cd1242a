package reconcile

import "testing"

func TestNoFilterMeansNil(t *testing.T) {
	f, err := buildUnitFilter("  ")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if f != nil {
		t.Fatal("blank inline must disable the filter")
	}
}

func TestExpressionPredicate(t *testing.T) {
	f, err := buildUnitFilter(`unit.id ~= "beta"`)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	keep, err := f("alpha", "1.0.0", "units/alpha")
	if err != nil || !keep {
		t.Fatalf("alpha: keep=%v err=%v", keep, err)
	}
	keep, err = f("beta", "1.0.0", "units/beta")
	if err != nil || keep {
		t.Fatalf("beta: keep=%v err=%v", keep, err)
	}
}

func TestStatementPredicate(t *testing.T) {
	f, err := buildUnitFilter(`
local major = string.match(unit.version, "^(%d+)")
return major ~= "0"
`)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	keep, err := f("alpha", "1.2.3", "units/alpha")
	if err != nil || !keep {
		t.Fatalf("stable unit: keep=%v err=%v", keep, err)
	}
	keep, err = f("experimental", "0.1.0", "units/experimental")
	if err != nil || keep {
		t.Fatalf("pre-release unit: keep=%v err=%v", keep, err)
	}
}

func TestSyntaxErrorFailsBuild(t *testing.T) {
	if _, err := buildUnitFilter(`return (((`); err == nil {
		t.Fatal("expected syntax error at build time")
	}
}

func TestNonBooleanReturnIsError(t *testing.T) {
	f, err := buildUnitFilter(`return "yes"`)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := f("alpha", "1.0.0", "units/alpha"); err == nil {
		t.Fatal("expected error for non-boolean return")
	}
}

func TestSandboxBlocksOS(t *testing.T) {
	f, err := buildUnitFilter(`return os ~= nil and os.getenv ~= nil`)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	keep, err := f("alpha", "1.0.0", "units/alpha")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if keep {
		t.Fatal("os library must not be available in the sandbox")
	}
}
