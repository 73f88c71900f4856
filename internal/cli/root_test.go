package cli

import (
	"testing"
)

func TestRootCommandWiring(t *testing.T) {
	root := NewRootCommand()

	want := []string{"set-password", "login", "status", "balance", "add", "history"}
	for _, name := range want {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestResolvePassword(t *testing.T) {
	t.Run("flag wins", func(t *testing.T) {
		t.Setenv("STASH_PASSWORD", "from-env")
		opts := &options{password: "from-flag"}
		got, err := opts.resolvePassword()
		if err != nil {
			t.Fatal(err)
		}
		if got != "from-flag" {
			t.Errorf("password = %q, want from-flag", got)
		}
	})

	t.Run("env fallback", func(t *testing.T) {
		t.Setenv("STASH_PASSWORD", "from-env")
		opts := &options{}
		got, err := opts.resolvePassword()
		if err != nil {
			t.Fatal(err)
		}
		if got != "from-env" {
			t.Errorf("password = %q, want from-env", got)
		}
	})

	t.Run("missing", func(t *testing.T) {
		// An empty value counts as unset and is restored afterwards.
		t.Setenv("STASH_PASSWORD", "")
		opts := &options{}
		if _, err := opts.resolvePassword(); err == nil {
			t.Error("resolvePassword() should fail with no sources")
		}
	})
}
