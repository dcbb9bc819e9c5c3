// sandbox-worker answers the capability self-tests used by validator-guard.
// Exactly one check flag is expected; the exit status is 0 when the
// capability can be enabled and 1 otherwise, with the reason on stderr.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/VikingOwl91/validator-guard/internal/security"
	"github.com/VikingOwl91/validator-guard/internal/selftest"
	"github.com/spf13/pflag"
)

func main() {
	// Detect re-exec sentinel BEFORE flag parsing
	if len(os.Args) == 3 && os.Args[1] == selftest.ChangeRootSentinel {
		exitOn(selftest.RunChangeRootEntrypoint(os.Args[2]))
	}

	flags := pflag.NewFlagSet("sandbox-worker", pflag.ContinueOnError)
	landlock := flags.Bool(security.FlagCheckLandlock[2:], false, "check that Landlock can be enabled")
	seccomp := flags.Bool(security.FlagCheckSeccomp[2:], false, "check that a seccomp filter can be installed")
	changeRoot := flags.String(security.FlagCheckChangeRoot[2:], "", "check that the user namespace can be unshared and root changed to `DIR`")

	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		exitOn(err)
	}

	selected := 0
	for _, set := range []bool{*landlock, *seccomp, *changeRoot != ""} {
		if set {
			selected++
		}
	}
	if selected != 1 {
		exitOn(fmt.Errorf("exactly one check flag is required"))
	}

	switch {
	case *landlock:
		exitOn(selftest.CheckLandlock(security.LandlockABI))
	case *seccomp:
		exitOn(selftest.CheckSeccomp())
	default:
		exitOn(selftest.CheckChangeRoot(context.Background(), *changeRoot))
	}
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(0)
}
