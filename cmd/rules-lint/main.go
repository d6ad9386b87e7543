// Command rules-lint checks a Firestore security rules file and exits non-zero
// when it finds errors.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pauljones0/bizdir/internal/rules"
)

// errLintFailed is returned when the rules file has at least one error finding.
var errLintFailed = errors.New("rules lint failed")

type options struct {
	policyPath       string
	maxUnconditional int
	watch            bool
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{maxUnconditional: -1}

	cmd := &cobra.Command{
		Use:   "rules-lint [path]",
		Short: "Lint a Firestore security rules file",
		Long: `Checks the rules file for the version pragma, a default-deny block,
balanced braces, unconditional allows above a threshold and direct writes to
protected collections. Exits with status 1 when any error is found.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "firestore.rules"
			if len(args) == 1 {
				path = args[0]
			}

			policy := rules.DefaultPolicy()
			if opts.policyPath != "" {
				var err error
				if policy, err = rules.LoadPolicy(opts.policyPath); err != nil {
					return err
				}
			}
			if opts.maxUnconditional >= 0 {
				policy.MaxUnconditionalAllows = opts.maxUnconditional
			}

			err := lintFile(out, path, policy)
			if !opts.watch {
				return err
			}
			if err != nil && !errors.Is(err, errLintFailed) {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			fmt.Fprintf(out, "watching %s for changes (Ctrl+C to stop)\n", path)
			return rules.Watch(ctx, path, 0, func() {
				fmt.Fprintln(out)
				if err := lintFile(out, path, policy); err != nil && !errors.Is(err, errLintFailed) {
					fmt.Fprintf(out, "%s: %v\n", path, err)
				}
			})
		},
	}

	cmd.Flags().StringVar(&opts.policyPath, "policy", "", "YAML policy file")
	cmd.Flags().IntVar(&opts.maxUnconditional, "max-unconditional", -1, "maximum unconditional allow rules (overrides the policy)")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "re-lint whenever the file changes")
	return cmd
}

// lintFile prints the findings for path and returns errLintFailed if any is an error.
func lintFile(out io.Writer, path string, policy rules.Policy) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read rules: %w", err)
	}

	findings := rules.Lint(src, policy)
	errCount := 0
	for _, f := range findings {
		if f.Severity == rules.SeverityError {
			errCount++
		}
		fmt.Fprintf(out, "%s:%s\n", path, f)
	}
	fmt.Fprintf(out, "%s: %d error(s), %d warning(s)\n", path, errCount, len(findings)-errCount)

	if rules.HasErrors(findings) {
		return errLintFailed
	}
	return nil
}

func main() {
	cmd := newRootCmd(os.Stdout)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errLintFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
