package cmd

import (
	"context"
	"io"

	"github.com/agubarev/rolegate/internal/core"
	"github.com/agubarev/rolegate/pkg/role"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newCheckCommand(v *viper.Viper) *cobra.Command {
	var assertion bool

	cmd := &cobra.Command{
		Use:   "check <role> <account>",
		Short: "Check whether an account holds a role.",
		Args:  cobra.ExactArgs(2),
		RunE: withCore(v, func(ctx context.Context, c *core.Core, out io.Writer, args []string) error {
			r, err := role.ParseRole(args[0])
			if err != nil {
				return err
			}

			caller := role.Account(args[1])

			if assertion {
				if err = c.Registry().AssertRole(ctx, r, caller); err != nil {
					return err
				}

				return printJSON(out, map[string]bool{"authorized": true})
			}

			has, err := c.Registry().HasRole(ctx, r, caller)
			if err != nil {
				return err
			}

			return printJSON(out, map[string]bool{"authorized": has})
		}),
	}

	cmd.Flags().BoolVar(&assertion, "assert", false, "fail unless the account holds the role")

	return cmd
}

func newCheckAnyCommand(v *viper.Viper) *cobra.Command {
	var assertion bool

	cmd := &cobra.Command{
		Use:   "check-any <account> <role> [role...]",
		Short: "Check whether an account holds at least one of given roles.",
		Args:  cobra.MinimumNArgs(2),
		RunE: withCore(v, func(ctx context.Context, c *core.Core, out io.Writer, args []string) error {
			caller := role.Account(args[0])

			roles := make([]role.Role, 0, len(args)-1)
			for _, key := range args[1:] {
				r, err := role.ParseRole(key)
				if err != nil {
					return err
				}

				roles = append(roles, r)
			}

			if assertion {
				if err := c.Registry().AssertAnyRole(ctx, roles, caller); err != nil {
					return err
				}

				return printJSON(out, map[string]bool{"authorized": true})
			}

			has, err := c.Registry().HasAnyRole(ctx, roles, caller)
			if err != nil {
				return err
			}

			return printJSON(out, map[string]bool{"authorized": has})
		}),
	}

	cmd.Flags().BoolVar(&assertion, "assert", false, "fail unless the account holds any of the roles")

	return cmd
}
