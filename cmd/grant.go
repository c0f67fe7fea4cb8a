package cmd

import (
	"context"
	"io"

	"github.com/agubarev/rolegate/internal/core"
	"github.com/agubarev/rolegate/pkg/role"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newGrantCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "grant <role> <account>",
		Short: "Grant a role to an account, replacing its current grantee.",
		Args:  cobra.ExactArgs(2),
		RunE: withCore(v, func(ctx context.Context, c *core.Core, out io.Writer, args []string) error {
			r, err := role.ParseRole(args[0])
			if err != nil {
				return err
			}

			grantee := role.Account(args[1])

			if err = c.Registry().Set(ctx, r, grantee); err != nil {
				return err
			}

			return printJSON(out, role.Grant{Role: r, Grantee: grantee})
		}),
	}
}

func newRevokeCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <role>",
		Short: "Revoke a role from its current grantee.",
		Args:  cobra.ExactArgs(1),
		RunE: withCore(v, func(ctx context.Context, c *core.Core, out io.Writer, args []string) error {
			r, err := role.ParseRole(args[0])
			if err != nil {
				return err
			}

			if err = c.Registry().Delete(ctx, r); err != nil {
				return err
			}

			return printJSON(out, map[string]interface{}{"role": r, "revoked": true})
		}),
	}
}

func newGetCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "get <role>",
		Short: "Print the current grantee of a role.",
		Args:  cobra.ExactArgs(1),
		RunE: withCore(v, func(ctx context.Context, c *core.Core, out io.Writer, args []string) error {
			r, err := role.ParseRole(args[0])
			if err != nil {
				return err
			}

			grantee, ok, err := c.Registry().Get(ctx, r)
			if err != nil {
				return err
			}

			return printJSON(out, map[string]interface{}{"role": r, "grantee": grantee, "granted": ok})
		}),
	}
}

func newListCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every current grant.",
		Args:  cobra.NoArgs,
		RunE: withCore(v, func(ctx context.Context, c *core.Core, out io.Writer, args []string) error {
			grants, err := c.Registry().Grants(ctx)
			if err != nil {
				return err
			}

			return printJSON(out, grants)
		}),
	}
}

func newRolesOfCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "roles-of <account>",
		Short: "List roles held by an account.",
		Args:  cobra.ExactArgs(1),
		RunE: withCore(v, func(ctx context.Context, c *core.Core, out io.Writer, args []string) error {
			roles, err := c.Registry().RolesOf(ctx, role.Account(args[0]))
			if err != nil {
				return err
			}

			return printJSON(out, roles)
		}),
	}
}

func newVerifyCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Cross-check both registry indexes.",
		Args:  cobra.NoArgs,
		RunE: withCore(v, func(ctx context.Context, c *core.Core, out io.Writer, args []string) error {
			if err := c.Registry().Verify(ctx); err != nil {
				return err
			}

			return printJSON(out, map[string]bool{"consistent": true})
		}),
	}
}
