package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"evolutech-console/internal/rbac"

	"github.com/spf13/cobra"
)

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List the modules enabled for the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		ent := e.resolver().Fetch(cmd.Context())

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(e.out)
			enc.SetIndent("", "  ")
			return enc.Encode(ent)
		}
		if len(ent.Modules) == 0 {
			fmt.Fprintln(e.out, "No modules enabled.")
			return nil
		}
		for _, m := range ent.Modules {
			line := m.Code
			if m.Name != "" {
				line += "\t" + m.Name
			}
			if m.Synthesized {
				line += "\t(default)"
			}
			fmt.Fprintln(e.out, line)
		}
		return nil
	},
}

var canCmd = &cobra.Command{
	Use:   "can <module>",
	Short: "Check whether the current session may use a module",
	Long: `Check a module code the way the dashboard does, including legacy and
localized spellings (orders, pedidos, pedidos_delivery...). Exits non-zero
when the module is not enabled.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		r := e.resolver()
		r.Fetch(cmd.Context())

		code := args[0]
		if r.HasModule(code) {
			fmt.Fprintf(e.out, "%s: allowed\n", code)
			return nil
		}
		fmt.Fprintf(e.out, "%s: not enabled for this company\n", code)
		return ErrDenied
	},
}

var routeCmd = &cobra.Command{
	Use:   "route <path>",
	Short: "Show what the dashboard guards decide for a path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		store := e.session()
		defer store.Close()
		if err := store.Mount(ctx); err != nil {
			return err
		}
		subject := store.Snapshot().Subject()

		path := args[0]
		area, ok := rbac.AreaFor(path)
		if !ok {
			fmt.Fprintf(e.out, "%s: public\n", path)
			return nil
		}

		d := rbac.DecideAccess(subject, area.Policy, path)
		switch d.Outcome {
		case rbac.AccessAllow:
		case rbac.AccessLogin:
			fmt.Fprintf(e.out, "%s: login -> %s?from=%s\n", path, d.Target, d.From)
			return ErrDenied
		case rbac.AccessRedirect:
			fmt.Fprintf(e.out, "%s: redirect -> %s\n", path, d.Target)
			return ErrDenied
		default:
			fmt.Fprintf(e.out, "%s: %s\n", path, d.Outcome)
			return ErrDenied
		}

		if code, isModule := modulePath(path); isModule {
			r := e.resolver()
			r.Fetch(ctx)
			md := rbac.DecideModule(subject, r, code)
			if md.Outcome != rbac.ModuleAllow {
				fmt.Fprintf(e.out, "%s: module %s %s\n", path, md.Module, md.Outcome)
				for _, a := range md.Actions {
					fmt.Fprintf(e.out, "  %s -> %s\n", a.Label, a.Path)
				}
				return ErrDenied
			}
		}
		fmt.Fprintf(e.out, "%s: allow (%s)\n", path, area.Name)
		return nil
	},
}

// modulePath extracts <code> from /empresa/app/modules/<code>[/...].
func modulePath(path string) (string, bool) {
	rest, ok := strings.CutPrefix(path, rbac.AreaCompanyApp.Path+"/modules/")
	if !ok {
		return "", false
	}
	code, _, _ := strings.Cut(rest, "/")
	return code, code != ""
}

func init() {
	modulesCmd.Flags().Bool("json", false, "print the entitlement snapshot as JSON")

	rootCmd.AddCommand(modulesCmd, canCmd, routeCmd)
}
