package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"evolutech-console/internal/apiclient"
	"evolutech-console/internal/modules"
	"evolutech-console/internal/session"
	"evolutech-console/internal/tokens"
	"evolutech-console/pkg/logger"

	"github.com/spf13/cobra"
)

// Backend is what the CLI needs from the Evolutech API.
type Backend interface {
	Me(ctx context.Context, token string) (apiclient.MeResponse, error)
	Login(ctx context.Context, email, password string) (apiclient.LoginResponse, error)
}

// newBackend is swapped in tests.
var newBackend = func(baseURL string, timeout time.Duration) (Backend, error) {
	c, err := apiclient.New(baseURL, timeout)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ErrDenied makes "can" and "route" exit non-zero when access is not granted.
var ErrDenied = errors.New("access denied")

var (
	apiURL      string
	apiTimeout  time.Duration
	tokenDir    string
	aliasesPath string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "evoctl",
	Short: "Operator console for the Evolutech platform",
	Long: `evoctl signs an operator in to the Evolutech API and answers the same
questions the dashboard asks: who am I, where do I land, which modules does my
company have, and may I open a given area.

The token is kept in the user config directory (evoctl/evolutech_token).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// ExecuteContext runs the root command.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", os.Getenv("API_BASE_URL"), "Evolutech API base URL (env API_BASE_URL)")
	rootCmd.PersistentFlags().DurationVar(&apiTimeout, "timeout", 10*time.Second, "API request timeout")
	rootCmd.PersistentFlags().StringVar(&tokenDir, "token-dir", "", "directory holding the session token (default: user config dir)")
	rootCmd.PersistentFlags().StringVar(&aliasesPath, "aliases", os.Getenv("MODULE_ALIASES_PATH"), "YAML module alias overrides (env MODULE_ALIASES_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")
}

// env bundles what every subcommand opens.
type env struct {
	out     io.Writer
	log     *slog.Logger
	backend Backend
	tokens  *tokens.File
	aliases modules.AliasTable
}

func openEnv(cmd *cobra.Command) (*env, error) {
	if apiURL == "" {
		return nil, fmt.Errorf("--api or API_BASE_URL is required")
	}
	b, err := newBackend(apiURL, apiTimeout)
	if err != nil {
		return nil, err
	}

	dir := tokenDir
	if dir == "" {
		if dir, err = tokens.DefaultDir(); err != nil {
			return nil, fmt.Errorf("token dir: %w", err)
		}
	}

	aliases, err := modules.LoadAliasTable(aliasesPath)
	if err != nil {
		return nil, err
	}

	level := "production"
	if verbose {
		level = "dev"
	}
	return &env{
		out:     cmd.OutOrStdout(),
		log:     logger.NewWriter(cmd.ErrOrStderr(), level),
		backend: b,
		tokens:  tokens.NewFile(dir, tokens.OperatorKey),
		aliases: aliases,
	}, nil
}

func (e *env) session() *session.Store {
	return session.New(e.tokens, e.backend,
		session.WithLogger(e.log),
		session.WithNotifier(session.NotifierFunc(func(_ context.Context, n session.Notice) {
			fmt.Fprintln(e.out, n.Message)
		})),
	)
}

func (e *env) resolver() *modules.Resolver {
	return modules.NewResolver(e.tokens, e.backend,
		modules.WithAliases(e.aliases),
		modules.WithLogger(e.log),
	)
}
