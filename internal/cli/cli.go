// Package cli implements the gamebuddy command tree.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/txn2/gamebuddy/pkg/platform"
	"github.com/txn2/gamebuddy/pkg/session"
)

// Version is set at build time.
var Version = "dev"

// EnvConfig names the environment variable holding the config path.
const EnvConfig = "GAMEBUDDY_CONFIG"

const (
	slogKeyError = "error"
	expiredHint  = "session expired, run `gamebuddy login`"
)

// ErrSessionExpired is returned when the backend rejected the stored token
// during a command.
var ErrSessionExpired = errors.New("session expired")

// Streams are the command's standard streams.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// app carries state shared by every command of one invocation.
type app struct {
	streams    Streams
	configPath string
	baseURL    string
	envFile    string

	// opts are extra platform options, used by tests.
	opts []platform.Option

	platform *platform.Platform
	stdin    *bufio.Reader

	expiredOnce sync.Once
	expired     bool
}

// NewRootCommand builds the command tree.
func NewRootCommand(streams Streams, opts ...platform.Option) *cobra.Command {
	return newApp(streams, opts).rootCommand()
}

func newApp(streams Streams, opts []platform.Option) *app {
	return &app{streams: streams, opts: opts, stdin: bufio.NewReader(streams.In)}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "gamebuddy",
		Short:         "Browse games, write reviews and keep a wishlist",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.open(cmd.Context())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}
	root.SetIn(a.streams.In)
	root.SetOut(a.streams.Out)
	root.SetErr(a.streams.Err)

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to configuration file (default $"+EnvConfig+")")
	root.PersistentFlags().StringVar(&a.baseURL, "base-url", "", "backend base URL, overrides api.base_url")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before the config")

	root.AddCommand(
		a.versionCommand(),
		a.loginCommand(),
		a.signupCommand(),
		a.logoutCommand(),
		a.whoamiCommand(),
		a.passwdCommand(),
		a.gamesCommand(),
		a.gameCommand(),
		a.reviewCommand(),
		a.wishlistCommand(),
		a.avatarCommand(),
		a.sessionCommand(),
	)
	return root
}

// Execute runs the command tree with args and returns the process exit code.
func Execute(ctx context.Context, args []string, streams Streams, opts ...platform.Option) int {
	a := newApp(streams, opts)
	defer func() { _ = a.close() }()

	root := a.rootCommand()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, ErrSessionExpired) {
			_, _ = fmt.Fprintf(streams.Err, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func (a *app) open(ctx context.Context) error {
	if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", a.envFile, err)
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if err := setupLogging(cfg.Log, a.streams.Err); err != nil {
		return err
	}

	opts := append([]platform.Option{
		platform.WithConfig(cfg),
		platform.WithNavigator(session.NavigatorFunc(a.toLogin)),
	}, a.opts...)
	p, err := platform.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("starting gamebuddy: %w", err)
	}
	a.platform = p
	return p.Start(ctx)
}

func (a *app) loadConfig() (*platform.Config, error) {
	path := a.configPath
	if path == "" {
		path = os.Getenv(EnvConfig)
	}

	cfg := platform.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = platform.LoadConfig(path); err != nil {
			return nil, err
		}
	}
	if a.baseURL != "" {
		cfg.API.BaseURL = a.baseURL
	}
	if cfg.API.UserAgent == "" {
		cfg.API.UserAgent = "gamebuddy/" + Version
	}
	return cfg, nil
}

func (a *app) close() error {
	if a.platform == nil {
		return nil
	}
	return a.platform.Close()
}

// toLogin prints the re-login hint once per invocation when the backend
// rejects the token.
func (a *app) toLogin(reason session.Reason) {
	if reason != session.ReasonExpired {
		return
	}
	a.expiredOnce.Do(func() {
		a.expired = true
		_, _ = fmt.Fprintln(a.streams.Err, expiredHint)
	})
}

// requireAuth waits for the session restore and fails when signed out.
func (a *app) requireAuth(ctx context.Context) error {
	sess := a.platform.Session()
	if err := sess.Wait(ctx); err != nil {
		return err
	}
	if !sess.IsAuthenticated() {
		return errors.New("not signed in, run `gamebuddy login`")
	}
	return nil
}

// done maps a command's outcome to its error. A token rejected during the
// command wins over the command's own message.
func (a *app) done(err error) error {
	if a.expired {
		return ErrSessionExpired
	}
	return err
}

// readLine reads one line from stdin, prompting on stderr.
func (a *app) readLine(prompt string) (string, error) {
	_, _ = fmt.Fprint(a.streams.Err, prompt)
	line, err := a.stdin.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("reading %s: %w", strings.TrimSuffix(strings.ToLower(prompt), ": "), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
