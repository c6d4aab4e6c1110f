package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wow-look-at-my/airfilter/src/attach"
	"github.com/wow-look-at-my/airfilter/src/logging"
	"github.com/wow-look-at-my/airfilter/src/prompt"
	"github.com/wow-look-at-my/airfilter/src/runner"
	"github.com/wow-look-at-my/airfilter/src/scoped"
)

var (
	cfgFile       string
	verbose       bool
	quiet         bool
	shell         string
	workdir       string
	logFile       string
	logLevel      string
	interactive   bool
	promptTimeout int

	// shims stubs out kubectl in tests.
	shims *runner.Shims
)

// namespacePattern is an RFC 1123 DNS label, which namespaces must be.
var namespacePattern = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]{0,61}[a-z0-9])?$`)

var rootCmd = &cobra.Command{
	Use:   "airfilter [NAMESPACE]",
	Short: "Turn on statement logging in an airflow postgres pod",
	Long: "Finds the postgres pod in NAMESPACE, appends `log_statement = all` to its\n" +
		"config if missing and reloads the server so every statement is logged.",
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default: ./airfilter.yaml or $XDG_CONFIG_HOME/airfilter/airfilter.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", true, "Show commands and their output")
	flags.BoolVarP(&quiet, "quiet", "q", false, "Only show what is needed to diagnose a failure")
	flags.StringVar(&shell, "shell", "bash", "Shell used to run commands")
	flags.StringVar(&workdir, "workdir", ".", "Directory commands run in")
	flags.StringVar(&logFile, "log-file", "", "Also write a JSON log to this file")
	flags.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	flags.BoolVarP(&interactive, "interactive", "i", false, "Confirm each step")
	flags.IntVar(&promptTimeout, "prompt-timeout", 10, "Seconds to wait before reloading without an answer")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// session is everything a run needs, built from Config.
type session struct {
	cfg    Config
	io     *scoped.IO
	asker  attach.Asker
	closer io.Closer
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.Flags(), cfgFile)
	if err != nil {
		return err
	}
	if quiet {
		cfg.Verbose = false
	}
	if len(args) == 1 {
		cfg.Namespace = args[0]
	}

	s, err := newSession(cfg, cmd.ErrOrStderr(), cmd.InOrStdin())
	if err != nil {
		return err
	}
	defer s.closer.Close()
	return s.attach()
}

func newSession(cfg Config, stderr io.Writer, stdin io.Reader) (*session, error) {
	logger, closer, err := logging.New(logging.Options{
		File:    cfg.LogFile,
		Level:   cfg.LogLevel,
		Console: stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("setting up logging: %w", err)
	}

	sio := scoped.NewIO(scoped.Options{
		Verbose: cfg.Verbose,
		Logger:  logger,
		Workdir: cfg.Workdir,
		Shell:   cfg.Shell,
		Shims:   shims,
	})
	if stderr != os.Stderr {
		sio.Ctx.Out = stderr
		sio.Ctx.Color = false
	}

	s := &session{cfg: cfg, io: sio, closer: closer}
	if cfg.Interactive {
		if f, ok := stdin.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
			logger.Warn("stdin is not a terminal, running non-interactively")
		} else {
			s.asker = &prompt.Prompter{In: stdin, Out: stderr, Notes: sio.Info.Printer()}
		}
	}
	return s, nil
}

// attach resolves the namespace and hands off to attach.KubeAttach.
func (s *session) attach() error {
	ns := s.cfg.Namespace
	if ns == "" {
		getter, ok := s.asker.(interface {
			GetString(string, *regexp.Regexp) (string, error)
		})
		if !ok {
			return errors.New("a namespace is required (argument, AIRFILTER_NAMESPACE or config)")
		}
		var err error
		if ns, err = getter.GetString("Kubernetes namespace of the airflow deployment", namespacePattern); err != nil {
			return err
		}
	}
	if !namespacePattern.MatchString(ns) {
		return fmt.Errorf("invalid namespace %q: must be a DNS-1123 label", ns)
	}

	err := attach.KubeAttach(s.io, ns, attach.Options{Asker: s.asker, PromptTimeout: s.cfg.PromptTimeout})
	s.io.Ctx.Logger.Info("attach finished", "namespace", ns, "ok", err == nil)
	return err
}
