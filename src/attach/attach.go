// Package attach turns on statement logging in the postgres pod backing an
// airflow deployment.
package attach

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/tidwall/gjson"
	"mvdan.cc/sh/v3/syntax"

	"github.com/wow-look-at-my/airfilter/src/runner"
	"github.com/wow-look-at-my/airfilter/src/scoped"
)

const (
	// ConfigPath is where the bitnami postgres image keeps its config.
	ConfigPath = "/opt/bitnami/postgresql/conf/postgresql.conf"
	// LogSetting is the line appended to ConfigPath.
	LogSetting = "log_statement = all"
	// PodFilter selects the names of pods whose name contains "postgres"
	// from `kubectl get pods -o json` output.
	PodFilter = `items.#(metadata.name%"*postgres*")#.metadata.name`
)

// ErrNoPostgresPod is returned when no pod in the namespace looks like
// postgres.
var ErrNoPostgresPod = errors.New("no postgres pod found")

// ErrDeclined is returned when the user says no to changing the config.
var ErrDeclined = errors.New("declined to change postgres config")

// Asker is the subset of prompt.Prompter used in interactive mode.
type Asker interface {
	YesNo(question string) (bool, error)
	Choose(question string, options, other []string) (string, error)
	TimeoutPrompt(prompt string, seconds int, def string) string
}

// Options tunes KubeAttach.
type Options struct {
	// Asker, when set, confirms each step with the user.
	Asker Asker
	// PromptTimeout is the number of seconds to wait before reloading
	// without an answer.
	PromptTimeout int
}

// FindPods returns the names of postgres pods in a pod listing, in listing
// order.
func FindPods(listing string) []string {
	if !gjson.Valid(listing) {
		return nil
	}
	var names []string
	for _, name := range gjson.Get(listing, PodFilter).Array() {
		names = append(names, name.String())
	}
	return names
}

func quote(s string) (string, error) {
	q, err := syntax.Quote(s, syntax.LangBash)
	if err != nil {
		return "", fmt.Errorf("quoting %q: %w", s, err)
	}
	return q, nil
}

// kube prefixes args with `kubectl -n namespace`, shell-quoting the
// namespace and pod.
type kube struct {
	ns  string
	pod string
}

func newKube(namespace, pod string) (kube, error) {
	ns, err := quote(namespace)
	if err != nil {
		return kube{}, err
	}
	k := kube{ns: ns}
	if pod != "" {
		if k.pod, err = quote(pod); err != nil {
			return kube{}, err
		}
	}
	return k, nil
}

// listPods lists pods as JSON.
func (k kube) listPods() string {
	return fmt.Sprintf("kubectl -n %s get pods -o json", k.ns)
}

// readConfig prints the postgres config.
func (k kube) readConfig() string {
	return fmt.Sprintf("kubectl -n %s exec %s -- cat '%s'", k.ns, k.pod, ConfigPath)
}

// appendSetting appends LogSetting to the postgres config.
func (k kube) appendSetting() string {
	return heredoc.Docf(`
		cat <<- 'EOF' | kubectl -n %s exec -i %s -- sh -c 'cat - >> %s'
		%s
		EOF
	`, k.ns, k.pod, ConfigPath, LogSetting)
}

// reload asks postgres to re-read its config.
func (k kube) reload() string {
	return heredoc.Docf(`
		cat <<- 'EOF' | kubectl -n %s exec -i %s -- sh
		PGPASSWORD=postgres psql -U postgres -c "SELECT pg_reload_conf();"
		EOF
	`, k.ns, k.pod)
}

// KubeAttach finds the postgres pod in namespace, makes sure its config
// has LogSetting and reloads it.
func KubeAttach(io *scoped.IO, namespace string, opts Options) error {
	verbose := io.Verbose
	defer verbose.Section("Finding a k8s source of airflow db events...")()

	k, err := newKube(namespace, "")
	if err != nil {
		return err
	}
	pods, err := verbose.Run(runner.Cmd(k.listPods()).WithQuiet())
	if err != nil {
		return fmt.Errorf("listing pods in %s: %w", namespace, err)
	}
	listing := pods.Text()

	names := FindPods(listing)
	if len(names) == 0 {
		io.Info.Print(listing)
		io.Info.Print(PodFilter)
		return fmt.Errorf("%w in namespace %s", ErrNoPostgresPod, namespace)
	}

	pod := names[0]
	if opts.Asker != nil && len(names) > 1 {
		if pod, err = opts.Asker.Choose("Which postgres pod?", names, nil); err != nil {
			return err
		}
	}
	verbose.Print("found " + pod)

	if k, err = newKube(namespace, pod); err != nil {
		return err
	}

	config, err := verbose.Run(runner.Cmd(k.readConfig()).WithQuiet())
	if err != nil {
		return fmt.Errorf("reading config from %s: %w", pod, err)
	}

	if !strings.Contains(config.Text(), LogSetting) {
		if opts.Asker != nil {
			ok, err := opts.Asker.YesNo(fmt.Sprintf("Append %q to %s on %s?", LogSetting, ConfigPath, pod))
			if err != nil {
				return err
			}
			if !ok {
				return ErrDeclined
			}
		}
		if _, err := verbose.Run(runner.Cmd(k.appendSetting())); err != nil {
			return fmt.Errorf("enabling statement logging on %s: %w", pod, err)
		}
	} else {
		verbose.Print("logging already enabled")
		end := verbose.Section("config:")
		verbose.Print(config.Text())
		end()
	}

	if opts.Asker != nil && !confirmReload(opts.Asker, opts.PromptTimeout) {
		verbose.Print("skipping reload")
		return nil
	}

	if _, err := verbose.Run(runner.Cmd(k.reload())); err != nil {
		return fmt.Errorf("reloading config on %s: %w", pod, err)
	}
	return nil
}

// confirmReload reloads unless the user answers no in time.
func confirmReload(a Asker, seconds int) bool {
	answer := a.TimeoutPrompt("Reload postgres config now? [Y/n]", seconds, "y")
	return !strings.HasPrefix(strings.ToLower(answer), "n")
}
