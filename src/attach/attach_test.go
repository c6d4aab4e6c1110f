package attach

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wow-look-at-my/airfilter/src/runner"
	"github.com/wow-look-at-my/airfilter/src/scoped"
)

const podsJSON = `{"items":[
	{"metadata":{"name":"airflow-webserver-0"}},
	{"metadata":{"name":"airflow-postgresql-0"}},
	{"metadata":{"name":"airflow-scheduler-0"}}
]}`

const twoPodsJSON = `{"items":[
	{"metadata":{"name":"airflow-postgresql-0"}},
	{"metadata":{"name":"analytics-postgres-1"}}
]}`

func newTestIO() (*scoped.IO, *runner.Shims, *bytes.Buffer) {
	shims := runner.NewShims()
	shims.Enable(true)
	var out bytes.Buffer
	io := scoped.NewIO(scoped.Options{Verbose: true, Out: &out, Shims: shims})
	return io, shims, &out
}

type fakeAsker struct {
	choice   string
	yes      bool
	answer   string
	asked    []string
	timeouts []int
}

func (f *fakeAsker) YesNo(question string) (bool, error) {
	f.asked = append(f.asked, question)
	return f.yes, nil
}

func (f *fakeAsker) Choose(question string, options, other []string) (string, error) {
	f.asked = append(f.asked, question)
	return f.choice, nil
}

func (f *fakeAsker) TimeoutPrompt(prompt string, seconds int, def string) string {
	f.asked = append(f.asked, prompt)
	f.timeouts = append(f.timeouts, seconds)
	if f.answer == "" {
		return def
	}
	return f.answer
}

func TestFindPods(t *testing.T) {
	tests := []struct {
		name    string
		listing string
		want    []string
	}{
		{name: "one match", listing: podsJSON, want: []string{"airflow-postgresql-0"}},
		{name: "several in order", listing: twoPodsJSON, want: []string{"airflow-postgresql-0", "analytics-postgres-1"}},
		{name: "no match", listing: `{"items":[{"metadata":{"name":"redis-0"}}]}`},
		{name: "no items", listing: `{"items":[]}`},
		{name: "not json", listing: "error: the server doesn't have a resource type"},
		{name: "empty", listing: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FindPods(tt.listing))
		})
	}
}

func TestKubeCommands(t *testing.T) {
	k, err := newKube("airflow", "airflow-postgresql-0")
	require.NoError(t, err)

	assert.Equal(t, "kubectl -n airflow get pods -o json", k.listPods())
	assert.Equal(t,
		"kubectl -n airflow exec airflow-postgresql-0 -- cat '/opt/bitnami/postgresql/conf/postgresql.conf'",
		k.readConfig())
	assert.Equal(t,
		"cat <<- 'EOF' | kubectl -n airflow exec -i airflow-postgresql-0 -- sh -c 'cat - >> /opt/bitnami/postgresql/conf/postgresql.conf'\n"+
			"log_statement = all\n"+
			"EOF\n",
		k.appendSetting())
	assert.Equal(t,
		"cat <<- 'EOF' | kubectl -n airflow exec -i airflow-postgresql-0 -- sh\n"+
			"PGPASSWORD=postgres psql -U postgres -c \"SELECT pg_reload_conf();\"\n"+
			"EOF\n",
		k.reload())
}

func TestKubeQuotesArguments(t *testing.T) {
	k, err := newKube("my ns", "pod;rm -rf")
	require.NoError(t, err)
	assert.Equal(t, "kubectl -n 'my ns' get pods -o json", k.listPods())
	assert.Contains(t, k.readConfig(), "exec 'pod;rm -rf' --")

	_, err = newKube("bad\x00ns", "")
	assert.Error(t, err)
}

func TestKubeAttachEnablesLogging(t *testing.T) {
	io, shims, out := newTestIO()
	shims.Expect(
		runner.Respond(`^kubectl -n airflow get pods -o json$`, podsJSON),
		runner.Respond(`^kubectl -n airflow exec airflow-postgresql-0 -- cat `, "listen_addresses = '*'\nport = 5432\n"),
		runner.Expect(`exec -i airflow-postgresql-0 -- sh -c 'cat - >> `, func(command string, _ []string, _ runner.Config) runner.Reply {
			assert.Contains(t, command, "\nlog_statement = all\nEOF")
			return runner.Reply{}
		}),
		runner.Respond(`exec -i airflow-postgresql-0 -- sh\n.*pg_reload_conf`, " pg_reload_conf \n----------------\n t\n"),
	)

	require.NoError(t, KubeAttach(io, "airflow", Options{}))
	assert.Equal(t, 0, shims.Pending())
	assert.Len(t, shims.Log(), 4)

	text := out.String()
	assert.Contains(t, text, "Finding a k8s source of airflow db events...\n")
	assert.Contains(t, text, "    found airflow-postgresql-0\n")
	assert.Contains(t, text, "pg_reload_conf")
	assert.NotContains(t, text, "logging already enabled")
	assert.Equal(t, 0, io.Ctx.Indent())
}

func TestKubeAttachAlreadyEnabled(t *testing.T) {
	io, shims, out := newTestIO()
	shims.Expect(
		runner.Respond(`get pods`, podsJSON),
		runner.Respond(`-- cat `, "port = 5432\nlog_statement = all\n"),
		runner.Respond(`pg_reload_conf`, ""),
	)

	require.NoError(t, KubeAttach(io, "airflow", Options{}))
	assert.Equal(t, 0, shims.Pending())

	text := out.String()
	assert.Contains(t, text, "    logging already enabled\n")
	assert.Contains(t, text, "    config:\n        port = 5432\n        log_statement = all\n")
}

func TestKubeAttachNoPostgresPod(t *testing.T) {
	shims := runner.NewShims()
	shims.Enable(true)
	var out bytes.Buffer
	io := scoped.NewIO(scoped.Options{Verbose: false, Out: &out, Shims: shims})

	listing := `{"items":[{"metadata":{"name":"redis-0"}}]}`
	shims.Expect(runner.Respond(`get pods`, listing))

	err := KubeAttach(io, "airflow", Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoPostgresPod))
	assert.Contains(t, err.Error(), "namespace airflow")

	// The listing and the filter are shown even when not verbose.
	assert.Contains(t, out.String(), "redis-0")
	assert.Contains(t, out.String(), PodFilter)
}

func TestKubeAttachListFails(t *testing.T) {
	io, shims, _ := newTestIO()
	shims.Expect(runner.Fail(`get pods`, `Error from server (NotFound): namespaces "nope" not found`, 1))

	err := KubeAttach(io, "nope", Options{})
	require.Error(t, err)

	var exitErr *runner.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 1, exitErr.ExitCode)
	assert.Contains(t, err.Error(), "listing pods in nope")
}

func TestKubeAttachReloadFails(t *testing.T) {
	io, shims, _ := newTestIO()
	shims.Expect(
		runner.Respond(`get pods`, podsJSON),
		runner.Respond(`-- cat `, LogSetting),
		runner.Fail(`pg_reload_conf`, "psql: error: connection refused", 2),
	)

	err := KubeAttach(io, "airflow", Options{})
	require.Error(t, err)
	code, ok := runner.IsExit(err)
	assert.True(t, ok)
	assert.Equal(t, 2, code)
}

func TestKubeAttachUnexpectedCommand(t *testing.T) {
	io, shims, _ := newTestIO()
	shims.Expect(runner.Respond(`-- cat `, ""))

	err := KubeAttach(io, "airflow", Options{})
	var mismatch *runner.Mismatch
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "kubectl -n airflow get pods -o json", mismatch.Got)
}

func TestKubeAttachInteractive(t *testing.T) {
	io, shims, _ := newTestIO()
	asker := &fakeAsker{choice: "analytics-postgres-1", yes: true}
	shims.Expect(
		runner.Respond(`get pods`, twoPodsJSON),
		runner.Respond(`exec analytics-postgres-1 -- cat `, ""),
		runner.Respond(`exec -i analytics-postgres-1 -- sh -c`, ""),
		runner.Respond(`exec -i analytics-postgres-1 -- sh\n`, ""),
	)

	require.NoError(t, KubeAttach(io, "airflow", Options{Asker: asker, PromptTimeout: 7}))
	assert.Equal(t, 0, shims.Pending())
	require.Len(t, asker.asked, 3)
	assert.Equal(t, "Which postgres pod?", asker.asked[0])
	assert.Contains(t, asker.asked[1], "analytics-postgres-1")
	assert.Equal(t, []int{7}, asker.timeouts)
}

func TestKubeAttachSinglePodSkipsChoice(t *testing.T) {
	io, shims, _ := newTestIO()
	asker := &fakeAsker{yes: true}
	shims.Expect(
		runner.Respond(`get pods`, podsJSON),
		runner.Respond(`-- cat `, LogSetting),
		runner.Respond(`pg_reload_conf`, ""),
	)

	require.NoError(t, KubeAttach(io, "airflow", Options{Asker: asker}))
	// Only the reload prompt: one pod, config already set.
	assert.Len(t, asker.asked, 1)
}

func TestKubeAttachDeclined(t *testing.T) {
	io, shims, _ := newTestIO()
	asker := &fakeAsker{yes: false}
	shims.Expect(
		runner.Respond(`get pods`, podsJSON),
		runner.Respond(`-- cat `, ""),
	)

	err := KubeAttach(io, "airflow", Options{Asker: asker})
	assert.True(t, errors.Is(err, ErrDeclined))
	assert.Equal(t, 0, shims.Pending())
	assert.Len(t, shims.Log(), 2)
}

func TestKubeAttachSkipReload(t *testing.T) {
	io, shims, out := newTestIO()
	asker := &fakeAsker{answer: "No"}
	shims.Expect(
		runner.Respond(`get pods`, podsJSON),
		runner.Respond(`-- cat `, LogSetting),
	)

	require.NoError(t, KubeAttach(io, "airflow", Options{Asker: asker}))
	assert.Equal(t, 0, shims.Pending())
	assert.Contains(t, out.String(), "skipping reload")
}

func TestConfirmReload(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{answer: "", want: true},
		{answer: "y", want: true},
		{answer: "yes", want: true},
		{answer: "n", want: false},
		{answer: "No", want: false},
		{answer: "timed_out", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			assert.Equal(t, tt.want, confirmReload(&fakeAsker{answer: tt.answer}, 1))
		})
	}
}
