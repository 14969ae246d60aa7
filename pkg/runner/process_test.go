// sodascan
// (C) 2024, Deutsche Telekom IT GmbH
//
// Deutsche Telekom IT GmbH and all other contributors /
// copyright owners license this file to you under the Apache
// License, Version 2.0 (the "License"); you may not use this
// file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

//go:build !windows

package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caas-team/sodascan/internal/logger"
	"github.com/caas-team/sodascan/pkg/storage"
	"github.com/caas-team/sodascan/test"
)

func newCommands(t *testing.T, lines ...string) *Commands {
	t.Helper()
	return &Commands{
		WorkingDir:    t.TempDir(),
		Interpreter:   []string{"/bin/sh", "-c"},
		Commands:      lines,
		StoragePrefix: "executions/test",
	}
}

func TestProcess_Run(t *testing.T) {
	test.MarkAsLong(t)
	ctx := context.Background()
	store := storage.NewLocal(afero.NewMemMapFs(), "/storage")
	p := NewProcess(store)

	cmds := newCommands(t,
		"set -o errexit",
		`echo "hello $GREETING"`,
		`echo "oops" >&2`,
		`echo '{"hasErrors": false}' > result.json`,
		`echo '::{"outputs": {"exitCode": 0}}::'`,
	)
	cmds.Env = map[string]string{"GREETING": "world"}
	cmds.OutputFiles = []string{"result.json"}

	out, err := p.Run(ctx, cmds)
	require.NoError(t, err)
	assert.Equal(t, 0, out.ExitCode)
	assert.Equal(t, 1, out.StdOutLineCount)
	assert.Equal(t, 1, out.StdErrLineCount)
	assert.Equal(t, float64(0), out.Vars[ExitCodeVar])
	require.Contains(t, out.OutputFiles, "result.json")

	rc, err := store.Get(ctx, out.OutputFiles["result.json"])
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hasErrors": false}`, string(b))
}

func TestProcess_Run_exitCode(t *testing.T) {
	test.MarkAsLong(t)
	p := NewProcess(storage.NewLocal(afero.NewMemMapFs(), "/storage"))

	out, err := p.Run(context.Background(), newCommands(t, "echo failing", "exit 3"))
	var exitErr *ExitCodeError
	require.ErrorAs(t, err, &exitErr)
	assert.ErrorIs(t, err, ErrExitCode)
	assert.Equal(t, 3, exitErr.ExitCode)
	require.NotNil(t, out)
	assert.Equal(t, 3, out.ExitCode)
	assert.Equal(t, 1, out.StdOutLineCount)
}

func TestProcess_Run_longLine(t *testing.T) {
	test.MarkAsLong(t)
	p := NewProcess(storage.NewLocal(afero.NewMemMapFs(), "/storage"))
	quiet := logger.IntoContext(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithTimeout(quiet, 30*time.Second)
	defer cancel()

	out, err := p.Run(ctx, newCommands(t,
		`head -c 2000000 /dev/zero | tr '\0' a; echo`,
		`head -c 2000000 /dev/zero | tr '\0' b >&2; echo >&2`,
		`echo '::{"outputs": {"exitCode": 0}}::'`,
	))
	require.NoError(t, err)
	assert.Equal(t, 1, out.StdOutLineCount)
	assert.Equal(t, 1, out.StdErrLineCount)
	assert.Equal(t, float64(0), out.Vars[ExitCodeVar])
}

func TestProcess_Run_cancel(t *testing.T) {
	test.MarkAsLong(t)
	p := NewProcess(storage.NewLocal(afero.NewMemMapFs(), "/storage"))
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := p.Run(ctx, newCommands(t, "sleep 30 & wait"))
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "Run() error = %v", err)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestProcess_Run_workingDir(t *testing.T) {
	test.MarkAsLong(t)
	p := NewProcess(storage.NewLocal(afero.NewMemMapFs(), "/storage"))
	cmds := newCommands(t, "touch created.txt")

	_, err := p.Run(context.Background(), cmds)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(cmds.WorkingDir, "created.txt"))
	assert.NoError(t, err)
}

func TestProcess_Run_noCommands(t *testing.T) {
	test.MarkAsShort(t)
	p := NewProcess(storage.NewLocal(afero.NewMemMapFs(), "/storage"))

	_, err := p.Run(context.Background(), &Commands{Interpreter: []string{"/bin/sh", "-c"}})
	assert.ErrorIs(t, err, ErrNoCommands)
}
