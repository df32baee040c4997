package pct

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/hutch/pkg/errdefs"
	"github.com/cuemby/hutch/pkg/executor"
)

func TestErrorTranslation(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		want   error
	}{
		{"not found", "CT 104 does not exist", errdefs.ErrNotFound},
		{"no such", "no such container", errdefs.ErrNotFound},
		{"permission", "permission denied - regenerate?", errdefs.ErrPermissionDenied},
		{"not permitted", "operation not permitted", errdefs.ErrPermissionDenied},
		{"exists", "CT 104 already exists on node", errdefs.ErrAlreadyExists},
		{"in use", "volume is already in use", errdefs.ErrAlreadyExists},
		{"invalid", "invalid format - storage ID", errdefs.ErrInvalidArgument},
		{"unknown option", "unknown option: --bogus", errdefs.ErrInvalidArgument},
		{"generic", "some unrecognized failure", errdefs.ErrOperationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := executor.NewFake()
			fake.Respond("pct", executor.FakeResult{ExitCode: 255, Stderr: tt.stderr})
			client := NewClient(fake, "", 0)

			err := client.Start(context.Background(), 104)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "error %v should map to %v", err, tt.want)
			assert.Contains(t, err.Error(), "104", "error must carry the vmid")
		})
	}
}

func TestCreateArguments(t *testing.T) {
	fake := executor.NewFake()
	client := NewClient(fake, "pct", 0)

	err := client.Create(context.Background(), 4217, "/templates/web.tar.zst", CreateOptions{
		Hostname:     "web1",
		MemoryMB:     256,
		Cores:        2,
		Net0:         "name=eth0,bridge=vmbr0,ip=dhcp",
		Unprivileged: true,
	})
	require.NoError(t, err)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t,
		"pct create 4217 /templates/web.tar.zst --hostname web1 --memory 256 --cores 2 --net0 name=eth0,bridge=vmbr0,ip=dhcp --unprivileged 1",
		calls[0])
}

func TestCreateRejectsBadHostname(t *testing.T) {
	fake := executor.NewFake()
	client := NewClient(fake, "", 0)

	err := client.Create(context.Background(), 100, "tpl", CreateOptions{
		Hostname: "web1; rm -rf /",
	})
	require.Error(t, err)
	assert.True(t, errdefs.IsInvalidArgument(err))
	assert.Empty(t, fake.Calls(), "nothing must reach the command line")
}

func TestCreateRejectsBadNetSpec(t *testing.T) {
	fake := executor.NewFake()
	client := NewClient(fake, "", 0)

	err := client.Create(context.Background(), 100, "tpl", CreateOptions{
		Net0: "name=eth0,bridge=$(reboot)",
	})
	require.Error(t, err)
	assert.True(t, errdefs.IsInvalidArgument(err))
	assert.Empty(t, fake.Calls())
}

func TestListVMIDs(t *testing.T) {
	fake := executor.NewFake()
	fake.Respond("pct list", executor.FakeResult{Stdout: `VMID       Status     Lock         Name
100        running                 web1
104        stopped                 db
bogus      line
`})
	client := NewClient(fake, "", 0)

	ids, err := client.ListVMIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint32{100, 104}, ids)
}

func TestPid1(t *testing.T) {
	fake := executor.NewFake()
	fake.Respond("pct exec", executor.FakeResult{Stdout: "1 (sh) S 0 1 1 0 -1\n"})
	client := NewClient(fake, "", 0)

	pid, err := client.Pid1(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, pid)
}

func TestPid1_Garbage(t *testing.T) {
	fake := executor.NewFake()
	fake.Respond("pct exec", executor.FakeResult{Stdout: "nonsense"})
	client := NewClient(fake, "", 0)

	_, err := client.Pid1(context.Background(), 100)
	require.Error(t, err)
}

func TestSetMountPoint(t *testing.T) {
	fake := executor.NewFake()
	client := NewClient(fake, "", 0)

	err := client.SetMountPoint(context.Background(), 100, 0, "/data", "/mnt/data")
	require.NoError(t, err)
	assert.Equal(t, []string{"pct set 100 -mp0 /data,mp=/mnt/data"}, fake.Calls())
}

func TestSetMountPointFailureIsMountConfigFailed(t *testing.T) {
	fake := executor.NewFake()
	fake.Respond("pct set", executor.FakeResult{ExitCode: 1, Stderr: "invalid mp spec"})
	client := NewClient(fake, "", 0)

	err := client.SetMountPoint(context.Background(), 100, 0, "/data", "/mnt")
	assert.True(t, errors.Is(err, errdefs.ErrMountConfigFailed))
}

func TestValidateHostname(t *testing.T) {
	valid := []string{"web1", "a", "my-host", "node1.cluster.local"}
	for _, h := range valid {
		assert.NoError(t, ValidateHostname(h), h)
	}

	invalid := []string{"", "-lead", "trail-", "has space", "semi;colon", "under_score", "$(cmd)"}
	for _, h := range invalid {
		assert.Error(t, ValidateHostname(h), h)
	}
}
