package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProfiles = `
host(
    name = "living-room",
    url = "http://10.0.0.5:5119",
    devices = [
        device(id = "device1", name = "STB", model = "android_tv"),
        device(id = "device2", name = "Tablet"),
    ],
    default = True,
)

host(
    name = "lab",
    url = "http://10.0.0.9:5119",
)
`

func TestParse(t *testing.T) {
	p, err := Parse("hosts.star", []byte(sampleProfiles))
	require.NoError(t, err)
	require.Len(t, p.Hosts, 2)

	h := p.Host("living-room")
	require.NotNil(t, h)
	assert.Equal(t, "http://10.0.0.5:5119", h.URL)
	require.Len(t, h.Devices, 2)
	assert.Equal(t, "android_tv", h.Devices[0].Model)
	assert.True(t, h.Default)

	assert.Nil(t, p.Host("unknown"))
}

func TestDefaultHost(t *testing.T) {
	p, err := Parse("hosts.star", []byte(sampleProfiles))
	require.NoError(t, err)

	def := p.DefaultHost()
	require.NotNil(t, def)
	assert.Equal(t, "living-room", def.Name)
}

func TestDefaultHostFallsBackToFirst(t *testing.T) {
	p, err := Parse("hosts.star", []byte(`host(name = "only", url = "http://h:1")`))
	require.NoError(t, err)

	def := p.DefaultHost()
	require.NotNil(t, def)
	assert.Equal(t, "only", def.Name)
}

func TestDeviceLookup(t *testing.T) {
	p, err := Parse("hosts.star", []byte(sampleProfiles))
	require.NoError(t, err)

	h := p.Host("living-room")
	require.NotNil(t, h)

	assert.Equal(t, "Tablet", h.Device("device2").Name)
	assert.Nil(t, h.Device("nope"))
	assert.Equal(t, "device1", h.Device("").ID, "empty id picks the first device")
}

func TestEnvBuiltin(t *testing.T) {
	t.Setenv("TREELINE_TEST_HOST_URL", "http://from-env:5119")

	src := `host(name = "h", url = env("TREELINE_TEST_HOST_URL"))`
	p, err := Parse("hosts.star", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, "http://from-env:5119", p.Hosts[0].URL)
}

func TestEnvBuiltinDefault(t *testing.T) {
	src := `host(name = "h", url = env("TREELINE_UNSET_VAR_XYZ", "http://fallback:5119"))`
	p, err := Parse("hosts.star", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, "http://fallback:5119", p.Hosts[0].URL)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"missing url", `host(name = "h")`, "url"},
		{"duplicate host", `
host(name = "h", url = "http://a:1")
host(name = "h", url = "http://b:1")
`, "duplicate"},
		{"bad device value", `host(name = "h", url = "http://a:1", devices = ["nope"])`, "device"},
		{"syntax error", `host(`, "execute"},
		{"missing device id", `host(name = "h", url = "http://a:1", devices = [device(id = "")])`, "id"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse("hosts.star", []byte(tc.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hosts.star")
	require.NoError(t, os.WriteFile(path, []byte(sampleProfiles), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, p.Hosts, 2)

	_, err = Load(filepath.Join(dir, "missing.star"))
	assert.Error(t, err)
}
