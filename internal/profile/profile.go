// Package profile loads device host profiles from a hosts.star file. The
// file is a small Starlark program that declares hosts and their devices,
// which keeps host inventory declarative but still allows environment
// lookups and light logic.
//
//	host(
//	    name = "living-room",
//	    url = env("TREELINE_HOST_URL", "http://10.0.0.5:5119"),
//	    devices = [
//	        device(id = "device1", name = "STB", model = "android_tv"),
//	    ],
//	    default = True,
//	)
package profile

import (
	"fmt"
	"os"
	"sync"

	"go.starlark.net/starlark"
)

// Device is one controllable device attached to a host.
type Device struct {
	ID    string
	Name  string
	Model string
}

// Host is one device host backend.
type Host struct {
	Name    string
	URL     string
	Devices []Device
	Default bool
}

// Profiles is the loaded host inventory.
type Profiles struct {
	Hosts []Host
}

// Host returns the named host, or nil when unknown.
func (p *Profiles) Host(name string) *Host {
	for i := range p.Hosts {
		if p.Hosts[i].Name == name {
			return &p.Hosts[i]
		}
	}
	return nil
}

// DefaultHost returns the host marked default, falling back to the first
// declared host. Nil when the inventory is empty.
func (p *Profiles) DefaultHost() *Host {
	for i := range p.Hosts {
		if p.Hosts[i].Default {
			return &p.Hosts[i]
		}
	}
	if len(p.Hosts) > 0 {
		return &p.Hosts[0]
	}
	return nil
}

// Device returns the host's device by ID, falling back to the first device.
func (h *Host) Device(id string) *Device {
	for i := range h.Devices {
		if h.Devices[i].ID == id {
			return &h.Devices[i]
		}
	}
	if id == "" && len(h.Devices) > 0 {
		return &h.Devices[0]
	}
	return nil
}

// Load reads and executes a hosts.star file.
func Load(path string) (*Profiles, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}
	return Parse(path, src)
}

// collector accumulates host() declarations during execution. One collector
// per Parse call; the builtins close over it.
type collector struct {
	mu    sync.Mutex
	hosts []Host
}

// Parse executes hosts.star source and collects the declared hosts.
func Parse(filename string, src []byte) (*Profiles, error) {
	c := &collector{}

	thread := &starlark.Thread{
		Name:  "profiles",
		Print: func(_ *starlark.Thread, _ string) {},
	}
	predeclared := starlark.StringDict{
		"host":   starlark.NewBuiltin("host", c.hostBuiltin),
		"device": starlark.NewBuiltin("device", deviceBuiltin),
		"env":    starlark.NewBuiltin("env", envBuiltin),
	}

	if _, err := starlark.ExecFile(thread, filename, src, predeclared); err != nil {
		return nil, fmt.Errorf("failed to execute profile file: %w", err)
	}

	seen := make(map[string]bool, len(c.hosts))
	for _, h := range c.hosts {
		if h.Name == "" {
			return nil, fmt.Errorf("%s: host declared without a name", filename)
		}
		if h.URL == "" {
			return nil, fmt.Errorf("%s: host %q declared without a url", filename, h.Name)
		}
		if seen[h.Name] {
			return nil, fmt.Errorf("%s: duplicate host %q", filename, h.Name)
		}
		seen[h.Name] = true
	}
	return &Profiles{Hosts: c.hosts}, nil
}

// hostBuiltin implements host(name, url, devices=[], default=False).
func (c *collector) hostBuiltin(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name, url string
	var devices *starlark.List
	var isDefault bool

	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"name", &name, "url", &url,
		"devices?", &devices, "default?", &isDefault); err != nil {
		return nil, err
	}

	h := Host{Name: name, URL: url, Default: isDefault}
	if devices != nil {
		it := devices.Iterate()
		defer it.Done()
		var v starlark.Value
		for it.Next(&v) {
			d, ok := v.(deviceValue)
			if !ok {
				return nil, fmt.Errorf("host %q: devices must be device(...) values, got %s", name, v.Type())
			}
			h.Devices = append(h.Devices, Device(d))
		}
	}

	c.mu.Lock()
	c.hosts = append(c.hosts, h)
	c.mu.Unlock()
	return starlark.None, nil
}

// deviceValue is the opaque Starlark value returned by device(...).
type deviceValue Device

func (d deviceValue) String() string        { return fmt.Sprintf("device(%q)", d.ID) }
func (d deviceValue) Type() string          { return "device" }
func (d deviceValue) Freeze()               {}
func (d deviceValue) Truth() starlark.Bool  { return starlark.True }
func (d deviceValue) Hash() (uint32, error) { return starlark.String(d.ID).Hash() }

// deviceBuiltin implements device(id, name="", model="").
func deviceBuiltin(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var d deviceValue
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"id", &d.ID, "name?", &d.Name, "model?", &d.Model); err != nil {
		return nil, err
	}
	if d.ID == "" {
		return nil, fmt.Errorf("device declared without an id")
	}
	return d, nil
}

// envBuiltin implements env(name, default=""), reading the process
// environment at execution time.
func envBuiltin(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name, fallback string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"name", &name, "default?", &fallback); err != nil {
		return nil, err
	}
	if v, ok := os.LookupEnv(name); ok {
		return starlark.String(v), nil
	}
	return starlark.String(fallback), nil
}
