// Package endpoint models one side (source, destination, or local) of
// a replication run and knows how to turn a bare argv into the argv
// that actually needs to run: wrapped in ssh when the side is remote,
// wrapped in sudo when the command mutates state and the caller isn't
// root.
package endpoint

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/zfsmirror/zfsync/internal/command"
)

// LocalMarker is the host value (or absence thereof) that selects
// direct exec over ssh wrapping.
const LocalMarker = "-"

// SudoPolicy controls whether state-changing ZFS commands get a sudo
// prefix.
type SudoPolicy int

const (
	SudoAuto SudoPolicy = iota // wrap unless running as root
	SudoNever
	SudoAlways
)

// Role names the program paths callers can override with --xxx-program
// flags.
type Role string

const (
	RoleZFS     Role = "zfs"
	RoleZstd    Role = "zstd"
	RolePV      Role = "pv"
	RoleMbuffer Role = "mbuffer"
	RoleSSH     Role = "ssh"
	RoleSudo    Role = "sudo"
)

// Disabled is the sentinel program-path value meaning "this role is
// turned off", which triggers pipeline auto-downgrade rather than a
// runtime lookup miss.
const Disabled = "-"

// Endpoint is immutable for the duration of a run.
type Endpoint struct {
	Name string // "source", "destination", or "local"

	Host         string
	User         string
	Port         int
	IdentityFile string
	ConfigFile   string
	SSHExtraOpts []string
	Cipher       string

	Sudo SudoPolicy

	// Programs maps Role to the binary name/path to invoke for it.
	// A value of Disabled means "treat as absent" regardless of what
	// capability detection would otherwise find.
	Programs map[Role]string

	runner *command.Runner

	capOnce sync.Once
	caps    Capabilities
	capErr  error
}

// New constructs an Endpoint. runner may be shared across endpoints;
// it holds no endpoint-specific state.
func New(name string, runner *command.Runner) *Endpoint {
	return &Endpoint{
		Name:   name,
		Port:   22,
		Sudo:   SudoAuto,
		runner: runner,
		Programs: map[Role]string{
			RoleZFS:     "zfs",
			RoleZstd:    "zstd",
			RolePV:      "pv",
			RoleMbuffer: "mbuffer",
			RoleSSH:     "ssh",
			RoleSudo:    "sudo",
		},
	}
}

// IsLocal reports whether commands run directly, without an ssh leg.
func (e *Endpoint) IsLocal() bool {
	return e.Host == "" || e.Host == LocalMarker
}

// Program returns the binary to invoke for role, or "" if the role is
// disabled.
func (e *Endpoint) Program(role Role) string {
	p := e.Programs[role]
	if p == Disabled {
		return ""
	}
	if p == "" {
		return string(role)
	}
	return p
}

// Enabled reports whether role has not been explicitly disabled via
// "-" in Programs.
func (e *Endpoint) Enabled(role Role) bool {
	return e.Programs[role] != Disabled
}

// BuildArgv wraps a bare command argv (e.g. ["zfs", "send", ...]) for
// execution on this endpoint: ssh wrapping if remote, sudo wrapping if
// mutating and policy requires it.
//
// mutating must be true for create/rollback/destroy/send/receive/
// bookmark invocations.
func (e *Endpoint) BuildArgv(argv []string, mutating bool) []string {
	local := argv
	if mutating && e.needsSudo() {
		local = append([]string{e.Program(RoleSudo)}, local...)
	}
	if e.IsLocal() {
		return local
	}
	return e.wrapSSH(local)
}

func (e *Endpoint) needsSudo() bool {
	switch e.Sudo {
	case SudoNever:
		return false
	case SudoAlways:
		return true
	default:
		return !isRoot()
	}
}

// wrapSSH builds `ssh [opts] user@host <remote command>`, where the
// remote command line is produced by shell-quoting each token and
// joining with spaces, then passed as a single argument to ssh.
func (e *Endpoint) wrapSSH(remote []string) []string {
	return e.sshPrefix(ShellJoin(remote))
}

// ChainArgv builds `ssh [opts] user@host "cmd1 | cmd2 | cmd3"`: each
// stage's argv is individually shell-quoted, then joined with a
// literal pipe, so a multi-process pipeline that must run entirely on
// this remote endpoint (e.g. send | zstd | mbuffer, all on the source
// host) becomes the single ssh stage shown in pipeline
// diagram, rather than one ssh invocation per remote process.
func (e *Endpoint) ChainArgv(stages [][]string) []string {
	parts := make([]string, len(stages))
	for i, s := range stages {
		parts[i] = ShellJoin(s)
	}
	remoteCmd := strings.Join(parts, " | ")
	return e.sshPrefix(remoteCmd)
}

func (e *Endpoint) sshPrefix(remoteCmd string) []string {
	argv := []string{e.Program(RoleSSH)}
	argv = append(argv, "-o", "ControlMaster=auto", "-o", "ControlPersist=300")
	argv = append(argv, "-o", fmt.Sprintf("ControlPath=~/.ssh/zfsync-%%r@%%h:%%p"))
	if e.Port != 0 && e.Port != 22 {
		argv = append(argv, "-p", fmt.Sprintf("%d", e.Port))
	}
	if e.IdentityFile != "" {
		argv = append(argv, "-i", e.IdentityFile)
	}
	if e.Cipher != "" {
		argv = append(argv, "-c", e.Cipher)
	}
	if e.ConfigFile != "" {
		argv = append(argv, "-F", e.ConfigFile)
	}
	argv = append(argv, e.SSHExtraOpts...)

	userHost := e.Host
	if e.User != "" {
		userHost = e.User + "@" + e.Host
	}
	argv = append(argv, userHost, remoteCmd)
	return argv
}

// ShellJoin quotes each token for safe inclusion in a single shell
// command line, as required when crossing the ssh boundary.
func ShellJoin(argv []string) string {
	out := make([]string, len(argv))
	for i, a := range argv {
		out[i] = shellQuote(a)
	}
	return joinSpace(out)
}

func joinSpace(ss []string) string {
	s := ""
	for i, v := range ss {
		if i > 0 {
			s += " "
		}
		s += v
	}
	return s
}

func shellQuote(s string) string {
	safe := true
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' ||
			r == '-' || r == '_' || r == '.' || r == '/' || r == ':' || r == '@' || r == '=' || r == ',') {
			safe = false
			break
		}
	}
	if safe && s != "" {
		return s
	}
	// POSIX single-quote escaping: close quote, emit escaped quote, reopen.
	escaped := ""
	for _, r := range s {
		if r == '\'' {
			escaped += `'\''`
		} else {
			escaped += string(r)
		}
	}
	return "'" + escaped + "'"
}

func isRoot() bool {
	return os.Geteuid() == 0
}
