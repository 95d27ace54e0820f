// Package systemd holds the service unit the daemon ships with.
package systemd

import "os"

// UnitFilePaths are the paths checked for an installed seqlinkd unit file.
var UnitFilePaths = []string{
	"/etc/systemd/system/seqlinkd.service",
	"/usr/lib/systemd/system/seqlinkd.service",
}

// Unit returns the seqlinkd.service unit file. Ordering after sound.target
// means the sequencer device usually exists by the time the daemon starts;
// the daemon's own device wait covers the rest. RuntimeDirectory provides
// /run/seqlinkd for the control socket and PID file.
func Unit() string {
	return `[Unit]
Description=MIDI port autoconnect daemon
After=sound.target

[Service]
Type=simple
ExecStart=/usr/bin/seqlinkd
Restart=on-failure
RestartSec=2
RuntimeDirectory=seqlinkd
SupplementaryGroups=audio
NoNewPrivileges=true
PrivateTmp=true
ProtectSystem=strict
ProtectHome=true
ProtectKernelTunables=true
RestrictNamespaces=true
MemoryDenyWriteExecute=true

[Install]
WantedBy=multi-user.target
`
}

// InstalledPath returns the first existing unit file path, or empty when
// the unit is not installed.
func InstalledPath() string {
	for _, p := range UnitFilePaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
