package hardware

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// commandTimeout bounds the platform utility fallbacks so collection never
// hangs on a wedged tool.
const commandTimeout = 2 * time.Second

// listSource is one provider in a per-class fallback chain. Sources are
// tried in order until one yields at least one descriptor.
type listSource struct {
	name    string
	collect func() []string
}

func runListSources(class string, sources []listSource) []string {
	for _, src := range sources {
		if values := src.collect(); len(values) > 0 {
			slog.Debug("hardware descriptors collected",
				slog.String("class", class),
				slog.String("source", src.name),
				slog.Int("count", len(values)),
			)
			return values
		}
	}

	// Lowest common denominator: a fingerprint must always be producible,
	// even a weak one.
	fallback := hostnameFallback(class)
	slog.Warn("no hardware source available, using hostname fallback",
		slog.String("class", class),
		slog.String("descriptor", fallback),
	)
	return []string{fallback}
}

func hostnameFallback(class string) string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "unknown-host"
	}
	return class + "-fallback:" + strings.ToLower(strings.TrimSpace(hostname)) + ":" + runtime.GOOS + ":" + runtime.GOARCH
}

// runCommand executes a platform utility and returns its output lines, or
// nil if the tool is missing or fails.
func runCommand(name string, args ...string) []string {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return nil
	}

	var lines []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// collectMACAddresses gathers the MAC addresses of physical interfaces.
func collectMACAddresses() []string {
	return runListSources(KindMAC, []listSource{
		{name: "net.Interfaces", collect: macFromInterfaces},
		{name: "platform command", collect: macFromCommand},
	})
}

func macFromInterfaces() []string {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil
	}

	var macs []string
	for _, iface := range interfaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		mac := iface.HardwareAddr.String()
		if mac != "" && mac != "00:00:00:00:00:00" {
			macs = append(macs, strings.ToLower(mac))
		}
	}
	return macs
}

func macFromCommand() []string {
	switch runtime.GOOS {
	case "linux":
		// One address file per interface under sysfs
		if macs := macFromSysfs(); len(macs) > 0 {
			return macs
		}
		return parseMACs(runCommand("ip", "-o", "link"))
	case "darwin":
		return parseMACs(runCommand("ifconfig"))
	case "windows":
		return parseMACs(runCommand("getmac", "/fo", "csv", "/nh"))
	}
	return nil
}

func macFromSysfs() []string {
	entries, err := os.ReadDir("/sys/class/net")
	if err != nil {
		return nil
	}

	var macs []string
	for _, entry := range entries {
		if entry.Name() == "lo" {
			continue
		}
		data, err := os.ReadFile(filepath.Join("/sys/class/net", entry.Name(), "address"))
		if err != nil {
			continue
		}
		mac := strings.ToLower(strings.TrimSpace(string(data)))
		if mac != "" && mac != "00:00:00:00:00:00" {
			macs = append(macs, mac)
		}
	}
	return macs
}

// parseMACs extracts MAC-address-shaped tokens from command output.
func parseMACs(lines []string) []string {
	var macs []string
	for _, line := range lines {
		for _, token := range strings.FieldsFunc(line, func(r rune) bool {
			return r == ' ' || r == '\t' || r == ',' || r == '"'
		}) {
			normalized := strings.ToLower(strings.ReplaceAll(token, "-", ":"))
			if hw, err := net.ParseMAC(normalized); err == nil {
				mac := hw.String()
				if mac != "00:00:00:00:00:00" {
					macs = append(macs, mac)
				}
			}
		}
	}
	return macs
}

// collectDiskInfo gathers stable disk identifiers (device names plus serial
// or model strings where the OS exposes them).
func collectDiskInfo() []string {
	return runListSources(KindDisk, []listSource{
		{name: "native", collect: diskFromNative},
		{name: "platform command", collect: diskFromCommand},
	})
}

func diskFromNative() []string {
	if runtime.GOOS != "linux" {
		return nil
	}

	entries, err := os.ReadDir("/sys/block")
	if err != nil {
		return nil
	}

	var disks []string
	for _, entry := range entries {
		name := entry.Name()
		// Skip virtual devices with no hardware identity
		if strings.HasPrefix(name, "loop") || strings.HasPrefix(name, "ram") || strings.HasPrefix(name, "zram") {
			continue
		}

		descriptor := name
		for _, attr := range []string{"device/serial", "device/model", "device/wwid"} {
			data, err := os.ReadFile(filepath.Join("/sys/block", name, attr))
			if err != nil {
				continue
			}
			if value := strings.TrimSpace(string(data)); value != "" {
				descriptor = name + ":" + value
				break
			}
		}
		disks = append(disks, descriptor)
	}
	return disks
}

func diskFromCommand() []string {
	switch runtime.GOOS {
	case "linux":
		return runCommand("lsblk", "-dno", "NAME,SERIAL,MODEL")
	case "darwin":
		return runCommand("diskutil", "list")
	case "windows":
		return runCommand("wmic", "diskdrive", "get", "SerialNumber")
	}
	return nil
}

// collectCPUInfo gathers processor descriptors. The architecture fields are
// always present so the map is never empty.
func collectCPUInfo() map[string]string {
	info := map[string]string{
		"architecture": runtime.GOARCH,
		"machine":      runtime.GOOS + "-" + runtime.GOARCH,
	}

	switch runtime.GOOS {
	case "linux":
		for k, v := range cpuFromProcfs() {
			info[k] = v
		}
	case "darwin":
		if lines := runCommand("sysctl", "-n", "machdep.cpu.brand_string"); len(lines) > 0 {
			info["processor"] = lines[0]
		}
	case "windows":
		if procID := os.Getenv("PROCESSOR_IDENTIFIER"); procID != "" {
			info["processor"] = procID
		}
	}
	return info
}

func cpuFromProcfs() map[string]string {
	data, err := os.ReadFile("/proc/cpuinfo")
	if err != nil {
		return nil
	}

	wanted := map[string]string{
		"model name": "processor",
		"vendor_id":  "vendor",
		"cpu family": "family",
	}

	info := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		if field, ok := wanted[strings.TrimSpace(key)]; ok {
			if _, seen := info[field]; !seen {
				info[field] = strings.TrimSpace(value)
			}
		}
	}
	return info
}

// collectSystemInfo gathers OS identity descriptors: hostname, platform,
// kernel release, and the machine-id where the OS maintains one.
func collectSystemInfo() map[string]string {
	info := map[string]string{
		"system":  runtime.GOOS,
		"machine": runtime.GOARCH,
	}

	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		info["node"] = strings.ToLower(strings.TrimSpace(hostname))
	}

	switch runtime.GOOS {
	case "linux":
		for _, path := range []string{"/etc/machine-id", "/var/lib/dbus/machine-id"} {
			if data, err := os.ReadFile(path); err == nil {
				if id := strings.TrimSpace(string(data)); id != "" {
					info["machine_id"] = id
					break
				}
			}
		}
		if lines := runCommand("uname", "-r"); len(lines) > 0 {
			info["release"] = lines[0]
		}
	case "darwin":
		if lines := runCommand("uname", "-r"); len(lines) > 0 {
			info["release"] = lines[0]
		}
	case "windows":
		if domain := os.Getenv("USERDOMAIN"); domain != "" {
			info["domain"] = domain
		}
	}
	return info
}
