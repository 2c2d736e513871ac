package linux

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/MrWong99/friday/pkg/provider/sysops"
)

// SystemInfo implements [sysops.Operations]. It reads /proc and
// /sys/class/power_supply; fields that cannot be read are left zero.
func (o *Operations) SystemInfo(ctx context.Context) (sysops.Info, bool) {
	if err := ctx.Err(); err != nil {
		return sysops.Info{}, false
	}
	info := sysops.Info{OS: "Linux", CPUCount: runtime.NumCPU()}
	info.Hostname, _ = os.Hostname()

	if data, err := os.ReadFile(filepath.Join(o.procRoot, "uptime")); err == nil {
		if f := strings.Fields(string(data)); len(f) > 0 {
			if secs, err := strconv.ParseFloat(f[0], 64); err == nil {
				info.Uptime = time.Duration(secs * float64(time.Second))
			}
		}
	}
	if data, err := os.ReadFile(filepath.Join(o.procRoot, "loadavg")); err == nil {
		if f := strings.Fields(string(data)); len(f) > 0 {
			info.Load1, _ = strconv.ParseFloat(f[0], 64)
		}
	}
	if data, err := os.ReadFile(filepath.Join(o.procRoot, "meminfo")); err == nil {
		info.MemoryUsedPercent = memoryUsed(data)
	}
	if data, err := os.ReadFile(filepath.Join(o.procRoot, "sys", "kernel", "osrelease")); err == nil {
		info.OS = "Linux " + strings.TrimSpace(string(data))
	}
	o.readBattery(&info)
	return info, true
}

// memoryUsed computes 100 - MemAvailable/MemTotal from meminfo contents.
func memoryUsed(meminfo []byte) int {
	var total, avail float64
	sc := bufio.NewScanner(bytes.NewReader(meminfo))
	for sc.Scan() {
		key, rest, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		f := strings.Fields(rest)
		if len(f) == 0 {
			continue
		}
		v, err := strconv.ParseFloat(f[0], 64)
		if err != nil {
			continue
		}
		switch key {
		case "MemTotal":
			total = v
		case "MemAvailable":
			avail = v
		}
	}
	if total <= 0 {
		return 0
	}
	return int(100 - avail/total*100 + 0.5)
}

func (o *Operations) readBattery(info *sysops.Info) {
	matches, _ := filepath.Glob(filepath.Join(o.sysRoot, "class", "power_supply", "BAT*"))
	for _, dir := range matches {
		data, err := os.ReadFile(filepath.Join(dir, "capacity"))
		if err != nil {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(string(data)))
		if err != nil {
			continue
		}
		info.HasBattery = true
		info.BatteryPercent = n
		if status, err := os.ReadFile(filepath.Join(dir, "status")); err == nil {
			info.Charging = strings.TrimSpace(string(status)) == "Charging"
		}
		return
	}
}
