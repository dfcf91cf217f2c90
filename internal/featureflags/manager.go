// Package featureflags evaluates runtime feature toggles such as realtime
// delivery and the strict password policy.
package featureflags

import (
	"hash/fnv"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
)

// Known flags.
const (
	Realtime        = "realtime"
	StrictPasswords = "strict_passwords"
)

// rollout is one parsed flag. percent is 0 to 100; 100 is fully on.
type rollout struct {
	value   string
	percent int
}

func parseRollout(value string) rollout {
	r := rollout{value: value}
	switch value {
	case "on", "true", "1":
		r.percent = 100
	case "off", "false", "0":
	default:
		if n, ok := strings.CutSuffix(value, "%"); ok {
			if pct, err := strconv.Atoi(n); err == nil {
				r.percent = min(max(pct, 0), 100)
			}
		}
	}
	return r
}

// covers reports whether the rollout includes userID. Partial rollouts are
// keyed on the flag name so different flags pick different users.
func (r rollout) covers(name string, userID uint) bool {
	switch {
	case r.percent >= 100:
		return true
	case r.percent <= 0 || userID == 0:
		return false
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(name + ":" + strconv.FormatUint(uint64(userID), 10)))
	return int(h.Sum32()%100) < r.percent
}

// Manager holds flags parsed from "name=value" pairs, for example
// "realtime=on,strict_passwords=off,new_feed=25%". Values are on/true/1,
// off/false/0 or a percentage rollout. Unknown values count as off. Reload
// swaps the whole set atomically.
type Manager struct {
	flags atomic.Pointer[map[string]rollout]
}

func NewManager(raw string) *Manager {
	m := &Manager{}
	m.Reload(raw)
	return m
}

// Reload replaces every flag with the ones parsed from raw. Malformed pairs
// are skipped.
func (m *Manager) Reload(raw string) {
	set := make(map[string]rollout)
	for _, pair := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(pair, "=")
		name, value = normalize(name), normalize(value)
		if !ok || name == "" || value == "" {
			continue
		}
		set[name] = parseRollout(value)
	}
	m.flags.Store(&set)
}

func (m *Manager) load() map[string]rollout {
	if m == nil {
		return nil
	}
	if p := m.flags.Load(); p != nil {
		return *p
	}
	return nil
}

// Enabled reports whether name is on for userID. A nil Manager has every
// flag off.
func (m *Manager) Enabled(name string, userID uint) bool {
	name = normalize(name)
	r, ok := m.load()[name]
	return ok && r.covers(name, userID)
}

// Snapshot evaluates every configured flag for userID.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	set := m.load()
	out := make(map[string]bool, len(set))
	for name, r := range set {
		out[name] = r.covers(name, userID)
	}
	return out
}

// String renders the flags in the form Reload accepts, sorted by name.
func (m *Manager) String() string {
	set := m.load()
	var b strings.Builder
	for i, name := range slices.Sorted(maps.Keys(set)) {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(name + "=" + set[name].value)
	}
	return b.String()
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
