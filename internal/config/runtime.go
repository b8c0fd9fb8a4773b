package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/cardroomlabs/cardroom/internal/fileutil"
)

// DefaultTurnTimerSeconds is how long a player has to act before the
// server acts for them.
const DefaultTurnTimerSeconds = 30

// runtimeState is the on-disk form of the mutable settings.
type runtimeState struct {
	MaintenanceMode  bool `json:"maintenance_mode"`
	TurnTimerSeconds int  `json:"turn_timer_seconds"`
}

// Runtime holds the settings the admin plane can change while the server
// is running. Changes are persisted to a JSON file so they survive a
// restart.
type Runtime struct {
	path string

	mu    sync.RWMutex
	state runtimeState
}

// LoadRuntime reads the settings file, falling back to defaults if it
// does not exist yet.
func LoadRuntime(path string) (*Runtime, error) {
	r := &Runtime{
		path:  path,
		state: runtimeState{TurnTimerSeconds: DefaultTurnTimerSeconds},
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}
	if err := json.Unmarshal(data, &r.state); err != nil {
		return nil, fmt.Errorf("parsing settings file: %w", err)
	}
	if r.state.TurnTimerSeconds <= 0 {
		r.state.TurnTimerSeconds = DefaultTurnTimerSeconds
	}
	return r, nil
}

// MaintenanceMode reports whether new seatings are blocked.
func (r *Runtime) MaintenanceMode() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.MaintenanceMode
}

// TurnTimeout returns the per-turn action deadline.
func (r *Runtime) TurnTimeout() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return time.Duration(r.state.TurnTimerSeconds) * time.Second
}

// TurnTimerSeconds returns the raw configured value.
func (r *Runtime) TurnTimerSeconds() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.TurnTimerSeconds
}

// SetMaintenanceMode flips the maintenance flag and persists.
func (r *Runtime) SetMaintenanceMode(on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.MaintenanceMode = on
	return r.saveLocked()
}

// SetTurnTimerSeconds changes the action deadline and persists. Applies
// to turns started after the change.
func (r *Runtime) SetTurnTimerSeconds(secs int) error {
	if secs < 5 || secs > 300 {
		return fmt.Errorf("turn timer out of range: %d", secs)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.TurnTimerSeconds = secs
	return r.saveLocked()
}

func (r *Runtime) saveLocked() error {
	data, err := json.MarshalIndent(r.state, "", "  ")
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(r.path, data, 0o644)
}
