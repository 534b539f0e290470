package idle

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/irc-away-ntfy/pkg/logx"
)

// Override values understood in the force-idle file. Anything else means
// no override.
const (
	OverrideNone   = 0
	OverrideIdle   = 1
	OverrideActive = 2
)

// ErrSignalUnavailable is returned by ReadSignal when the file is missing,
// unreadable or does not hold a number.
var ErrSignalUnavailable = errors.New("signal unavailable")

// Signal is a numeric value read from a signal file together with the
// file's modification time.
type Signal struct {
	Value   float64
	ModTime time.Time
}

// ReadSignal reads a single floating point value from path.
func ReadSignal(path string) (Signal, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Signal{}, fmt.Errorf("%w: %v", ErrSignalUnavailable, err)
	}

	// #nosec G304 - signal paths come from the operator's config
	data, err := os.ReadFile(path)
	if err != nil {
		return Signal{}, fmt.Errorf("%w: %v", ErrSignalUnavailable, err)
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Signal{}, fmt.Errorf("%w: %s: not a number: %q", ErrSignalUnavailable, path, strings.TrimSpace(string(data)))
	}

	return Signal{Value: v, ModTime: info.ModTime()}, nil
}

// Oracle derives the user's idle State from the measured idle-seconds file
// and the force-idle override file.
type Oracle struct {
	idlePath  string
	forcePath string
	log       logx.Logger
	now       func() time.Time
}

// NewOracle creates an oracle reading the given signal files.
func NewOracle(idlePath, forcePath string, log logx.Logger) *Oracle {
	return &Oracle{
		idlePath:  idlePath,
		forcePath: forcePath,
		log:       log,
		now:       time.Now,
	}
}

// SetClock replaces the time source. This is primarily useful for testing.
func (o *Oracle) SetClock(now func() time.Time) {
	o.now = now
}

// Compute returns the current idle state.
//
// The override always wins. Without a usable measurement the user is
// treated as idle so a dead reporting agent never silences notifications.
// Otherwise the larger of the measured value and the file's staleness is
// returned, since an agent that stopped writing cannot report activity.
func (o *Oracle) Compute() State {
	if force, err := ReadSignal(o.forcePath); err == nil {
		switch force.Value {
		case OverrideIdle:
			o.log.Debug("idle forced by override", logx.String("path", o.forcePath))
			return MaxIdle
		case OverrideActive:
			o.log.Debug("activity forced by override", logx.String("path", o.forcePath))
			return NeverIdle
		}
	}

	measured, err := ReadSignal(o.idlePath)
	if err != nil {
		o.log.Debug("no idle measurement, assuming idle", logx.Err(err))
		return MaxIdle
	}

	staleness := o.now().Sub(measured.ModTime).Seconds()
	return State(math.Max(measured.Value, staleness))
}
