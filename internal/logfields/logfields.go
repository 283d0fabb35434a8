package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyTarget     = "target"
	KeyScanDir    = "scan_dir"
	KeyOutput     = "output"
	KeyRoot       = "root"
	KeyPort       = "port"
	KeyURL        = "url"
	KeyPath       = "path"
	KeyClientID   = "client_id"
	KeyState      = "state"
	KeyPending    = "pending"
	KeyDurationMS = "duration_ms"
	KeyComponent  = "component"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Target(p string) slog.Attr       { return slog.String(KeyTarget, p) }
func ScanDir(p string) slog.Attr      { return slog.String(KeyScanDir, p) }
func Output(p string) slog.Attr       { return slog.String(KeyOutput, p) }
func Root(p string) slog.Attr         { return slog.String(KeyRoot, p) }
func Port(p int) slog.Attr            { return slog.Int(KeyPort, p) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func ClientID(id uint64) slog.Attr    { return slog.Uint64(KeyClientID, id) }
func State(s string) slog.Attr        { return slog.String(KeyState, s) }
func Pending(n int) slog.Attr         { return slog.Int(KeyPending, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Component(c string) slog.Attr    { return slog.String(KeyComponent, c) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
