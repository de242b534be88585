// Package logx configures usertimer's structured logging.
//
// It is a small wrapper (logx.Logger) on top of zerolog that keeps:
//   - Console output readable on stderr (short timestamp + short caller)
//   - File output JSON-structured, one object per line
package logx
