// Package kxci implements a client for the Keithley External Control
// Interface (KXCI), the textual remote-command language used to drive a
// parameter analyzer's compiled user-library test modules over a
// line-oriented GPIB or VISA transport.
//
// The client covers the full UL-mode command cycle:
//
//   - Session enters "User Library" mode with the UL handshake and leaves
//     it with DE; EX and GP commands are only accepted while the session
//     is active.
//   - Command and Parameter model a module call; CallString renders the
//     EX call grammar, including the instrument's strict numeric
//     formatting rules and empty placeholders for output arrays.
//   - Session.Execute sends an EX command, waits out the settle and
//     execution window, and parses the signed return code from the
//     response.
//   - Session.QueryArray issues GP queries per output-array parameter
//     with retry and backoff, parsing delimiter-ambiguous numeric lists.
//   - ReconstructProbeTimes rebuilds probe-center timestamps from the
//     declared pulse timing when the instrument does not return them.
//
// Per-module behavior (error-code tables, wait-time policy, probe window
// fractions, string quoting) is data, not code: it lives in Module values
// held by a Library, loadable from YAML.
//
// Sessions are strictly sequential. The instrument cannot process
// overlapping UL operations, so a session admits at most one in-flight
// Execute or QueryArray at a time and provides no internal locking
// beyond that guard; callers sharing one session across goroutines must
// serialize access themselves.
package kxci
