package kxci

import (
	"fmt"
	"strconv"
	"strings"
)

// errorResponsePrefix marks a rejected GP response. The check is
// case-sensitive; firmware emits the bare uppercase word.
const errorResponsePrefix = "ERROR"

// RetrievedArray is one output-array parameter fetched with a GP query.
type RetrievedArray struct {
	// Values are the parsed numbers in instrument order. The slice may
	// be shorter than the requested count when the instrument returned
	// fewer valid tokens.
	Values []float64
	// Dropped counts non-empty tokens that failed to parse and were
	// discarded. Parsing never fails mid-list; the counter and a warning
	// log surface the loss instead.
	Dropped int
}

// QueryArray fetches one output-array parameter by its 1-based position
// in the module's call signature, requesting count values.
//
// Each attempt rewrites the GP query, pauses, and reads. A response is
// accepted unless it is empty or carries the ERROR prefix; rejected and
// failed reads are retried with increasing pre-read backoff until the
// configured attempts are exhausted, at which point a RetrievalError is
// returned.
//
// Sibling arrays must be truncated to a common length before being
// correlated; see TruncateCommon.
func (s *Session) QueryArray(position, count int) (RetrievedArray, error) {
	if position < 1 {
		return RetrievedArray{}, fmt.Errorf("kxci: array position %d is not a 1-based index", position)
	}
	if count < 1 {
		return RetrievedArray{}, fmt.Errorf("kxci: requested count %d must be positive", count)
	}

	if err := s.beginCommand(); err != nil {
		return RetrievedArray{}, err
	}
	defer s.endCommand()

	s.metrics.incQueryCount()

	if err := s.tp.SetReadTimeout(s.cfg.queryReadTimeout); err != nil {
		s.metrics.incQueryErrCount()
		return RetrievedArray{}, &TransportError{Op: "timeout", Err: err}
	}

	query := fmt.Sprintf("GP %d %d", position, count)

	var lastErr error
	for attempt := 1; attempt <= s.cfg.queryAttempts; attempt++ {
		if attempt > 1 {
			s.metrics.incQueryRetryCount()
		}

		if err := s.tp.WriteLine(query); err != nil {
			lastErr = &TransportError{Op: "write", Err: err}
			continue
		}
		s.cfg.sleep(s.cfg.queryDelay(attempt))

		raw, err := s.tp.ReadLine()
		if err != nil {
			lastErr = &TransportError{Op: "read", Err: err}
			continue
		}

		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			lastErr = &ProtocolError{Reason: "empty GP response"}
			continue
		}
		if strings.HasPrefix(trimmed, errorResponsePrefix) {
			lastErr = &ProtocolError{Reason: "instrument rejected GP query", Raw: trimmed}
			continue
		}

		values, dropped := parseArrayResponse(trimmed)
		if dropped > 0 {
			s.metrics.addDroppedTokens(dropped)
			s.logger.Warn("dropped unparsable array tokens",
				"position", position, "dropped", dropped, "parsed", len(values))
		}
		if len(values) > count {
			values = values[:count]
		}

		return RetrievedArray{Values: values, Dropped: dropped}, nil
	}

	s.metrics.incQueryErrCount()

	return RetrievedArray{}, &RetrievalError{
		Position: position,
		Attempts: s.cfg.queryAttempts,
		Err:      lastErr,
	}
}

// parseArrayResponse parses a GP response into floats.
//
// The response is either a bare delimited list or a "PARAM VALUE = ..."
// prefixed form; the delimiter is a semicolon when present, otherwise a
// comma. A non-empty undelimited response is a single value. Empty
// tokens are skipped; non-empty tokens that fail to parse are dropped
// and counted, never raised.
func parseArrayResponse(raw string) (values []float64, dropped int) {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "=") && strings.Contains(strings.ToUpper(raw), "PARAM VALUE") {
		_, raw, _ = strings.Cut(raw, "=")
		raw = strings.TrimSpace(raw)
	}

	if raw == "" {
		return nil, 0
	}

	sep := ""
	switch {
	case strings.Contains(raw, ";"):
		sep = ";"
	case strings.Contains(raw, ","):
		sep = ","
	default:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, 1
		}
		return []float64{v}, 0
	}

	tokens := strings.Split(raw, sep)
	values = make([]float64, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			dropped++
			continue
		}
		values = append(values, v)
	}

	return values, dropped
}

// TruncateCommon trims the given arrays to their common minimum length,
// returning the truncated slices and that length. Voltage, current and
// time arrays must be length-matched before they are correlated; a lossy
// parse or a short instrument response can leave them ragged.
func TruncateCommon(arrays ...[]float64) ([][]float64, int) {
	if len(arrays) == 0 {
		return nil, 0
	}

	minLen := len(arrays[0])
	for _, a := range arrays[1:] {
		if len(a) < minLen {
			minLen = len(a)
		}
	}

	out := make([][]float64, len(arrays))
	for i, a := range arrays {
		out[i] = a[:minLen]
	}

	return out, minLen
}
