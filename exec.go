package kxci

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// returnValueRe extracts the signed return code from an execution
// response. Surrounding text varies by firmware version.
var returnValueRe = regexp.MustCompile(`(?i)RETURN\s+VALUE\s*=\s*(-?\d+)`)

// ExecutionResult carries the outcome of one EX command.
type ExecutionResult struct {
	// ReturnCode is the module's signed return code. Nil means the
	// response could not be interpreted as a code at all, which is
	// distinct from a negative, module-defined error code.
	ReturnCode *int
	// Raw is the response text as received.
	Raw string
}

// Execute writes an EX command line, waits out the settle and execution
// window, and parses the signed return code from the response.
//
// The window is a blocking sleep: the instrument buffers its response
// until the operation completes, so there is nothing to poll. When the
// first read comes back empty the client waits briefly and reads once
// more before giving up.
//
// A nil ReturnCode with a non-nil error means the command's outcome is
// indeterminate; hardware state may be inconsistent and the command is
// never retried automatically. Negative return codes are returned as
// data here; ExecuteModule maps them through the module's error table.
func (s *Session) Execute(callString string, window time.Duration) (ExecutionResult, error) {
	if err := s.beginCommand(); err != nil {
		return ExecutionResult{}, err
	}
	defer s.endCommand()

	s.metrics.incExecCount()
	s.logger.Debug("executing", "cmd", callString, "window", window)

	if err := s.tp.SetReadTimeout(s.cfg.execReadTimeout); err != nil {
		s.metrics.incExecErrCount()
		return ExecutionResult{}, &TransportError{Op: "timeout", Err: err}
	}
	if err := s.tp.WriteLine(callString); err != nil {
		s.metrics.incExecErrCount()
		return ExecutionResult{}, &TransportError{Op: "write", Err: err}
	}

	s.cfg.sleep(s.cfg.settleDelay)
	if window > 0 {
		s.cfg.sleep(window)
	}

	raw, err := s.tp.ReadLine()
	if err != nil {
		s.metrics.incExecErrCount()
		return ExecutionResult{}, &TransportError{Op: "read", Err: err}
	}
	if strings.TrimSpace(raw) == "" {
		s.cfg.sleep(s.cfg.rereadDelay)
		raw, err = s.tp.ReadLine()
		if err != nil {
			s.metrics.incExecErrCount()
			return ExecutionResult{}, &TransportError{Op: "read", Err: err}
		}
	}

	result := ExecutionResult{Raw: raw}
	code, ok := parseReturnCode(raw)
	if !ok {
		s.metrics.incExecErrCount()
		return result, &ProtocolError{Reason: "no return code in execution response", Raw: raw}
	}
	result.ReturnCode = &code

	s.logger.Debug("execution complete", "code", code)

	return result, nil
}

// parseReturnCode extracts the return code from a response: first the
// "RETURN VALUE = n" form with arbitrary surrounding text, then the
// whole trimmed response as a bare integer.
func parseReturnCode(raw string) (int, bool) {
	if m := returnValueRe.FindStringSubmatch(raw); m != nil {
		code, err := strconv.Atoi(m[1])
		if err == nil {
			return code, true
		}
	}

	code, err := strconv.Atoi(strings.TrimSpace(raw))
	if err == nil {
		return code, true
	}

	return 0, false
}

// ModuleResult carries the outcome of a full module run: the execution
// result plus the retrieved output arrays keyed by their 1-based
// positions.
type ModuleResult struct {
	ExecutionResult
	// Arrays holds the successfully retrieved output arrays.
	Arrays map[int]RetrievedArray
	// ArrayErrs holds per-position retrieval failures. A failed position
	// does not abort its siblings; callers may proceed with partial data
	// and must record the shortfall.
	ArrayErrs map[int]error
}

// ExecuteModule runs one compiled test module end to end: it validates
// the parameters against the module's declared signature, encodes the
// call string, executes it with the module's wait policy, maps negative
// return codes through the module's error table, and fetches every
// output array.
//
// counts gives the number of values to request per output-array
// position; positions absent from counts are not fetched. The largest
// count also sizes the execution window for point-scaled wait policies.
func (s *Session) ExecuteModule(mod *Module, params []Parameter, counts map[int]int) (*ModuleResult, error) {
	if mod == nil {
		return nil, ErrModuleNil
	}
	if err := mod.ValidateParams(params); err != nil {
		return nil, err
	}

	cmd := mod.Command(params...)
	for pos := range counts {
		if pos < 1 || pos > len(params) || params[pos-1].Type() != OutputParam {
			return nil, fmt.Errorf("kxci: position %d of module %s is not an output array", pos, mod.Name)
		}
	}

	points := 0
	for _, n := range counts {
		if n > points {
			points = n
		}
	}

	res, err := s.Execute(cmd.CallString(mod.QuoteStrings), mod.Wait.Window(points))
	if err != nil {
		return &ModuleResult{ExecutionResult: res}, err
	}
	if code := *res.ReturnCode; code < 0 {
		s.metrics.incExecModuleErrCount()
		return &ModuleResult{ExecutionResult: res}, &ExecutionError{
			Module:  mod.Name,
			Code:    code,
			Message: mod.ErrorMessage(code),
		}
	}

	out := &ModuleResult{
		ExecutionResult: res,
		Arrays:          make(map[int]RetrievedArray, len(counts)),
		ArrayErrs:       make(map[int]error),
	}
	for _, pos := range cmd.OutputPositions() {
		n, ok := counts[pos]
		if !ok {
			continue
		}
		arr, qerr := s.QueryArray(pos, n)
		if qerr != nil {
			s.logger.Warn("output array retrieval failed", "module", mod.Name, "position", pos, "error", qerr)
			out.ArrayErrs[pos] = qerr
			continue
		}
		out.Arrays[pos] = arr
	}

	return out, nil
}
