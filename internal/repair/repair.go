// Package repair re-validates a generated deck. Three strategies are
// available, from cheapest to most lossy: an in-memory normalize, the same
// normalize through temp files on disk, and a deep clean that rebuilds every
// slide from its text and tables on a blank layout. Repair never fails: on
// any error the original bytes come back unchanged with the error attached.
package repair

import (
	"fmt"
	"os"

	"succession/internal/config"
	"succession/internal/logging"
	"succession/internal/pptx"
)

// Status tags a Result.
type Status string

const (
	StatusRepaired  Status = "repaired"
	StatusUnchanged Status = "unchanged"
	StatusSkipped   Status = "skipped"
)

// Result is the outcome of a repair.
type Result struct {
	Data   []byte
	Status Status
	Method string
	Slides int
	Fixes  pptx.NormalizeReport
	Err    error
}

// Skipped returns the result used when repair is disabled.
func Skipped(data []byte) Result {
	return Result{Data: data, Status: StatusSkipped}
}

// Repair runs the named method. Unknown methods run standard.
func Repair(data []byte, method string) (result Result) {
	switch method {
	case config.RepairStandard, config.RepairTempFile, config.RepairDeepClean:
	default:
		logging.Get(logging.CategoryRepair).Warnf("unknown repair method %q, using %s", method, config.RepairStandard)
		method = config.RepairStandard
	}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%s repair panicked: %v", method, r)
			logging.Get(logging.CategoryRepair).Errorf("%v, keeping original deck", err)
			result = Result{Data: data, Status: StatusUnchanged, Method: method, Err: err}
		}
	}()

	var (
		res Result
		err error
	)
	switch method {
	case config.RepairTempFile:
		res, err = tempFile(data)
	case config.RepairDeepClean:
		res, err = deepClean(data)
	default:
		res, err = standard(data)
	}
	res.Method = method
	if err != nil {
		logging.Get(logging.CategoryRepair).Warnf("%s repair failed, keeping original deck: %v", method, err)
		return Result{Data: data, Status: StatusUnchanged, Method: method, Err: err}
	}
	res.Status = StatusRepaired
	logging.Repair("%s repair done: %d slides, fixes %+v", method, res.Slides, res.Fixes)
	return res
}

func normalize(p *pptx.Presentation) (pptx.NormalizeReport, int, error) {
	fixes, err := p.Normalize()
	if err != nil {
		return fixes, 0, fmt.Errorf("normalize: %w", err)
	}
	return fixes, p.SlideCount(), nil
}

func standard(data []byte) (Result, error) {
	p, err := pptx.Open(data)
	if err != nil {
		return Result{}, err
	}
	fixes, slides, err := normalize(p)
	if err != nil {
		return Result{}, err
	}
	out, err := p.Save()
	if err != nil {
		return Result{}, err
	}
	return Result{Data: out, Slides: slides, Fixes: fixes}, nil
}

func tempFile(data []byte) (Result, error) {
	in, err := os.CreateTemp("", "succession-in-*.pptx")
	if err != nil {
		return Result{}, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(in.Name())
	if _, err := in.Write(data); err != nil {
		in.Close()
		return Result{}, fmt.Errorf("write temp file: %w", err)
	}
	if err := in.Close(); err != nil {
		return Result{}, fmt.Errorf("close temp file: %w", err)
	}

	p, err := pptx.OpenFile(in.Name())
	if err != nil {
		return Result{}, err
	}
	fixes, slides, err := normalize(p)
	if err != nil {
		return Result{}, err
	}

	out, err := os.CreateTemp("", "succession-out-*.pptx")
	if err != nil {
		return Result{}, fmt.Errorf("create temp file: %w", err)
	}
	out.Close()
	defer os.Remove(out.Name())
	if err := p.SaveFile(out.Name()); err != nil {
		return Result{}, err
	}
	repaired, err := os.ReadFile(out.Name())
	if err != nil {
		return Result{}, fmt.Errorf("read repaired deck: %w", err)
	}
	return Result{Data: repaired, Slides: slides, Fixes: fixes}, nil
}
