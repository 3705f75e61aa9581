// Package prof wraps the stdlib profilers behind start/stop pairs the CLI
// wires to its persistent flags.
//
// Назначение: включать CPU-профиль, heap-профиль и runtime trace на время
// одного запуска. Файлы держатся в пакетных переменных: профиль на процесс
// один, как и у pprof.
package prof

import (
	"errors"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
)

var (
	cpuFile   *os.File
	traceFile *os.File
)

// StartCPU enables CPU profiling and writes samples to the provided path.
func StartCPU(path string) error {
	f, err := os.Create(path) // #nosec G304 -- path comes from a profiling flag
	if err != nil {
		return err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return err
	}
	cpuFile = f
	return nil
}

// StopCPU stops an active CPU profile and closes the underlying file.
func StopCPU() {
	pprof.StopCPUProfile()
	if cpuFile != nil {
		_ = cpuFile.Close()
		cpuFile = nil
	}
}

// WriteMem captures a heap profile to the supplied file path. A GC runs
// first so the profile reflects live objects, not allocation noise.
func WriteMem(path string) error {
	f, err := os.Create(path) // #nosec G304 -- path comes from a profiling flag
	if err != nil {
		return err
	}
	runtime.GC()
	werr := pprof.WriteHeapProfile(f)
	return errors.Join(werr, f.Close())
}

// StartTrace writes runtime trace data to the provided path.
func StartTrace(path string) error {
	f, err := os.Create(path) // #nosec G304 -- path comes from a profiling flag
	if err != nil {
		return err
	}
	if err := trace.Start(f); err != nil {
		_ = f.Close()
		return err
	}
	traceFile = f
	return nil
}

// StopTrace ends an active runtime trace and closes the file.
func StopTrace() {
	trace.Stop()
	if traceFile != nil {
		_ = traceFile.Close()
		traceFile = nil
	}
}
